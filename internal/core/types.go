package core

import (
	"fmt"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/dc"
)

// AuthKeySize is the size of a per-account auth key
const AuthKeySize = crypto.LocalKeySize

// Credential is one account's data center and auth key
type Credential struct {
	DC      int
	AuthKey [AuthKeySize]byte
}

// Slot is the outcome of decoding one account file. Exactly one of
// Credential and Err is set.
type Slot struct {
	Index      uint32
	Credential *Credential
	Err        error
}

// DecodeError reports whether the slot could not be decoded
func (s Slot) DecodeError() bool {
	return s.Err != nil
}

// Info is the result of extracting a container
type Info struct {
	Dir            string
	KeyFile        string // key_datas or key_data
	Version        uint32 // frame version of the key file
	AccountCount   int
	ActiveIndex    uint32
	HasActiveIndex bool
	// HasPasscode is true when a non-empty passcode unlocked the key file.
	HasPasscode bool
	// SaltPresent is the legacy has-passcode value, derived from the salt
	// length. It is true for every valid key file.
	SaltPresent bool
	Slots       []Slot
}

// Credentials returns the successfully decoded credentials in slot order
func (i *Info) Credentials() []Credential {
	var out []Credential
	for _, s := range i.Slots {
		if s.Credential != nil {
			out = append(out, *s.Credential)
		}
	}
	return out
}

// Failed returns the number of slots that could not be decoded
func (i *Info) Failed() int {
	n := 0
	for _, s := range i.Slots {
		if s.DecodeError() {
			n++
		}
	}
	return n
}

// SessionEncoder turns a credential into a client library's session string
type SessionEncoder interface {
	Encode(dc int, ip string, port int, key [AuthKeySize]byte) (string, error)
}

// Sessions encodes every decoded slot with enc, in slot order.
// Failed slots produce no session.
func (i *Info) Sessions(enc SessionEncoder) ([]string, error) {
	var out []string
	for _, s := range i.Slots {
		if s.Credential == nil {
			continue
		}
		ip, ok := dc.Address(s.Credential.DC)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedDC, s.Credential.DC)
		}
		str, err := enc.Encode(s.Credential.DC, ip, dc.DefaultPort, s.Credential.AuthKey)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", s.Index, err)
		}
		out = append(out, str)
	}
	return out, nil
}
