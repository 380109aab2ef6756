package session

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/session"
)

const (
	// KeySize is the auth key size in bytes
	KeySize = 256

	telethonVersion = "1"
)

var (
	ErrInvalidAddress = errors.New("invalid ipv4 address")
	ErrInvalidKey     = errors.New("invalid auth key")
)

// Telethon encodes credentials as Telethon string sessions
type Telethon struct{}

// Encode returns "1" followed by the url-safe base64 of
// dc(1) || ipv4(4) || port(2) || auth_key(256), all big-endian.
func (Telethon) Encode(dc int, ip string, port int, key [KeySize]byte) (string, error) {
	if dc <= 0 || dc > 0xFF {
		return "", fmt.Errorf("dc %d out of range", dc)
	}
	if port <= 0 || port > 0xFFFF {
		return "", fmt.Errorf("port %d out of range", port)
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
	}

	buf := make([]byte, 0, 1+4+2+KeySize)
	buf = append(buf, byte(dc))
	v4 := addr.As4()
	buf = append(buf, v4[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(port))
	buf = append(buf, key[:]...)

	return telethonVersion + base64.URLEncoding.EncodeToString(buf), nil
}

// Decoded is a credential recovered from a session string
type Decoded struct {
	DC      int
	Addr    string
	AuthKey [KeySize]byte
}

// DecodeTelethon parses a Telethon string session
func DecodeTelethon(s string) (*Decoded, error) {
	data, err := session.TelethonSession(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode telethon session: %w", err)
	}
	if len(data.AuthKey) != KeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(data.AuthKey))
	}

	d := &Decoded{DC: data.DC, Addr: data.Addr}
	copy(d.AuthKey[:], data.AuthKey)
	return d, nil
}

// KeyID returns the 8-byte auth key id as lowercase hex
func KeyID(key [KeySize]byte) string {
	id := crypto.Key(key).ID()
	return hex.EncodeToString(id[:])
}

// WriteFile stores a credential as a gotd session file at path
func WriteFile(ctx context.Context, path string, dc int, ip string, port int, key [KeySize]byte) error {
	id := crypto.Key(key).ID()
	data := &session.Data{
		DC:        dc,
		Addr:      net.JoinHostPort(ip, strconv.Itoa(port)),
		AuthKey:   append([]byte(nil), key[:]...),
		AuthKeyID: id[:],
	}

	loader := session.Loader{Storage: &session.FileStorage{Path: path}}
	if err := loader.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save session file: %w", err)
	}
	return nil
}

// ReadFile loads a gotd session file
func ReadFile(ctx context.Context, path string) (*Decoded, error) {
	loader := session.Loader{Storage: &session.FileStorage{Path: path}}
	data, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session file: %w", err)
	}
	if len(data.AuthKey) != KeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(data.AuthKey))
	}

	d := &Decoded{DC: data.DC, Addr: data.Addr}
	copy(d.AuthKey[:], data.AuthKey)
	return d, nil
}
