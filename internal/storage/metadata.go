package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEntryNotFound = errors.New("credential not found")
	ErrInvalidEntry  = errors.New("invalid credential entry")
)

// Entry is the public part of a stored credential
type Entry struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	DC          int       `json:"dc"`
	Fingerprint string    `json:"fingerprint"` // auth key id, hex
	Source      string    `json:"source"`      // container path or "session"
	Added       time.Time `json:"added"`
}

// NewEntry builds an index entry. The id is the fingerprint, so storing
// the same key twice replaces the earlier entry.
func NewEntry(label string, dc int, fingerprint, source string) Entry {
	return Entry{
		ID:          strings.ToLower(fingerprint),
		Label:       label,
		DC:          dc,
		Fingerprint: strings.ToLower(fingerprint),
		Source:      source,
		Added:       time.Now().UTC(),
	}
}

// Validate checks that an entry can be stored
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	if e.DC <= 0 {
		return fmt.Errorf("%w: dc %d", ErrInvalidEntry, e.DC)
	}
	return nil
}

// MatchEntry reports whether ref names the entry, by id prefix or label
func MatchEntry(e Entry, ref string) bool {
	if ref == "" {
		return false
	}
	return e.Label == ref || strings.HasPrefix(e.ID, strings.ToLower(ref))
}
