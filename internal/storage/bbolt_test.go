package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Storage {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
}

func TestKDFParams(t *testing.T) {
	db := openTestStore(t)

	salt := []byte("test-salt-32-bytes-long-exactly!")
	if err := db.SetKDF(salt, 210000); err != nil {
		t.Fatalf("Failed to set KDF: %v", err)
	}

	gotSalt, gotIters, err := db.GetKDF()
	if err != nil {
		t.Fatalf("Failed to get KDF: %v", err)
	}
	if string(gotSalt) != string(salt) {
		t.Errorf("Salt mismatch: got %v, want %v", gotSalt, salt)
	}
	if gotIters != 210000 {
		t.Errorf("Iterations mismatch: got %d, want 210000", gotIters)
	}
}

func TestStoreID(t *testing.T) {
	db := openTestStore(t)

	id1, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to create store ID: %v", err)
	}
	if len(id1) != 32 {
		t.Errorf("Expected 32 hex chars, got %q", id1)
	}

	id2, err := db.GetOrCreateStoreID()
	if err != nil {
		t.Fatalf("Failed to get store ID: %v", err)
	}
	if id1 != id2 {
		t.Errorf("Store ID changed: %s != %s", id1, id2)
	}
}

func TestCredentialOperations(t *testing.T) {
	db := openTestStore(t)

	entry := NewEntry("work", 2, "A1B2C3D4E5F60718", "/home/user/tdata")
	if err := db.PutCredential(entry, []byte("sealed key")); err != nil {
		t.Fatalf("Failed to put credential: %v", err)
	}

	entries, err := db.ListEntries()
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID != "a1b2c3d4e5f60718" {
		t.Errorf("ID mismatch: got %s", entries[0].ID)
	}
	if entries[0].DC != 2 || entries[0].Label != "work" {
		t.Errorf("Entry mismatch: %+v", entries[0])
	}

	got, sealed, err := db.GetCredential(entry.ID)
	if err != nil {
		t.Fatalf("Failed to get credential: %v", err)
	}
	if got.Source != "/home/user/tdata" {
		t.Errorf("Source mismatch: got %s", got.Source)
	}
	if string(sealed) != "sealed key" {
		t.Errorf("Blob mismatch: got %q", sealed)
	}

	if err := db.RemoveCredential(entry.ID); err != nil {
		t.Fatalf("Failed to remove credential: %v", err)
	}
	if _, _, err := db.GetCredential(entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
	if err := db.RemoveCredential(entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound on second remove, got %v", err)
	}
}

func TestPutCredentialRejectsInvalid(t *testing.T) {
	db := openTestStore(t)

	if err := db.PutCredential(Entry{DC: 2}, nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for empty id, got %v", err)
	}
	if err := db.PutCredential(Entry{ID: "ab"}, nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for zero dc, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	db := openTestStore(t)

	for _, e := range []Entry{
		NewEntry("alpha", 1, "aa00000000000001", "session"),
		NewEntry("beta", 2, "aa00000000000002", "session"),
		NewEntry("gamma", 4, "bb00000000000003", "session"),
	} {
		if err := db.PutCredential(e, []byte("x")); err != nil {
			t.Fatalf("Failed to put credential: %v", err)
		}
	}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"beta", "aa00000000000002", false},
		{"bb", "bb00000000000003", false},
		{"AA00000000000001", "aa00000000000001", false},
		{"aa", "", true},
		{"missing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := db.Resolve(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %+v", tt.ref, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.ref, err)
			}
			if got.ID != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got.ID, tt.want)
			}
		})
	}
}

func TestPasswordCheck(t *testing.T) {
	db := openTestStore(t)

	if _, err := db.GetPasswordCheck(); err == nil {
		t.Error("Expected error before check is set")
	}
	if err := db.SetPasswordCheck([]byte("check")); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}
	got, err := db.GetPasswordCheck()
	if err != nil {
		t.Fatalf("Failed to get check: %v", err)
	}
	if string(got) != "check" {
		t.Errorf("Check mismatch: got %q", got)
	}
}

func TestCompact(t *testing.T) {
	db := openTestStore(t)

	for i := 0; i < 50; i++ {
		e := NewEntry("", 2, string(rune('a'+i%26))+"0000000000000"+string(rune('a'+i/26)), "session")
		if err := db.PutCredential(e, make([]byte, 4096)); err != nil {
			t.Fatalf("Failed to put credential: %v", err)
		}
	}
	entries, _ := db.ListEntries()
	for _, e := range entries[1:] {
		if err := db.RemoveCredential(e.ID); err != nil {
			t.Fatalf("Failed to remove credential: %v", err)
		}
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	entries, err := db.ListEntries()
	if err != nil {
		t.Fatalf("Failed to list after compact: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry after compact, got %d", len(entries))
	}

	for _, suffix := range []string{".compact", ".backup"} {
		if _, err := os.Stat(db.Path() + suffix); !os.IsNotExist(err) {
			t.Errorf("Leftover file %s", suffix)
		}
	}
}
