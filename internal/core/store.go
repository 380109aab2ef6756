package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/security"
	"github.com/illarion/tdvault/internal/session"
	"github.com/illarion/tdvault/internal/storage"
)

const passwordCheckString = "tdvault-password-check"

// checkAD binds the password check record; credential blobs are bound
// to their entry id.
var checkAD = []byte("password_check")

// Store is the encrypted local credential store. Auth keys are sealed
// with AES-256-GCM under a key derived from the store password; labels,
// data centers and key fingerprints stay readable without it.
type Store struct {
	db *storage.Storage
}

// CreateStore initializes a new store at path
func CreateStore(path string, password []byte) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), security.DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}

	if err := s.init(password); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

func (s *Store) init(password []byte) error {
	if err := s.db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	if err := s.db.SetKDF(kdf.Salt, uint32(kdf.Iterations)); err != nil {
		return fmt.Errorf("failed to store KDF parameters: %w", err)
	}

	enc := crypto.NewEncryptor(kdf.DeriveKey(password))
	defer enc.Destroy()

	checksum := sha256.Sum256([]byte(passwordCheckString))
	sealed, err := enc.Encrypt([]byte(hex.EncodeToString(checksum[:])), checkAD)
	if err != nil {
		return fmt.Errorf("failed to encrypt password check: %w", err)
	}
	if err := s.db.SetPasswordCheck(sealed); err != nil {
		return fmt.Errorf("failed to store password check: %w", err)
	}

	_, err = s.db.GetOrCreateStoreID()
	return err
}

// OpenStore opens an existing store
func OpenStore(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotInitialized, path)
		}
		return nil, err
	}

	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	ok, err := db.IsInitialized()
	if err != nil || !ok {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrStoreNotInitialized, path)
	}
	return &Store{db: db}, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// ID returns the store id used as its keyring entry name
func (s *Store) ID() (string, error) {
	return s.db.GetOrCreateStoreID()
}

// unlock derives the store key and verifies it against the check value
func (s *Store) unlock(password []byte) (*crypto.Encryptor, error) {
	salt, iterations, err := s.db.GetKDF()
	if err != nil {
		return nil, fmt.Errorf("failed to read KDF parameters: %w", err)
	}

	kdf := &crypto.KDF{Salt: salt, Iterations: int(iterations)}
	enc := crypto.NewEncryptor(kdf.DeriveKey(password))

	sealed, err := s.db.GetPasswordCheck()
	if err != nil {
		enc.Destroy()
		return nil, ErrWrongPassword
	}
	data, err := enc.Decrypt(sealed, checkAD)
	if err != nil {
		enc.Destroy()
		return nil, ErrWrongPassword
	}

	checksum := sha256.Sum256([]byte(passwordCheckString))
	if string(data) != hex.EncodeToString(checksum[:]) {
		enc.Destroy()
		return nil, ErrWrongPassword
	}
	return enc, nil
}

// VerifyPassword checks the store password
func (s *Store) VerifyPassword(password []byte) error {
	enc, err := s.unlock(password)
	if err != nil {
		return err
	}
	enc.Destroy()
	return nil
}

// Add seals a credential into the store. Adding a key that is already
// present replaces its entry.
func (s *Store) Add(password []byte, label, source string, cred Credential) (*storage.Entry, error) {
	enc, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	return s.add(enc, label, source, cred)
}

func (s *Store) add(enc *crypto.Encryptor, label, source string, cred Credential) (*storage.Entry, error) {
	entry := storage.NewEntry(label, cred.DC, session.KeyID(cred.AuthKey), source)
	sealed, err := enc.Encrypt(cred.AuthKey[:], []byte(entry.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt auth key: %w", err)
	}

	if err := s.db.PutCredential(entry, sealed); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	return &entry, nil
}

// Import stores every decoded slot of info. Labels are
// "<label>#<index>" when label is set, empty otherwise.
func (s *Store) Import(password []byte, info *Info, label string) ([]storage.Entry, error) {
	enc, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	var added []storage.Entry
	for _, slot := range info.Slots {
		if slot.Credential == nil {
			continue
		}
		l := ""
		if label != "" {
			l = fmt.Sprintf("%s#%d", label, slot.Index)
		}
		entry, err := s.add(enc, l, info.Dir, *slot.Credential)
		if err != nil {
			return added, err
		}
		added = append(added, *entry)
	}
	return added, nil
}

// List returns the public index. No password is needed.
func (s *Store) List() ([]storage.Entry, error) {
	return s.db.ListEntries()
}

// Get resolves ref by label or id prefix and decrypts its auth key
func (s *Store) Get(password []byte, ref string) (*storage.Entry, *Credential, error) {
	enc, err := s.unlock(password)
	if err != nil {
		return nil, nil, err
	}
	defer enc.Destroy()

	return s.get(enc, ref)
}

func (s *Store) get(enc *crypto.Encryptor, ref string) (*storage.Entry, *Credential, error) {
	entry, err := s.db.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	_, sealed, err := s.db.GetCredential(entry.ID)
	if err != nil {
		return nil, nil, err
	}

	key, err := enc.Decrypt(sealed, []byte(entry.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt %s: %w", entry.ID, err)
	}
	defer crypto.ClearBytes(key)
	if len(key) != AuthKeySize {
		return nil, nil, fmt.Errorf("%s: stored key has %d bytes", entry.ID, len(key))
	}

	cred := &Credential{DC: entry.DC}
	copy(cred.AuthKey[:], key)
	return entry, cred, nil
}

// Credentials decrypts the credentials named by refs in order, or every
// stored credential when refs is empty
func (s *Store) Credentials(password []byte, refs []string) ([]Credential, error) {
	enc, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	if len(refs) == 0 {
		entries, err := s.db.ListEntries()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			refs = append(refs, e.ID)
		}
	}

	creds := make([]Credential, 0, len(refs))
	for _, ref := range refs {
		_, cred, err := s.get(enc, ref)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}
	return creds, nil
}

// Remove deletes the credential named by ref. No password is needed.
func (s *Store) Remove(ref string) (*storage.Entry, error) {
	entry, err := s.db.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := s.db.RemoveCredential(entry.ID); err != nil {
		return nil, err
	}
	return entry, nil
}

// ChangePassword re-encrypts every stored auth key under a new password
// with a fresh salt
func (s *Store) ChangePassword(current, next []byte) error {
	old, err := s.unlock(current)
	if err != nil {
		return err
	}
	defer old.Destroy()

	entries, err := s.db.ListEntries()
	if err != nil {
		return err
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	enc := crypto.NewEncryptor(kdf.DeriveKey(next))
	defer enc.Destroy()

	blobs := make(map[string][]byte, len(entries))
	for _, e := range entries {
		_, sealed, err := s.db.GetCredential(e.ID)
		if err != nil {
			return err
		}
		key, err := old.Decrypt(sealed, []byte(e.ID))
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", e.ID, err)
		}
		resealed, err := enc.Encrypt(key, []byte(e.ID))
		crypto.ClearBytes(key)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", e.ID, err)
		}
		blobs[e.ID] = resealed
	}

	checksum := sha256.Sum256([]byte(passwordCheckString))
	check, err := enc.Encrypt([]byte(hex.EncodeToString(checksum[:])), checkAD)
	if err != nil {
		return fmt.Errorf("failed to encrypt password check: %w", err)
	}

	return s.db.Rekey(kdf.Salt, uint32(kdf.Iterations), check, blobs)
}

// Compact reclaims space left by removed credentials
func (s *Store) Compact() error {
	return s.db.Compact()
}
