package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // KDF params (salt, iterations), timestamps - unencrypted
	IndexBucket   = []byte("index")   // Public credential list for store ls - unencrypted
	BlobsBucket   = []byte("blobs")   // Encrypted auth keys
	PrivateBucket = []byte("private") // Encrypted password check
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigStoreID  = []byte("store_id")
)

// PasswordCheckKey is the private bucket key of the password check value
var PasswordCheckKey = []byte("password_check")

const openTimeout = time.Second

// Storage provides BBolt-based storage for the credential store
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a credential store database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure for a new store
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, BlobsBucket, PrivateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetKDF stores the KDF salt and iteration count
func (s *Storage) SetKDF(salt []byte, iterations uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		if err := config.Put(ConfigSalt, salt); err != nil {
			return err
		}
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, iterations)
		return config.Put(ConfigIters, iters)
	})
}

// GetKDF retrieves the KDF salt and iteration count
func (s *Storage) GetKDF() ([]byte, uint32, error) {
	var (
		salt       []byte
		iterations uint32
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		v := config.Get(ConfigSalt)
		if v == nil {
			return fmt.Errorf("salt not found")
		}
		// Make a copy since the slice is only valid during the transaction
		salt = append([]byte(nil), v...)

		iters := config.Get(ConfigIters)
		if len(iters) != 4 {
			return fmt.Errorf("iterations not found")
		}
		iterations = binary.BigEndian.Uint32(iters)
		return nil
	})
	return salt, iterations, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetOrCreateStoreID retrieves the store id or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		if data := config.Get(ConfigStoreID); data != nil {
			id = string(data)
			return nil
		}

		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate store ID: %w", err)
		}
		id = hex.EncodeToString(b)
		return config.Put(ConfigStoreID, []byte(id))
	})
	return id, err
}

// SetPasswordCheck stores the encrypted password check value
func (s *Storage) SetPasswordCheck(sealed []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		private := tx.Bucket(PrivateBucket)
		if private == nil {
			return fmt.Errorf("private bucket not found")
		}
		return private.Put(PasswordCheckKey, sealed)
	})
}

// GetPasswordCheck retrieves the encrypted password check value
func (s *Storage) GetPasswordCheck() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		private := tx.Bucket(PrivateBucket)
		if private == nil {
			return fmt.Errorf("private bucket not found")
		}
		v := private.Get(PasswordCheckKey)
		if v == nil {
			return fmt.Errorf("password check not found")
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// PutCredential writes an index entry and its sealed auth key in one
// transaction
func (s *Storage) PutCredential(entry Entry, sealedKey []byte) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(IndexBucket).Put([]byte(entry.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(BlobsBucket).Put([]byte(entry.ID), sealedKey); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetCredential returns an index entry and its sealed auth key
func (s *Storage) GetCredential(id string) (*Entry, []byte, error) {
	var (
		entry  Entry
		sealed []byte
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		data := index.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		blob := tx.Bucket(BlobsBucket).Get([]byte(id))
		if blob == nil {
			return fmt.Errorf("%w: key blob missing for %s", ErrEntryNotFound, id)
		}
		sealed = append([]byte(nil), blob...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &entry, sealed, nil
}

// RemoveCredential deletes an entry and its blob
func (s *Storage) RemoveCredential(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		if err := index.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(BlobsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// ListEntries returns all index entries ordered by time added
func (s *Storage) ListEntries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		return index.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Added.Equal(entries[j].Added) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Added.Before(entries[j].Added)
	})
	return entries, err
}

// Resolve finds the single entry matching ref by label or id prefix
func (s *Storage) Resolve(ref string) (*Entry, error) {
	entries, err := s.ListEntries()
	if err != nil {
		return nil, err
	}

	var found []Entry
	for _, e := range entries {
		if e.ID == ref {
			return &e, nil
		}
		if MatchEntry(e, ref) {
			found = append(found, e)
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, ref)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d credentials", ref, len(found))
	}
}

// Rekey replaces the KDF parameters, password check and every sealed
// blob in one transaction. blobs must hold an entry for every stored id.
func (s *Storage) Rekey(salt []byte, iterations uint32, check []byte, blobs map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if err := index.ForEach(func(k, _ []byte) error {
			if _, ok := blobs[string(k)]; !ok {
				return fmt.Errorf("rekey: missing blob for %s", k)
			}
			return nil
		}); err != nil {
			return err
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigSalt, salt); err != nil {
			return err
		}
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, iterations)
		if err := config.Put(ConfigIters, iters); err != nil {
			return err
		}
		if err := tx.Bucket(PrivateBucket).Put(PasswordCheckKey, check); err != nil {
			return err
		}

		b := tx.Bucket(BlobsBucket)
		for id, sealed := range blobs {
			if err := b.Put([]byte(id), sealed); err != nil {
				return err
			}
		}
		return touch(tx)
	})
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after removing credentials to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

