package core

import (
	"fmt"
	"os"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/dc"
	"github.com/illarion/tdvault/internal/security"
	"github.com/illarion/tdvault/internal/stream"
	"github.com/illarion/tdvault/internal/tdf"
)

// Build writes a new container for creds into dir, creating the
// directory if needed. The same passcode must be supplied to Extract.
// Existing files with other names are left in place.
func (t *TData) Build(dir string, creds []Credential, passcode []byte, active uint32) error {
	if len(creds) == 0 {
		return ErrNoAccounts
	}
	for i, c := range creds {
		if !dc.Known(c.DC) {
			return fmt.Errorf("account %d: %w: %d", i, ErrUnsupportedDC, c.DC)
		}
	}
	if uint64(active) >= uint64(len(creds)) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidActiveIndex, active, len(creds))
	}

	salt, err := crypto.GenerateRandom(crypto.LocalSaltSize)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	localKey, err := crypto.GenerateRandom(crypto.LocalKeySize)
	if err != nil {
		return fmt.Errorf("failed to generate local key: %w", err)
	}
	defer crypto.ClearBytes(localKey)

	keyData, err := encodeKeyFile(salt, localKey, passcode, len(creds), active)
	if err != nil {
		return err
	}

	root, err := security.Create(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	if err := root.WriteFile(tdf.KeyFile, tdf.Encode(keyData, tdf.DefaultVersion)); err != nil {
		return err
	}
	t.logger.Debug("wrote key file", "dir", root.Path(), "accounts", len(creds))

	for i, c := range creds {
		payload, err := encodeUserAuth(c, localKey)
		if err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
		name := tdf.SlotFile(uint32(i))
		if err := root.WriteFile(name, tdf.Encode(payload, tdf.DefaultVersion)); err != nil {
			return err
		}
		t.logger.Debug("wrote account file", "dir", root.Path(), "index", i, "file", name, "dc", c.DC)
	}

	return nil
}

func encodeKeyFile(salt, localKey, passcode []byte, count int, active uint32) ([]byte, error) {
	passKey := crypto.DeriveLocalKey(passcode, salt)
	defer crypto.ClearBytes(passKey)

	keyEncrypted, err := crypto.EncryptLocal(localKey, passKey)
	if err != nil {
		return nil, err
	}

	info := stream.NewWriter(4 * (count + 2))
	info.WriteUint32(uint32(count))
	for i := 0; i < count; i++ {
		info.WriteUint32(uint32(i))
	}
	info.WriteUint32(active)

	infoEncrypted, err := crypto.EncryptLocal(info.Bytes(), localKey)
	if err != nil {
		return nil, err
	}

	w := stream.NewWriter(len(salt) + len(keyEncrypted) + len(infoEncrypted) + 12)
	w.WriteBuffer(salt)
	w.WriteBuffer(keyEncrypted)
	w.WriteBuffer(infoEncrypted)
	return w.Bytes(), nil
}

func encodeUserAuth(c Credential, localKey []byte) ([]byte, error) {
	inner := stream.NewWriter(16 + AuthKeySize)
	inner.WriteUint32(wideIDMarker)
	inner.WriteUint32(uint32(c.DC))
	inner.WriteUint32(1)
	inner.WriteUint32(uint32(c.DC))
	inner.WriteRaw(c.AuthKey[:])
	defer crypto.ClearBytes(inner.Bytes())

	outer := stream.NewWriter(8 + inner.Len())
	outer.WriteUint32(userAuthTag)
	outer.WriteBuffer(inner.Bytes())
	defer crypto.ClearBytes(outer.Bytes())

	encrypted, err := crypto.EncryptLocal(outer.Bytes(), localKey)
	if err != nil {
		return nil, err
	}

	w := stream.NewWriter(4 + len(encrypted))
	w.WriteBuffer(encrypted)
	return w.Bytes(), nil
}

// Validate checks that dir looks like a written container: the
// directory exists, holds key_datas and at least one account file.
func Validate(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidContainer, dir)
	}

	root, err := security.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	defer root.Close()

	if !root.Exists(tdf.KeyFile) {
		return fmt.Errorf("%w: %s missing", ErrInvalidContainer, tdf.KeyFile)
	}

	names, err := root.List()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	for _, name := range names {
		if tdf.IsSlotFile(name) {
			return nil
		}
	}
	return fmt.Errorf("%w: no account files", ErrInvalidContainer)
}
