package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/dc"
	"github.com/illarion/tdvault/internal/security"
	"github.com/illarion/tdvault/internal/stream"
	"github.com/illarion/tdvault/internal/tdf"
)

const (
	userAuthTag  = 0x4B
	wideIDMarker = 0xFFFFFFFF
)

// TData reads and writes tdata containers. It holds no per-container
// state and is safe for concurrent use on different directories.
type TData struct {
	logger *log.Logger
}

// Option configures a TData
type Option func(*TData)

// WithLogger sets the logger used for slot failures and written files
func WithLogger(logger *log.Logger) Option {
	return func(t *TData) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a TData codec
func New(opts ...Option) *TData {
	t := &TData{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// keyFile is the decoded content of key_datas
type keyFile struct {
	name      string
	version   uint32
	salt      []byte
	localKey  []byte
	indices   []uint32
	active    uint32
	hasActive bool
}

// Extract decodes every account of the container in dir.
// Key file failures abort; slot failures are recorded per slot.
func (t *TData) Extract(dir string, passcode []byte) (*Info, error) {
	root, err := security.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyFileNotFound, dir)
		}
		return nil, err
	}
	defer root.Close()

	kf, err := readKeyFile(root, passcode)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(kf.localKey)

	info := &Info{
		Dir:            root.Path(),
		KeyFile:        kf.name,
		Version:        kf.version,
		AccountCount:   len(kf.indices),
		ActiveIndex:    kf.active,
		HasActiveIndex: kf.hasActive,
		HasPasscode:    len(passcode) > 0,
		SaltPresent:    len(kf.salt) > 0,
		Slots:          make([]Slot, 0, len(kf.indices)),
	}

	for _, index := range kf.indices {
		cred, err := readUserAuth(root, index, kf.localKey)
		if errors.Is(err, crypto.ErrCipherBackendUnavailable) {
			return nil, err
		}
		if err != nil {
			t.logger.Warn("account slot unreadable", "dir", info.Dir, "index", index, "err", err)
			info.Slots = append(info.Slots, Slot{Index: index, Err: err})
			continue
		}
		t.logger.Debug("account slot decoded", "dir", info.Dir, "index", index, "dc", cred.DC)
		info.Slots = append(info.Slots, Slot{Index: index, Credential: cred})
	}

	return info, nil
}

// NeedsPasscode reports whether the key file in dir is protected by a
// non-empty passcode
func (t *TData) NeedsPasscode(dir string) (bool, error) {
	root, err := security.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrKeyFileNotFound, dir)
		}
		return false, err
	}
	defer root.Close()

	kf, err := readKeyFile(root, nil)
	switch {
	case err == nil:
		crypto.ClearBytes(kf.localKey)
		return false, nil
	case errors.Is(err, ErrWrongPasscode):
		return true, nil
	default:
		return false, err
	}
}

func openKeyFrame(root *security.ContainerRoot) (string, *tdf.Frame, error) {
	for _, name := range []string{tdf.KeyFile, tdf.LegacyKeyFile} {
		raw, err := root.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		frame, err := tdf.Decode(raw)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", name, err)
		}
		return name, frame, nil
	}
	return "", nil, fmt.Errorf("%w in %s", ErrKeyFileNotFound, root.Path())
}

func readKeyFile(root *security.ContainerRoot, passcode []byte) (*keyFile, error) {
	name, frame, err := openKeyFrame(root)
	if err != nil {
		return nil, err
	}

	r := stream.NewReader(frame.Payload)
	salt, err := r.ReadBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: salt: %w", name, err)
	}
	if len(salt) != crypto.LocalSaltSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSalt, len(salt))
	}
	keyEncrypted, err := r.ReadBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: encrypted key: %w", name, err)
	}
	infoEncrypted, err := r.ReadBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: encrypted info: %w", name, err)
	}

	passKey := crypto.DeriveLocalKey(passcode, salt)
	defer crypto.ClearBytes(passKey)

	localKey, err := crypto.DecryptLocal(keyEncrypted, passKey)
	if err != nil {
		if errors.Is(err, crypto.ErrIntegrity) {
			return nil, fmt.Errorf("%w: %w", ErrWrongPasscode, err)
		}
		return nil, err
	}
	if len(localKey) != crypto.LocalKeySize {
		crypto.ClearBytes(localKey)
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidLocalKey, len(localKey))
	}

	kf := &keyFile{
		name:     name,
		version:  frame.Version,
		salt:     salt,
		localKey: localKey,
	}
	if err := kf.parseInfo(infoEncrypted); err != nil {
		crypto.ClearBytes(localKey)
		return nil, fmt.Errorf("%s: account index: %w", name, err)
	}
	return kf, nil
}

func (kf *keyFile) parseInfo(encrypted []byte) error {
	info, err := crypto.DecryptLocal(encrypted, kf.localKey)
	if err != nil {
		return err
	}

	r := stream.NewReader(info)
	count, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if uint64(count)*4 > uint64(r.Remaining()) {
		return fmt.Errorf("%w: %d accounts declared", stream.ErrTruncated, count)
	}

	kf.indices = make([]uint32, count)
	for i := range kf.indices {
		if kf.indices[i], err = r.ReadUint32(); err != nil {
			return err
		}
	}

	if r.Remaining() >= 4 {
		kf.active, _ = r.ReadUint32()
		kf.hasActive = true
	}
	return nil
}

// readUserAuth decodes the account file of one slot
func readUserAuth(root *security.ContainerRoot, index uint32, localKey []byte) (*Credential, error) {
	raw, err := root.ReadFile(tdf.SlotFile(index))
	if err != nil {
		return nil, err
	}
	frame, err := tdf.Decode(raw)
	if err != nil {
		return nil, err
	}

	encrypted, err := stream.NewReader(frame.Payload).ReadBuffer()
	if err != nil {
		return nil, err
	}
	plain, err := crypto.DecryptLocal(encrypted, localKey)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plain)

	r := stream.NewReader(plain)
	tag, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if tag != userAuthTag {
		return nil, fmt.Errorf("%w: tag 0x%X", ErrUnsupportedFormat, tag)
	}
	inner, err := r.ReadBuffer()
	if err != nil {
		return nil, err
	}

	return parseUserAuth(stream.NewReader(inner))
}

func parseUserAuth(r *stream.Reader) (*Credential, error) {
	userID, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	mainDC, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if userID == wideIDMarker && mainDC == wideIDMarker {
		if _, err := r.ReadUint64(); err != nil {
			return nil, err
		}
		if mainDC, err = r.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if mainDC > 0xFF || !dc.Known(int(mainDC)) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDC, mainDC)
	}

	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		authDC, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		key, err := r.Read(AuthKeySize)
		if err != nil {
			return nil, err
		}
		if authDC == mainDC {
			cred := &Credential{DC: int(mainDC)}
			copy(cred.AuthKey[:], key)
			return cred, nil
		}
	}

	return nil, fmt.Errorf("%w: no key for main dc %d", ErrInvalidAuthConfig, mainDC)
}
