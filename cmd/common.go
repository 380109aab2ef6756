package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/fang"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/keyring"
	"github.com/illarion/tdvault/internal/storage"
	"github.com/illarion/tdvault/internal/tdf"
)

// ErrorHandler prints known errors with a hint on how to recover
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	msg, hint := describeError(err)
	fmt.Fprintln(w, styles.ErrorHeader.String())
	fmt.Fprintln(w, styles.ErrorText.Render(msg))
	if hint != "" {
		fmt.Fprintln(w, styles.ErrorText.Render(hint))
	}
	fmt.Fprintln(w)
}

func describeError(err error) (string, string) {
	switch {
	case errors.Is(err, core.ErrWrongPasscode):
		return "wrong passcode for tdata directory", "Set TDVAULT_PASSCODE or run 'tdvault keyring save <dir>'"
	case errors.Is(err, core.ErrKeyFileNotFound):
		return err.Error(), "Point tdvault at the tdata directory itself, not its parent"
	case errors.Is(err, tdf.ErrInvalidMagic), errors.Is(err, tdf.ErrDigestMismatch):
		return "key file is damaged: " + err.Error(), ""
	case errors.Is(err, core.ErrStoreNotInitialized):
		return err.Error(), "Run 'tdvault store init' first"
	case errors.Is(err, core.ErrStoreExists):
		return err.Error(), "Use 'tdvault store ls' to see its contents"
	case errors.Is(err, core.ErrWrongPassword):
		return "wrong store password", ""
	case errors.Is(err, crypto.ErrCipherBackendUnavailable):
		return err.Error(), "The AES implementation could not be initialized"
	case errors.Is(err, core.ErrNoTerminal):
		return "passcode required but stdin is not a terminal", "Set TDVAULT_PASSCODE"
	case errors.Is(err, storage.ErrEntryNotFound):
		return err.Error(), "Use 'tdvault store ls' to list stored credentials"
	case errors.Is(err, fs.ErrNotExist):
		return err.Error(), ""
	default:
		return err.Error(), ""
	}
}

// passcodeFor resolves the passcode of a container directory.
// The caller is responsible for calling crypto.ClearBytes on the result.
func (a *app) passcodeFor(dir string) ([]byte, error) {
	r := &core.PasscodeResolver{
		Explicit:    a.cfg.Passcode,
		HasExplicit: a.cfg.PasscodeSet,
		UseKeyring:  a.cfg.Keyring,
	}
	code, src, err := r.Resolve(a.td, dir)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("passcode resolved", "dir", dir, "source", src)
	return code, nil
}

// openStore opens the credential store and returns it with its password.
// The caller is responsible for closing the store and clearing the password.
func (a *app) openStore() (*core.Store, []byte, error) {
	store, err := core.OpenStore(a.cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}

	password, err := a.storePassword(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, password, nil
}

func (a *app) storePassword(store *core.Store) ([]byte, error) {
	if a.cfg.StorePasswordSet {
		return []byte(a.cfg.StorePassword), nil
	}

	if a.cfg.Keyring {
		if id, err := store.ID(); err == nil {
			if pw, err := keyring.GetStorePassword(id); err == nil {
				return []byte(pw), nil
			}
		}
	}

	return core.ReadPassword("Store password: ")
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
