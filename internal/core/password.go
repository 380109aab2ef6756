package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/keyring"
	"golang.org/x/term"
)

// ErrNoTerminal is returned when a passcode prompt is needed but stdin is
// not a terminal
var ErrNoTerminal = errors.New("stdin is not a terminal")

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// PasscodeSource names where a container passcode came from
type PasscodeSource string

const (
	SourceEnv     PasscodeSource = "env"
	SourceKeyring PasscodeSource = "keyring"
	SourceEmpty   PasscodeSource = "empty"
	SourcePrompt  PasscodeSource = "prompt"
)

// PasscodeResolver finds the passcode for a container. It tries, in
// order: an explicit value (from TDVAULT_PASSCODE), the OS keyring, the
// empty passcode, and finally an interactive prompt.
type PasscodeResolver struct {
	Explicit    string
	HasExplicit bool
	UseKeyring  bool
	Prompt      func(prompt string) ([]byte, error)
}

// Resolve returns the passcode for dir and where it came from
func (p *PasscodeResolver) Resolve(t *TData, dir string) ([]byte, PasscodeSource, error) {
	if p.HasExplicit {
		return []byte(p.Explicit), SourceEnv, nil
	}

	if p.UseKeyring {
		if id, err := keyring.ContainerID(dir); err == nil {
			if code, err := keyring.GetPasscode(id); err == nil {
				return []byte(code), SourceKeyring, nil
			}
		}
	}

	needs, err := t.NeedsPasscode(dir)
	if err != nil {
		return nil, "", err
	}
	if !needs {
		return nil, SourceEmpty, nil
	}

	prompt := p.Prompt
	if prompt == nil {
		prompt = ReadPassword
	}
	code, err := prompt(fmt.Sprintf("Passcode for %s: ", dir))
	if err != nil {
		return nil, "", err
	}
	return code, SourcePrompt, nil
}
