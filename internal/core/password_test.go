package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/illarion/tdvault/internal/keyring"
)

func TestPasscodeResolverExplicit(t *testing.T) {
	r := &PasscodeResolver{Explicit: "1234", HasExplicit: true}
	code, src, err := r.Resolve(New(), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "1234", string(code))
	require.Equal(t, SourceEnv, src)
}

func TestPasscodeResolverEmptyProbe(t *testing.T) {
	dir := buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(1)}}, "", 0)
	r := &PasscodeResolver{Prompt: func(string) ([]byte, error) {
		t.Fatal("prompt must not be called for an unprotected container")
		return nil, nil
	}}

	code, src, err := r.Resolve(New(), dir)
	require.NoError(t, err)
	require.Empty(t, code)
	require.Equal(t, SourceEmpty, src)
}

func TestPasscodeResolverPrompt(t *testing.T) {
	dir := buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(1)}}, "pin", 0)

	var asked string
	r := &PasscodeResolver{Prompt: func(p string) ([]byte, error) {
		asked = p
		return []byte("pin"), nil
	}}
	code, src, err := r.Resolve(New(), dir)
	require.NoError(t, err)
	require.Equal(t, "pin", string(code))
	require.Equal(t, SourcePrompt, src)
	require.Contains(t, asked, dir)

	_, err = New().Extract(dir, code)
	require.NoError(t, err)

	r.Prompt = func(string) ([]byte, error) { return nil, ErrNoTerminal }
	_, _, err = r.Resolve(New(), dir)
	require.True(t, errors.Is(err, ErrNoTerminal))
}

func TestPasscodeResolverKeyring(t *testing.T) {
	gokeyring.MockInit()
	dir := buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(1)}}, "cached", 0)

	id, err := keyring.ContainerID(dir)
	require.NoError(t, err)
	require.NoError(t, keyring.SavePasscode(id, "cached"))

	r := &PasscodeResolver{UseKeyring: true}
	code, src, err := r.Resolve(New(), dir)
	require.NoError(t, err)
	require.Equal(t, "cached", string(code))
	require.Equal(t, SourceKeyring, src)
}
