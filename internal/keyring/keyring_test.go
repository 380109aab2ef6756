package keyring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestContainerID(t *testing.T) {
	dir := t.TempDir()

	a, err := ContainerID(dir)
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := ContainerID(filepath.Join(dir, "sub", ".."))
	require.NoError(t, err)
	require.Equal(t, a, b, "equivalent paths must map to the same id")

	c, err := ContainerID(filepath.Join(dir, "other"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestPasscodeLifecycle(t *testing.T) {
	keyring.MockInit()

	id, err := ContainerID(t.TempDir())
	require.NoError(t, err)
	require.False(t, HasPasscode(id))

	require.NoError(t, SavePasscode(id, "1234"))
	require.True(t, HasPasscode(id))

	got, err := GetPasscode(id)
	require.NoError(t, err)
	require.Equal(t, "1234", got)

	require.NoError(t, DeletePasscode(id))
	_, err = GetPasscode(id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorePasswordSeparateFromPasscode(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, SavePasscode("abc", "passcode"))
	require.NoError(t, SaveStorePassword("abc", "store"))

	p, err := GetPasscode("abc")
	require.NoError(t, err)
	require.Equal(t, "passcode", p)

	s, err := GetStorePassword("abc")
	require.NoError(t, err)
	require.Equal(t, "store", s)

	require.NoError(t, DeleteStorePassword("abc"))
	require.NoError(t, DeleteStorePassword("abc"))
}
