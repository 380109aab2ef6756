package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/stream"
	"github.com/illarion/tdvault/internal/tdf"
)

func testKey(seed byte) [AuthKeySize]byte {
	var k [AuthKeySize]byte
	for i := range k {
		k[i] = seed ^ byte(i*7)
	}
	return k
}

func testLocalKey() []byte {
	k := make([]byte, crypto.LocalKeySize)
	for i := range k {
		k[i] = byte(255 - i)
	}
	return k
}

// writeKeyFile writes key_datas for count accounts under localKey
func writeKeyFile(t *testing.T, dir string, passcode []byte, localKey []byte, count int) {
	t.Helper()
	salt := make([]byte, crypto.LocalSaltSize)
	data, err := encodeKeyFile(salt, localKey, passcode, count, 0)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tdf.KeyFile), tdf.Encode(data, tdf.DefaultVersion), 0600))
}

// writeSlotPayload encrypts outer as the decrypted content of an account
// file and writes it for index
func writeSlotPayload(t *testing.T, dir string, index uint32, outer, localKey []byte) {
	t.Helper()
	encrypted, err := crypto.EncryptLocal(outer, localKey)
	require.NoError(t, err)
	w := stream.NewWriter(0)
	w.WriteBuffer(encrypted)
	require.NoError(t, os.WriteFile(filepath.Join(dir, tdf.SlotFile(index)), tdf.Encode(w.Bytes(), tdf.DefaultVersion), 0600))
}

// userAuthOuter wraps inner in the 0x4B user auth record
func userAuthOuter(tag uint32, inner []byte) []byte {
	w := stream.NewWriter(0)
	w.WriteUint32(tag)
	w.WriteBuffer(inner)
	return w.Bytes()
}

func buildTestContainer(t *testing.T, creds []Credential, passcode string, active uint32) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tdata")
	require.NoError(t, New().Build(dir, creds, []byte(passcode), active))
	return dir
}
