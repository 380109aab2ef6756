package core

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	info := &Info{
		AccountCount:   2,
		ActiveIndex:    1,
		HasActiveIndex: true,
		Slots: []Slot{
			{Index: 0, Credential: &Credential{DC: 2, AuthKey: testKey(1)}},
			{Index: 1, Err: ErrUnsupportedDC},
		},
	}

	s := Summary(info)
	require.Contains(t, s, "accounts: 2\n")
	require.Contains(t, s, "active: 1\n")
	require.Contains(t, s, "slot 0: dc=2 key=")
	require.Contains(t, s, "slot 1: error: unsupported data center")
	key := testKey(1)
	require.NotContains(t, s, hex.EncodeToString(key[:]))
}

func TestDiffIdenticalCredentials(t *testing.T) {
	creds := []Credential{{DC: 2, AuthKey: testKey(1)}, {DC: 4, AuthKey: testKey(2)}}
	a, err := New().Extract(buildTestContainer(t, creds, "", 1), nil)
	require.NoError(t, err)
	b, err := New().Extract(buildTestContainer(t, creds, "", 1), nil)
	require.NoError(t, err)

	require.Empty(t, Diff(a, b), "fresh salts and local keys must not show up")
	require.Empty(t, DiffLines(a, b))
}

func TestDiffChangedSlot(t *testing.T) {
	a, err := New().Extract(buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(1)}}, "", 0), nil)
	require.NoError(t, err)
	b, err := New().Extract(buildTestContainer(t, []Credential{{DC: 3, AuthKey: testKey(1)}}, "", 0), nil)
	require.NoError(t, err)

	out := Diff(a, b)
	require.True(t, strings.HasPrefix(out, "--- "+a.Dir+"\n+++ "+b.Dir+"\n"))
	require.Contains(t, out, "@@")

	lines := DiffLines(a, b)
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "-slot 0: dc=2"))
	require.True(t, strings.HasPrefix(lines[1], "+slot 0: dc=3"))
}
