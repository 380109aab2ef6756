package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractAllPreservesOrder(t *testing.T) {
	var dirs []string
	for i := 1; i <= 5; i++ {
		dirs = append(dirs, buildTestContainer(t, []Credential{{DC: i, AuthKey: testKey(byte(i))}}, "", 0))
	}
	missing := filepath.Join(t.TempDir(), "missing")
	dirs = append(dirs[:2], append([]string{missing}, dirs[2:]...)...)

	results := New().ExtractAll(context.Background(), dirs, nil, 2)
	require.Len(t, results, len(dirs))

	wantDC := []int{1, 2, 0, 3, 4, 5}
	for i, r := range results {
		require.Equal(t, dirs[i], r.Dir)
		if wantDC[i] == 0 {
			require.ErrorIs(t, r.Err, ErrKeyFileNotFound)
			require.Nil(t, r.Info)
			continue
		}
		require.NoError(t, r.Err, "dir %d", i)
		require.Equal(t, wantDC[i], r.Info.Slots[0].Credential.DC)
	}
}

func TestExtractAllCancelled(t *testing.T) {
	dir := buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(1)}}, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New().ExtractAll(ctx, []string{dir, dir}, nil, 0)
	for _, r := range results {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestExtractAllDefaultWorkers(t *testing.T) {
	var dirs []string
	for i := 0; i < 4; i++ {
		dirs = append(dirs, buildTestContainer(t, []Credential{{DC: 2, AuthKey: testKey(byte(i))}}, "", 0))
	}

	results := New().ExtractAll(context.Background(), dirs, nil, 0)
	for i, r := range results {
		require.NoError(t, r.Err, fmt.Sprintf("dir %d", i))
		require.Equal(t, testKey(byte(i)), r.Info.Slots[0].Credential.AuthKey)
	}
}
