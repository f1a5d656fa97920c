package token

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureInitializedCreatesSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "passwd")
	store := NewSeedStore(path)

	created, err := store.EnsureInitialized()
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(SeedSize*SeedCount), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwd")
	store := NewSeedStore(path)

	created, err := store.EnsureInitialized()
	require.NoError(t, err)
	require.True(t, created)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	created, err = NewSeedStore(path).EnsureInitialized()
	require.NoError(t, err)
	assert.False(t, created)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing seed file must never be regenerated")
}

func TestLoadRejectsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwd")
	require.NoError(t, os.WriteFile(path, make([]byte, SeedSize*SeedCount-1), 0o600))

	store := NewSeedStore(path)
	assert.ErrorIs(t, store.Load(), ErrSeedUnavailable)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	store := NewSeedStore(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, store.Load(), ErrSeedUnavailable)
}

func TestSeedSlices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwd")
	seeds := make([]byte, SeedSize*SeedCount)
	for i := range seeds {
		seeds[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, seeds, 0o600))

	store := NewSeedStore(path)
	for i := 0; i < SeedCount; i++ {
		seed, err := store.Seed(i)
		require.NoError(t, err)
		require.Len(t, seed, SeedSize)
		assert.Equal(t, byte(i*SeedSize), seed[0])
	}
}
