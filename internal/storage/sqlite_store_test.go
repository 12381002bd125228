package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreUpserts(t *testing.T) {
	store, err := NewStore(TypeSQLite, Options{SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "one"))
	require.NoError(t, store.Set(ctx, "k", "two"))

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", got)

	_, found, err = store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "citypulse.sqlite")
	ctx := context.Background()

	store, err := openSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, SelectedCityKey, "Sydney"))
	require.NoError(t, store.Close())

	reopened, err := openSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.Get(ctx, SelectedCityKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Sydney", got)
}
