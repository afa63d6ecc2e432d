package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwell/backend/internal/logging"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabs.db")
	store, err := New(path, logging.NewDefault())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestLoadAllFirstRun(t *testing.T) {
	store, _ := newTestStore(t)

	entries, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 5, "/home/user/project-x"))
	require.NoError(t, store.Put(ctx, 9, "/var/data/notes"))

	entries, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{
		5: "/home/user/project-x",
		9: "/var/data/notes",
	}, entries)
}

func TestPutUpserts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 1, "/old/path"))
	require.NoError(t, store.Put(ctx, 1, "/new/path"))

	entries, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "/new/path"}, entries)
}

func TestRemove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 5, "X"))
	require.NoError(t, store.Remove(ctx, 5))

	entries, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, entries, 5)
}

func TestRemoveAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)

	assert.NoError(t, store.Remove(context.Background(), 404))
}

func TestSurvivesRestart(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 5, "X"))
	require.NoError(t, store.Close())

	// Simulated restart: a fresh store over the same file.
	reopened, err := New(path, logging.NewDefault())
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{5: "X"}, entries)

	require.NoError(t, reopened.Remove(ctx, 5))
	entries, err = reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
