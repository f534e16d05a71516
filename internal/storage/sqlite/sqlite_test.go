package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/roomgraph/internal/storage"
	"github.com/cory-johannsen/roomgraph/internal/storage/sqlite"
	"github.com/cory-johannsen/roomgraph/internal/storage/storagetest"
)

func openTemp(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.GraphRepository {
		return openTemp(t)
	})
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "graphs.db")
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphs.db")
	ctx := context.Background()
	snap := storagetest.SampleGraph(t, "g1", "Keep").Snapshot()

	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveGraph(ctx, snap))
	require.NoError(t, repo.Close())

	repo, err = sqlite.Open(path)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSaveGraph_CancelledContext(t *testing.T) {
	repo := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.SaveGraph(ctx, storagetest.SampleGraph(t, "g1", "First").Snapshot())
	assert.Error(t, err)

	_, err = repo.LoadGraph(context.Background(), "g1")
	assert.ErrorIs(t, err, storage.ErrGraphNotFound)
}
