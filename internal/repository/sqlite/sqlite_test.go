package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"teachablecam/internal/models"
	"teachablecam/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.ExampleRepository  = (*ExampleRepository)(nil)
	_ repository.SnapshotRepository = (*SnapshotRepository)(nil)
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")
	return db
}

func TestExampleRepository_RoundTrip(t *testing.T) {
	repo := NewExampleRepository(newTestDB(t))

	vectors := [][]float32{{0.5, -1.25, 3}, {0, 0, 1}, {1e-7, 2, -0.5}}
	for i, v := range vectors {
		id, err := repo.Insert(&models.Example{Class: i % 2, Features: v})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, ex := range all {
		assert.Equal(t, i%2, ex.Class)
		assert.Equal(t, vectors[i], ex.Features)
		assert.False(t, ex.CreatedAt.IsZero())
	}

	counts, err := repo.CountByClass()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 2, 1: 1}, counts)
}

func TestExampleRepository_Delete(t *testing.T) {
	repo := NewExampleRepository(newTestDB(t))

	for class := 0; class < 3; class++ {
		_, err := repo.Insert(&models.Example{Class: class, Features: []float32{float32(class), 1}})
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteByClass(1))
	counts, err := repo.CountByClass()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 2: 1}, counts)

	require.NoError(t, repo.DeleteAll())
	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDecodeFeatures_RejectsShortBlob(t *testing.T) {
	_, err := decodeFeatures([]byte{1, 2, 3}, 1)
	assert.Error(t, err)

	v, err := decodeFeatures(encodeFeatures([]float32{1.5, -2}), 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, v)
}

func TestSnapshotRepository(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := repo.Insert(&models.Snapshot{
			Filename:  name,
			Class:     i % 2,
			Label:     "class",
			Timestamp: now.Add(time.Duration(i) * time.Second),
			FilePath:  "/snapshots/" + name,
			FileSize:  int64(100 * (i + 1)),
		})
		require.NoError(t, err)
	}

	_, err := repo.Insert(&models.Snapshot{Filename: "a.jpg", Timestamp: now})
	assert.Error(t, err, "filenames are unique")

	class0, err := repo.GetByClass(0)
	require.NoError(t, err)
	require.Len(t, class0, 2)
	assert.Equal(t, "c.jpg", class0[0].Filename)
	assert.Equal(t, "a.jpg", class0[1].Filename)

	require.NoError(t, repo.DeleteAll())
	class0, err = repo.GetByClass(0)
	require.NoError(t, err)
	assert.Empty(t, class0)
}
