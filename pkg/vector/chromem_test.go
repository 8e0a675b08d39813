package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{})
	require.NoError(t, err)
	return store
}

func TestChromemStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, "laws", "patent-act", []float32{1, 0, 0}, "Patents Act 1970", map[string]string{"source": "patent.txt"}))
	require.NoError(t, store.Upsert(ctx, "laws", "trademark-act", []float32{0, 1, 0}, "Trade Marks Act 1999", nil))
	require.NoError(t, store.Upsert(ctx, "laws", "copyright-act", []float32{0, 0, 1}, "Copyright Act 1957", nil))

	results, err := store.Search(ctx, "laws", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "patent-act", results[0].ID)
	assert.Equal(t, "Patents Act 1970", results[0].Content)
	assert.Equal(t, "patent.txt", results[0].Metadata["source"])
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemStore_SearchClampsTopK(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, "laws", "only", []float32{1, 0, 0}, "single document", nil))

	results, err := store.Search(ctx, "laws", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].ID)
}

func TestChromemStore_SearchEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "empty", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_Count(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	count, err := store.Count(ctx, "laws")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, store.Upsert(ctx, "laws", "a", []float32{1, 0}, "first", nil))
	require.NoError(t, store.Upsert(ctx, "laws", "b", []float32{0, 1}, "second", nil))

	count, err = store.Count(ctx, "laws")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChromemStore_EmptyCollectionName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Upsert(ctx, "", "id", []float32{1}, "content", nil)
	require.Error(t, err)

	_, err = store.Search(ctx, "", []float32{1}, 1)
	require.Error(t, err)
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db")

	store, err := NewChromemStore(ChromemConfig{PersistPath: path})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "laws", "patent-act", []float32{1, 0, 0}, "Patents Act 1970", nil))

	// A fresh store over the same path sees the document.
	reopened, err := NewChromemStore(ChromemConfig{PersistPath: path})
	require.NoError(t, err)

	count, err := reopened.Count(ctx, "laws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := reopened.Search(ctx, "laws", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Patents Act 1970", results[0].Content)
}
