package docindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteIndex(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documents.db")
	idx, err := NewSQLiteIndex(path)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx, path
}

func TestSQLiteIndex_SearchRanksByOverlap(t *testing.T) {
	idx, _ := newTestSQLiteIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{
		"interest rates and inflation outlook",
		"inflation only",
		"gardening tips for spring",
	}))

	results, err := idx.Search(ctx, "docs", "interest rates inflation", 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "interest rates and inflation outlook", results[0].Text)
	assert.Equal(t, "inflation only", results[1].Text)
}

func TestSQLiteIndex_CollectionsIsolated(t *testing.T) {
	idx, _ := newTestSQLiteIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "a", []string{"rates in a"}))
	require.NoError(t, idx.AddDocuments(ctx, "b", []string{"rates in b"}))

	results, err := idx.Search(ctx, "b", "rates", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rates in b", results[0].Text)
}

func TestSQLiteIndex_EmptyTextsSkipped(t *testing.T) {
	idx, _ := newTestSQLiteIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{"", "real rates doc"}))

	results, err := idx.Search(ctx, "docs", "rates", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSQLiteIndex_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	idx, err := NewSQLiteIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{"interest rates outlook"}))
	require.NoError(t, idx.Close())

	reopened, err := NewSQLiteIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "docs", "rates", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "interest rates outlook", results[0].Text)
}

func TestSQLiteIndex_Closed(t *testing.T) {
	idx, _ := newTestSQLiteIndex(t)
	require.NoError(t, idx.Close())

	err := idx.AddDocuments(context.Background(), "docs", []string{"x"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = idx.Search(context.Background(), "docs", "x", 1)
	assert.ErrorIs(t, err, ErrClosed)

	// Double close is a no-op.
	assert.NoError(t, idx.Close())
}
