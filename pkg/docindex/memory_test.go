package docindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_SearchRanksByOverlap(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{
		"interest rates and inflation outlook",
		"inflation only",
		"gardening tips for spring",
	}))

	results, err := idx.Search(ctx, "docs", "interest rates inflation", 10)

	require.NoError(t, err)
	require.Len(t, results, 2, "zero-relevance documents are omitted")
	assert.Equal(t, "interest rates and inflation outlook", results[0].Text)
	assert.Equal(t, "inflation only", results[1].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryIndex_TopKCaps(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{
		"rates one", "rates two", "rates three", "rates four",
	}))

	results, err := idx.Search(ctx, "docs", "rates", 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryIndex_StableOrderAmongEqualScores(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{
		"rates alpha", "rates beta", "rates gamma",
	}))

	results, err := idx.Search(ctx, "docs", "rates", 10)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "rates alpha", results[0].Text)
	assert.Equal(t, "rates beta", results[1].Text)
	assert.Equal(t, "rates gamma", results[2].Text)
}

func TestMemoryIndex_CollectionsIsolated(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "a", []string{"rates in a"}))
	require.NoError(t, idx.AddDocuments(ctx, "b", []string{"rates in b"}))

	results, err := idx.Search(ctx, "a", "rates", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rates in a", results[0].Text)
}

func TestMemoryIndex_EmptyTextsSkipped(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{"", "real doc", ""}))

	assert.Equal(t, 1, idx.Len("docs"))
}

func TestMemoryIndex_TopKZero(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, "docs", []string{"rates"}))

	results, err := idx.Search(ctx, "docs", "rates", 0)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_Closed(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Close())

	err := idx.AddDocuments(context.Background(), "docs", []string{"x"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = idx.Search(context.Background(), "docs", "x", 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestScore(t *testing.T) {
	terms := termSet("interest rates inflation")

	assert.InDelta(t, 1.0, score(terms, "Interest RATES and inflation!"), 1e-9)
	assert.InDelta(t, 1.0/3.0, score(terms, "inflation report"), 1e-9)
	assert.Zero(t, score(terms, "nothing relevant"))
	assert.Zero(t, score(termSet(""), "anything"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"q3", "2025", "revenue", "up"}, tokenize("Q3-2025 Revenue: UP!"))
	assert.Empty(t, tokenize("!!! ..."))
}
