package docindex

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory Index. Documents do not survive process
// restarts; use SQLiteIndex when they must.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string][]string
	closed      bool
}

// Compile-time interface check.
var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string][]string),
	}
}

// AddDocuments implements Index.
func (m *MemoryIndex) AddDocuments(_ context.Context, collection string, texts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, t := range texts {
		if t == "" {
			continue
		}
		m.collections[collection] = append(m.collections[collection], t)
	}
	return nil
}

// Search implements Index.
func (m *MemoryIndex) Search(_ context.Context, collection, query string, topK int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if topK <= 0 {
		return nil, nil
	}

	queryTerms := termSet(query)
	var results []Result
	for _, doc := range m.collections[collection] {
		if s := score(queryTerms, doc); s > 0 {
			results = append(results, Result{Text: doc, Score: s})
		}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of documents in a collection. Test helper.
func (m *MemoryIndex) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Close implements Index.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
