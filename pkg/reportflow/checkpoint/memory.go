package checkpoint

import (
	"sort"
	"sync"
	"time"
)

// memoryRun holds one pipeline run's checkpoints, keyed by node, plus a
// monotonic counter so List can report them in save order even after a
// self-loop overwrites a node's entry.
type memoryRun struct {
	entries map[string]memoryEntry
	lastSeq int
}

type memoryEntry struct {
	data    []byte
	seq     int
	savedAt time.Time
}

// MemoryStore keeps checkpoints in process memory. It backs tests and
// ad-hoc runs where surviving a restart does not matter; use SQLiteStore
// when it does.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]*memoryRun
	closed bool
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*memoryRun),
	}
}

// Save implements Store. Saving a node that already has a checkpoint
// replaces it and advances its sequence, so a re-entered node's latest
// state wins.
func (m *MemoryStore) Save(runID, nodeID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	run := m.runs[runID]
	if run == nil {
		run = &memoryRun{entries: make(map[string]memoryEntry)}
		m.runs[runID] = run
	}
	run.lastSeq++

	// Keep our own copy; the executor reuses its buffer.
	stored := make([]byte, len(data))
	copy(stored, data)

	run.entries[nodeID] = memoryEntry{
		data:    stored,
		seq:     run.lastSeq,
		savedAt: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID, nodeID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	run := m.runs[runID]
	if run == nil {
		return nil, ErrNotFound
	}
	entry, ok := run.entries[nodeID]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// List implements Store. Checkpoints come back in save order; an
// unknown run lists as empty, not as an error.
func (m *MemoryStore) List(runID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	run := m.runs[runID]
	if run == nil {
		return nil, nil
	}

	infos := make([]Info, 0, len(run.entries))
	for nodeID, entry := range run.entries {
		infos = append(infos, Info{
			RunID:     runID,
			NodeID:    nodeID,
			Sequence:  entry.seq,
			Timestamp: entry.savedAt,
			Size:      int64(len(entry.data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store. Deleting an absent checkpoint is a no-op.
func (m *MemoryStore) Delete(runID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	if run := m.runs[runID]; run != nil {
		delete(run.entries, nodeID)
	}
	return nil
}

// DeleteRun implements Store, dropping every checkpoint for the run.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	delete(m.runs, runID)
	return nil
}

// Close implements Store. All checkpoints are discarded.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the total number of checkpoints across all runs. Test
// helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, run := range m.runs {
		count += len(run.entries)
	}
	return count
}
