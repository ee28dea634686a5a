package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistry_RegisterGet stores and retrieves values.
func TestRegistry_RegisterGet(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

// TestRegistry_RegisterReplaces overwrites existing keys.
func TestRegistry_RegisterReplaces(t *testing.T) {
	r := New[string, string]()
	r.Register("k", "old")
	r.Register("k", "new")

	v, _ := r.Get("k")
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, r.Len())
}

// TestRegistry_HasDelete round-trips presence.
func TestRegistry_HasDelete(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)

	assert.True(t, r.Has("a"))
	r.Delete("a")
	assert.False(t, r.Has("a"))

	// Deleting again is a no-op.
	r.Delete("a")
	assert.Equal(t, 0, r.Len())
}

// TestRegistry_Keys returns every registered key.
func TestRegistry_Keys(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("c", 3)

	assert.ElementsMatch(t, []string{"a", "b", "c"}, r.Keys())
}

// TestRegistry_Range visits all entries and honors early stop.
func TestRegistry_Range(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	visited := map[string]int{}
	r.Range(func(k string, v int) bool {
		visited[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, visited)

	count := 0
	r.Range(func(string, int) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

// TestRegistry_Range_MutationSafe allows Register/Delete inside fn.
func TestRegistry_Range_MutationSafe(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	r.Range(func(k string, _ int) bool {
		r.Delete(k)
		r.Register(k+"-copy", 0)
		return true
	})

	assert.True(t, r.Has("a-copy"))
	assert.True(t, r.Has("b-copy"))
}

// TestRegistry_GetOrCreate calls the factory once per key.
func TestRegistry_GetOrCreate(t *testing.T) {
	r := New[string, *int]()

	calls := 0
	factory := func() *int {
		calls++
		v := 42
		return &v
	}

	first := r.GetOrCreate("k", factory)
	second := r.GetOrCreate("k", factory)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

// TestRegistry_ConcurrentAccess exercises the lock paths under race.
func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(n, n)
			r.Get(n)
			r.GetOrCreate(n%4, func() int { return n })
			r.Keys()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, r.Len())
}
