package reportflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompile_Valid compiles a minimal linear graph.
func TestCompile_Valid(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.Equal(t, "a", compiled.EntryPoint())
}

// TestCompile_NoEntryPoint fails when SetEntry was never called.
func TestCompile_NoEntryPoint(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

// TestCompile_EntryNotFound fails when the entry references a missing node.
func TestCompile_EntryNotFound(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("missing").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Contains(t, err.Error(), "missing")
}

// TestCompile_EdgeTargetNotFound fails on an edge to a missing node.
func TestCompile_EdgeTargetNotFound(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

// TestCompile_EdgeSourceNotFound fails on an edge from a missing node.
func TestCompile_EdgeSourceNotFound(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		AddEdge("ghost", "a").
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_ConditionalEdgeSourceNotFound fails on a router attached
// to a missing node.
func TestCompile_ConditionalEdgeSourceNotFound(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		AddConditionalEdge("ghost", func(_ Context, s Counter) string { return END }).
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_NoPathToEnd fails when no edge chain reaches END.
func TestCompile_NoPathToEnd(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPathToEnd)
}

// TestCompile_ConditionalEdgeAssumedToReachEnd compiles a graph whose
// only way out is a router, since routers may return END at runtime.
func TestCompile_ConditionalEdgeAssumedToReachEnd(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddConditionalEdge("a", func(_ Context, s Counter) string {
			if s.Value > 2 {
				return END
			}
			return "a"
		}).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.True(t, compiled.IsConditional("a"))
}

// TestCompile_MultipleErrors joins all validation failures.
func TestCompile_MultipleErrors(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompiledGraph_Introspection checks the read-only accessors.
func TestCompiledGraph_Introspection(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	assert.True(t, compiled.HasNode("a"))
	assert.False(t, compiled.HasNode("ghost"))
	assert.ElementsMatch(t, []string{"a", "b"}, compiled.NodeIDs())
	assert.Equal(t, []string{"b"}, compiled.Successors("a"))
	assert.Equal(t, []string{"a"}, compiled.Predecessors("b"))
}
