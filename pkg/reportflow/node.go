package reportflow

// END is the terminal node identifier.
// Use this as an edge target to indicate the pipeline should terminate.
const END = "__end__"

// NodeFunc is the signature for all step functions.
// Steps receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Steps should modify and return
// a new state value, not rely on pointer mutation. A step writes only the
// state fields it owns; provider and validation failures are stored as
// error-valued fields, not returned as errors, so routing can still
// advance past them. A returned error aborts the run.
//
// Example:
//
//	func researcher(ctx reportflow.Context, s agents.State) (agents.State, error) {
//	    s.ResearchData = append(s.ResearchData, agents.Ok("..."))
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
// Routers are pure: they read state and never mutate it.
//
// The router should return a valid node ID or reportflow.END.
// Returning an empty string or an unknown node ID will cause a runtime error.
// Returning the current node ID re-runs it; this re-entry is the one and
// only retry mechanism in the engine.
//
// Example:
//
//	func afterResearch(ctx reportflow.Context, s agents.State) string {
//	    if len(s.ResearchData) == 0 {
//	        return "researcher"
//	    }
//	    return "analyst"
//	}
type RouterFunc[S any] func(ctx Context, state S) string
