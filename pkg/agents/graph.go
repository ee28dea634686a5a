// Package agents defines the report pipeline: the state threaded
// through it, the three step functions, and the graph wiring them
// together.
package agents

import (
	"reportflow/pkg/reportflow"
)

// BuildGraph wires the report pipeline:
//
//	researcher -> analyst -> report_writer -> END
//
// with two self-loops: researcher re-runs while ResearchData is empty
// and analyst re-runs while Analysis is unset. Presence of the field,
// not success of its content, drives routing; re-entry is the only
// retry mechanism.
func BuildGraph(steps *Steps) (*reportflow.CompiledGraph[State], error) {
	g := reportflow.NewGraph[State]()

	g.AddNode(NodeResearcher, steps.Researcher)
	g.AddNode(NodeAnalyst, steps.Analyst)
	g.AddNode(NodeReportWriter, steps.ReportWriter)

	g.AddConditionalEdge(NodeResearcher, func(_ reportflow.Context, s State) string {
		if len(s.ResearchData) == 0 {
			return NodeResearcher
		}
		return NodeAnalyst
	})
	g.AddConditionalEdge(NodeAnalyst, func(_ reportflow.Context, s State) string {
		if s.Analysis == nil {
			return NodeAnalyst
		}
		return NodeReportWriter
	})
	g.AddEdge(NodeReportWriter, reportflow.END)

	g.SetEntry(NodeResearcher)
	return g.Compile()
}
