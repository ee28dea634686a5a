// Package stream bridges a background pipeline run to an ordered event
// stream. The bridge drives one graph run per call and emits one event
// per node transition, ending with exactly one terminal event.
package stream

import (
	"time"

	"reportflow/pkg/agents"
)

// Kind tags an event. The tag doubles as the wire-frame event name.
type Kind string

const (
	// KindUpdate reports one completed node transition.
	KindUpdate Kind = "update"

	// KindEnd is the normal terminal event, carrying the final report.
	KindEnd Kind = "end"

	// KindError is the abnormal terminal event. A run emits either one
	// End or one Error, never both, never neither.
	KindError Kind = "error"
)

// Event is one frame of a run's stream. Events are emitted in the exact
// order their transitions occurred; the consumer owns each event after
// delivery and the bridge never retains them.
type Event struct {
	Kind      Kind
	Node      string // set for updates
	State     agents.State
	Err       string // set for errors
	Timestamp time.Time
}

// Payload returns the wire body for the event: update frames carry the
// field the node just wrote keyed by node name, end frames carry exactly
// the report, error frames carry the message.
func (e Event) Payload() map[string]any {
	switch e.Kind {
	case KindUpdate:
		return map[string]any{e.Node: nodeField(e.Node, e.State)}
	case KindEnd:
		var report any
		if e.State.Report != nil {
			report = *e.State.Report
		}
		return map[string]any{"report": report}
	case KindError:
		return map[string]any{"error": e.Err}
	}
	return nil
}

// nodeField picks the state field owned by a node.
func nodeField(node string, s agents.State) any {
	switch node {
	case agents.NodeResearcher:
		return map[string]any{"research_data": s.ResearchData}
	case agents.NodeAnalyst:
		return map[string]any{"analysis": s.Analysis}
	case agents.NodeReportWriter:
		return map[string]any{"report": s.Report}
	}
	return nil
}
