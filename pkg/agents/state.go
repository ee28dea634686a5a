package agents

import (
	"fmt"
	"strings"

	"reportflow/pkg/sanitize"
)

// Unit is a step result carried as a value: either content or an error
// message. Errors are values so the graph can still route past them; a
// failed research pass still counts as a present result.
type Unit struct {
	Content string `json:"content,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Ok wraps successful content.
func Ok(content string) Unit {
	return Unit{Content: content}
}

// Errf wraps a formatted error message.
func Errf(format string, args ...any) Unit {
	return Unit{Err: fmt.Sprintf(format, args...)}
}

// IsErr reports whether the unit carries an error instead of content.
func (u Unit) IsErr() bool {
	return u.Err != ""
}

// Text returns the renderable form: content, or the error message
// marked as such.
func (u Unit) Text() string {
	if u.IsErr() {
		return "[error] " + u.Err
	}
	return u.Content
}

// AnalysisUnit is the analyst step's result. Exactly one of two cases:
// Err set (every provider failed), or Outcome set with the extraction
// result. Partial and unparseable extractions keep Warning and Raw so
// nothing the model produced is lost.
type AnalysisUnit struct {
	Outcome  string            `json:"outcome,omitempty"`
	Analysis sanitize.Analysis `json:"analysis"`
	Warning  string            `json:"warning,omitempty"`
	Raw      string            `json:"raw,omitempty"`
	Err      string            `json:"error,omitempty"`
}

// IsErr reports whether the analyst's provider call failed outright.
func (a *AnalysisUnit) IsErr() bool {
	return a != nil && a.Err != ""
}

// Text renders the analysis as Markdown sections for the report prompt.
func (a *AnalysisUnit) Text() string {
	if a == nil {
		return ""
	}
	if a.Err != "" {
		return "[error] " + a.Err
	}
	if a.Outcome == sanitize.Unparseable.String() {
		return a.Raw
	}
	var sb strings.Builder
	sb.WriteString("## Key Insights\n\n")
	sb.WriteString(a.Analysis.KeyInsights)
	sb.WriteString("\n\n## Comparative Analysis\n\n")
	sb.WriteString(a.Analysis.ComparativeAnalysis)
	sb.WriteString("\n\n## Narrative\n\n")
	sb.WriteString(a.Analysis.Narrative)
	return sb.String()
}

// State is the single record threaded through the graph. Each node
// writes only its own field: researcher appends to ResearchData, analyst
// sets Analysis, report writer sets Report. Task never changes after
// the run starts.
//
// State must round-trip through JSON unchanged, since checkpoints and
// stream events serialize it.
type State struct {
	Task         string        `json:"task"`
	ResearchData []Unit        `json:"research_data"`
	Analysis     *AnalysisUnit `json:"analysis,omitempty"`
	Report       *Unit         `json:"report,omitempty"`
}

// NewState creates the initial state for a task.
func NewState(task string) State {
	return State{Task: task}
}

// ResearchText joins all research units for inclusion in a prompt.
func (s State) ResearchText() string {
	parts := make([]string, 0, len(s.ResearchData))
	for _, u := range s.ResearchData {
		parts = append(parts, u.Text())
	}
	return strings.Join(parts, "\n\n")
}
