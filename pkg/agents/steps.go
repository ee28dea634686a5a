package agents

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reportflow/pkg/docindex"
	"reportflow/pkg/provider"
	"reportflow/pkg/reportflow"
	"reportflow/pkg/sanitize"
)

// Node identifiers for the report pipeline.
const (
	NodeResearcher   = "researcher"
	NodeAnalyst      = "analyst"
	NodeReportWriter = "report_writer"
)

// DefaultCollection is the document collection the researcher searches
// when none is configured.
const DefaultCollection = "research_docs"

// ErrNoProviderPool is returned by steps when the execution context has
// no provider pool attached. This is a wiring mistake, not a provider
// failure, so it aborts the run.
var ErrNoProviderPool = errors.New("agents: execution context has no provider pool")

// Steps builds the three pipeline step functions. The zero value works;
// fields add optional behavior.
type Steps struct {
	// Index, when set, lets the researcher ground its prompt in stored
	// documents relevant to the task.
	Index docindex.Index

	// Collection is the document collection to search.
	// Defaults to DefaultCollection.
	Collection string

	// TopK caps how many documents augment the research prompt.
	// Defaults to 3.
	TopK int

	// Preferred names the provider tried first on every invocation.
	// Empty means plain registration order.
	Preferred string
}

func (s *Steps) collection() string {
	if s.Collection == "" {
		return DefaultCollection
	}
	return s.Collection
}

func (s *Steps) topK() int {
	if s.TopK <= 0 {
		return 3
	}
	return s.TopK
}

func (s *Steps) invoke(ctx reportflow.Context, prompt string) (string, error) {
	pool := ctx.Providers()
	if pool == nil {
		return "", ErrNoProviderPool
	}
	result, err := pool.InvokePreferred(ctx, provider.Request{Prompt: prompt}, s.Preferred)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// Researcher collects findings for the task, grounded in any indexed
// reference documents. Both success and failure append a unit, since an
// empty ResearchData would route the graph straight back here.
//
// Findings are stored verbatim. Only the final report gets normalized;
// research units feed later prompts, where cleanup would lose nothing
// but could mangle deliberate formatting.
func (s *Steps) Researcher(ctx reportflow.Context, state State) (State, error) {
	prompt := s.researchPrompt(ctx, state)

	text, err := s.invoke(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrNoProviderPool) {
			return state, err
		}
		ctx.Logger().Error("research invocation failed", slog.String("error", err.Error()))
		state.ResearchData = append(state.ResearchData, Errf("research failed: %v", err))
		return state, nil
	}

	state.ResearchData = append(state.ResearchData, Ok(text))
	return state, nil
}

func (s *Steps) researchPrompt(ctx reportflow.Context, state State) string {
	var sb strings.Builder
	sb.WriteString("You are a researcher tasked with collecting insights for this topic:\n\n")
	sb.WriteString(state.Task)
	sb.WriteString("\n\n")

	if refs := s.references(ctx, state.Task); refs != "" {
		sb.WriteString("Reference material from the document index (use it where relevant, ignore it where not):\n\n")
		sb.WriteString(refs)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Only return the findings in clean, well-formatted Markdown.\n")
	sb.WriteString("Avoid repeating your task or tool commands. Do not include code blocks or planning steps.\n")
	sb.WriteString("Organize results into headings and bullet points. Avoid verbose filler.")
	return sb.String()
}

// references fetches indexed documents relevant to the task. Retrieval
// problems degrade to an unaugmented prompt rather than failing the step.
func (s *Steps) references(ctx reportflow.Context, task string) string {
	if s.Index == nil {
		return ""
	}
	results, err := s.Index.Search(ctx, s.collection(), task, s.topK())
	if err != nil {
		ctx.Logger().Warn("document search failed, continuing without references",
			slog.String("error", err.Error()))
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Analyst turns the research into a structured analysis. The contract
// with the model is strict JSON with three required keys; extraction
// degrades to partial or unparseable results instead of discarding the
// output.
func (s *Steps) Analyst(ctx reportflow.Context, state State) (State, error) {
	var sb strings.Builder
	sb.WriteString("You are a financial analyst. Analyze the following research data.\n")
	sb.WriteString("Return ONLY a JSON object with exactly these string fields: ")
	sb.WriteString(`"key_insights", "comparative_analysis", "narrative".` + "\n")
	sb.WriteString("No code fences, no commentary outside the JSON object.\n")
	sb.WriteString("Research Data:\n")
	sb.WriteString(state.ResearchText())

	text, err := s.invoke(ctx, sb.String())
	if err != nil {
		if errors.Is(err, ErrNoProviderPool) {
			return state, err
		}
		ctx.Logger().Error("analysis invocation failed", slog.String("error", err.Error()))
		state.Analysis = &AnalysisUnit{Err: fmt.Sprintf("analysis failed: %v", err)}
		return state, nil
	}

	ex := sanitize.ExtractStructured(text)
	if ex.Outcome != sanitize.Valid {
		ctx.Logger().Warn("analyst output did not match contract",
			slog.String("outcome", ex.Outcome.String()),
			slog.String("warning", ex.Warning))
	}
	state.Analysis = &AnalysisUnit{
		Outcome:  ex.Outcome.String(),
		Analysis: ex.Analysis,
		Warning:  ex.Warning,
		Raw:      ex.Raw,
	}
	return state, nil
}

// ReportWriter composes the final Markdown report from the analysis and
// research data.
func (s *Steps) ReportWriter(ctx reportflow.Context, state State) (State, error) {
	var sb strings.Builder
	sb.WriteString("You are a report writer. Using the following analysis and research data, generate a professional report in clean Markdown.\n")
	sb.WriteString("Your report must include: Executive Summary, Key Findings, Comparative Analysis, and Conclusion.\n")
	sb.WriteString("Avoid extra spacing, repeated sections, unnecessary indentation, or tool output. Return plain Markdown.\n")
	sb.WriteString("Keep the formatting consistent and clean. No code blocks, no triple backticks.\n")
	sb.WriteString("Analysis:\n")
	sb.WriteString(state.Analysis.Text())
	sb.WriteString("\nResearch Data:\n")
	sb.WriteString(state.ResearchText())

	text, err := s.invoke(ctx, sb.String())
	if err != nil {
		if errors.Is(err, ErrNoProviderPool) {
			return state, err
		}
		ctx.Logger().Error("report invocation failed", slog.String("error", err.Error()))
		report := Errf("report generation failed: %v", err)
		state.Report = &report
		return state, nil
	}

	report := Ok(sanitize.NormalizeProse(text))
	state.Report = &report
	return state, nil
}
