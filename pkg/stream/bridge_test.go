package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportflow/pkg/agents"
	"reportflow/pkg/provider"
	"reportflow/pkg/reportflow"
)

const analystJSON = `{"key_insights": "a", "comparative_analysis": "b", "narrative": "c"}`

// queuedProvider returns canned responses in order, blocking on gate (if
// set) before every response.
type queuedProvider struct {
	responses []string
	err       error
	gate      chan struct{}
	calls     int
}

func (p *queuedProvider) Name() string { return "fake" }

func (p *queuedProvider) Complete(ctx context.Context, _ provider.Request) (string, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	i := p.calls - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

func newTestBridge(t *testing.T, prov provider.Provider, opts ...Option) *Bridge {
	t.Helper()
	graph, err := agents.BuildGraph(&agents.Steps{})
	require.NoError(t, err)

	pool := provider.NewPool([]provider.Provider{prov})
	opts = append([]Option{
		WithContextOptions(reportflow.WithProviders(pool)),
	}, opts...)
	return New(graph, opts...)
}

// collect drains the run's event channel to closure.
func collect(t *testing.T, run *Run) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-run.Events:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func TestBridge_SuccessfulRun(t *testing.T) {
	prov := &queuedProvider{responses: []string{"findings", analystJSON, "the report"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")
	defer run.Cancel()

	assert.NotEmpty(t, run.ID)

	events := collect(t, run)
	require.Len(t, events, 4)

	assert.Equal(t, KindUpdate, events[0].Kind)
	assert.Equal(t, agents.NodeResearcher, events[0].Node)
	assert.Equal(t, KindUpdate, events[1].Kind)
	assert.Equal(t, agents.NodeAnalyst, events[1].Node)
	assert.Equal(t, KindUpdate, events[2].Kind)
	assert.Equal(t, agents.NodeReportWriter, events[2].Node)

	terminal := events[3]
	assert.Equal(t, KindEnd, terminal.Kind)
	require.NotNil(t, terminal.State.Report)
	assert.Equal(t, "the report", terminal.State.Report.Content)
}

func TestBridge_ExactlyOneTerminalEvent(t *testing.T) {
	prov := &queuedProvider{responses: []string{"findings", analystJSON, "the report"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")
	events := collect(t, run)

	terminals := 0
	for _, ev := range events {
		if ev.Kind == KindEnd || ev.Kind == KindError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Contains(t, []Kind{KindEnd, KindError}, events[len(events)-1].Kind,
		"terminal event comes last")
}

func TestBridge_UpdatesCarryProgressiveState(t *testing.T) {
	prov := &queuedProvider{responses: []string{"findings", analystJSON, "the report"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")
	events := collect(t, run)
	require.Len(t, events, 4)

	// After researcher: research present, analysis absent.
	assert.Len(t, events[0].State.ResearchData, 1)
	assert.Nil(t, events[0].State.Analysis)

	// After analyst: analysis present, report absent.
	assert.NotNil(t, events[1].State.Analysis)
	assert.Nil(t, events[1].State.Report)

	// After report writer: everything present.
	assert.NotNil(t, events[2].State.Report)
}

func TestBridge_ErrorTerminalOnFatalStep(t *testing.T) {
	// A graph whose only node returns a hard error.
	g := reportflow.NewGraph[agents.State]()
	g.AddNode("broken", func(_ reportflow.Context, s agents.State) (agents.State, error) {
		return s, errors.New("hard failure")
	})
	g.AddEdge("broken", reportflow.END)
	g.SetEntry("broken")
	graph, err := g.Compile()
	require.NoError(t, err)

	bridge := New(graph)
	run := bridge.Start(context.Background(), "task")
	events := collect(t, run)

	require.Len(t, events, 1)
	assert.Equal(t, KindError, events[0].Kind)
	assert.Contains(t, events[0].Err, "hard failure")
}

func TestBridge_CancelEmitsErrorTerminal(t *testing.T) {
	prov := &queuedProvider{gate: make(chan struct{}), responses: []string{"findings"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")
	run.Cancel()

	events := collect(t, run)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, KindError, last.Kind)
	assert.NotEmpty(t, last.Err)
}

func TestBridge_ChannelClosesAfterTerminal(t *testing.T) {
	prov := &queuedProvider{responses: []string{"findings", analystJSON, "the report"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")
	collect(t, run)

	_, open := <-run.Events
	assert.False(t, open, "channel must be closed after the terminal event")
}

func TestBridge_ConcurrentRunsIsolated(t *testing.T) {
	provA := &queuedProvider{responses: []string{"findings", analystJSON, "report A"}}
	provB := &queuedProvider{responses: []string{"findings", analystJSON, "report B"}}

	bridgeA := newTestBridge(t, provA)
	bridgeB := newTestBridge(t, provB)

	runA := bridgeA.Start(context.Background(), "task A")
	runB := bridgeB.Start(context.Background(), "task B")

	eventsA := collect(t, runA)
	eventsB := collect(t, runB)

	assert.NotEqual(t, runA.ID, runB.ID)
	assert.Equal(t, "report A", eventsA[len(eventsA)-1].State.Report.Content)
	assert.Equal(t, "report B", eventsB[len(eventsB)-1].State.Report.Content)
}

func TestBridge_TracksActiveRuns(t *testing.T) {
	prov := &queuedProvider{gate: make(chan struct{}), responses: []string{"findings", analystJSON, "report"}}
	bridge := newTestBridge(t, prov)

	run := bridge.Start(context.Background(), "write about rates")

	got, ok := bridge.Lookup(run.ID)
	require.True(t, ok)
	assert.Same(t, run, got)
	assert.Equal(t, 1, bridge.ActiveRuns())

	close(prov.gate)
	collect(t, run)

	_, ok = bridge.Lookup(run.ID)
	assert.False(t, ok, "finished runs are forgotten")
	assert.Equal(t, 0, bridge.ActiveRuns())
}

func TestEvent_Payload(t *testing.T) {
	report := agents.Ok("the report")
	state := agents.State{
		Task:         "t",
		ResearchData: []agents.Unit{agents.Ok("findings")},
		Report:       &report,
	}

	update := Event{Kind: KindUpdate, Node: agents.NodeResearcher, State: state}
	payload := update.Payload()
	inner, ok := payload[agents.NodeResearcher].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, state.ResearchData, inner["research_data"])

	end := Event{Kind: KindEnd, State: state}
	assert.Equal(t, map[string]any{"report": report}, end.Payload())

	fail := Event{Kind: KindError, Err: "boom"}
	assert.Equal(t, map[string]any{"error": "boom"}, fail.Payload())
}
