package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reportflow/pkg/agents"
	"reportflow/pkg/reportflow"
	"reportflow/pkg/reportflow/registry"
)

// terminalSendTimeout bounds how long the producer waits to deliver the
// terminal event to a consumer that has stopped reading.
const terminalSendTimeout = 5 * time.Second

// Bridge turns graph runs into event streams. One Bridge serves many
// concurrent runs; each run gets its own goroutine, channel, and state.
type Bridge struct {
	graph   *reportflow.CompiledGraph[agents.State]
	logger  *slog.Logger
	buffer  int
	ctxOpts []reportflow.ContextOption
	runOpts []reportflow.RunOption
	runs    *registry.Registry[string, *Run]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithBuffer sets the event channel capacity. A slow consumer
// backpressures the run once the buffer fills.
func WithBuffer(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithContextOptions passes execution-context options (provider pool,
// checkpoint store, logger) through to every run.
func WithContextOptions(opts ...reportflow.ContextOption) Option {
	return func(b *Bridge) { b.ctxOpts = append(b.ctxOpts, opts...) }
}

// WithRunOptions passes run options (max iterations, checkpointing,
// metrics) through to every run.
func WithRunOptions(opts ...reportflow.RunOption) Option {
	return func(b *Bridge) { b.runOpts = append(b.runOpts, opts...) }
}

// New creates a Bridge over a compiled pipeline graph.
func New(graph *reportflow.CompiledGraph[agents.State], opts ...Option) *Bridge {
	b := &Bridge{
		graph:  graph,
		logger: slog.Default(),
		buffer: 16,
		runs:   registry.New[string, *Run](),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run is a handle to one background pipeline run.
type Run struct {
	// ID identifies the run in logs and checkpoints.
	ID string

	// Events delivers the run's events in transition order. The channel
	// closes after the terminal event; a closed channel without a
	// preceding End or Error means the consumer cancelled and stopped
	// reading before the terminal frame could be delivered.
	Events <-chan Event

	// Cancel stops the run cooperatively. The run halts as soon as the
	// current provider call returns, then emits an Error terminal event.
	Cancel context.CancelFunc
}

// Start launches the pipeline for a task in the background and returns
// immediately with the run handle. The caller must drain Events until
// closure or call Cancel.
func (b *Bridge) Start(ctx context.Context, task string) *Run {
	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, b.buffer)

	run := &Run{ID: runID, Events: events, Cancel: cancel}
	b.runs.Register(runID, run)
	go b.drive(runCtx, runID, task, events)

	return run
}

// Lookup returns the handle of a run still in flight. Finished runs are
// forgotten once their event channel closes.
func (b *Bridge) Lookup(runID string) (*Run, bool) {
	return b.runs.Get(runID)
}

// ActiveRuns returns the number of runs currently in flight.
func (b *Bridge) ActiveRuns() int {
	return b.runs.Len()
}

// drive executes the graph and pumps events. It owns the events channel
// and is the only sender; closing it is the end-of-stream signal, always
// after the terminal event.
func (b *Bridge) drive(ctx context.Context, runID, task string, events chan<- Event) {
	defer close(events)
	defer b.runs.Delete(runID)

	logger := b.logger.With(slog.String("run_id", runID))

	ctxOpts := append([]reportflow.ContextOption{
		reportflow.WithContextRunID(runID),
		reportflow.WithLogger(logger),
	}, b.ctxOpts...)
	execCtx := reportflow.NewContext(ctx, ctxOpts...)

	observer := func(nodeID string, state any) {
		s, ok := state.(agents.State)
		if !ok {
			return
		}
		ev := Event{Kind: KindUpdate, Node: nodeID, State: s, Timestamp: time.Now()}
		select {
		case events <- ev:
		case <-ctx.Done():
			// Consumer is gone; the run will stop at the next
			// cancellation check.
		}
	}

	runOpts := append([]reportflow.RunOption{
		reportflow.WithRunID(runID),
		reportflow.WithRunLogger(logger),
		reportflow.WithStepObserver(observer),
	}, b.runOpts...)

	final, err := b.graph.Run(execCtx, agents.NewState(task), runOpts...)

	var terminal Event
	if err != nil {
		logger.Error("pipeline run failed", slog.String("error", err.Error()))
		terminal = Event{Kind: KindError, Err: err.Error(), Timestamp: time.Now()}
	} else {
		terminal = Event{Kind: KindEnd, State: final, Timestamp: time.Now()}
	}

	timer := time.NewTimer(terminalSendTimeout)
	defer timer.Stop()
	select {
	case events <- terminal:
	case <-timer.C:
		logger.Warn("terminal event dropped, consumer stopped reading",
			slog.String("kind", string(terminal.Kind)))
	}
}
