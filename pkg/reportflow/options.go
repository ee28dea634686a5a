package reportflow

import (
	"log/slog"

	"reportflow/pkg/reportflow/checkpoint"
	"reportflow/pkg/reportflow/observability"
)

// StepObserver is called after every successful node execution with the
// node ID and the updated state. The state is passed as any; observers
// type-assert to the concrete state type.
//
// Observers are invoked synchronously between node executions, in the
// exact order the transitions occurred. A slow observer slows the run;
// it never reorders events.
type StepObserver func(nodeID string, state any)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int

	// Observability
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	// Checkpointing
	checkpointStore        checkpoint.Store
	runID                  string
	sequence               int
	checkpointFailureFatal bool

	// Transition observation
	stepObserver StepObserver
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 1000,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 1000
//
// Self-loop edges are the engine's only retry mechanism, so a graph can
// re-enter the same node indefinitely. If a run exceeds this limit, Run
// returns a MaxIterationsError instead of looping forever.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, reportflow.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunLogger sets the logger used for run-level log records.
// When unset, run-level logging is skipped; per-node logging still uses
// the Context logger.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the run.
// Default: observability.NoopMetrics{}.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry span creation for the run and each node.
// The span manager uses the global OTel tracer provider.
func WithTracing() RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = true
		c.spans = observability.NewSpanManager()
	}
}

// WithCheckpointing enables checkpoint persistence after every node.
// A run ID is required; Run returns ErrRunIDRequired without one.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithRunID sets the run identifier used for checkpointing.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the run.
// Default: false (failures are logged and the run continues).
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}

// WithStepObserver registers an observer invoked after each successful
// node execution. The event bridge uses this hook to convert state
// transitions into an ordered event stream.
func WithStepObserver(fn StepObserver) RunOption {
	return func(c *runConfig) {
		c.stepObserver = fn
	}
}
