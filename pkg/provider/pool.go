package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reportflow/pkg/reportflow/observability"
)

// ErrNoProviders is returned by Invoke when the pool is empty.
var ErrNoProviders = errors.New("provider pool: no providers registered")

// PoolError is returned when every candidate provider failed. It carries
// the names tried in order and wraps the final attempt's error.
type PoolError struct {
	Attempted []string
	LastErr   error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("all providers failed (tried %v): %v", e.Attempted, e.LastErr)
}

func (e *PoolError) Unwrap() error {
	return e.LastErr
}

// Pool invokes providers in a fixed fallback order. Registration order
// is the fallback order; a preferred provider, when set and registered,
// is tried first with the rest following in registration order.
//
// A Pool is safe for concurrent Invoke calls once construction is done.
// Register is not synchronized; finish registering before running.
type Pool struct {
	providers []Provider
	byName    map[string]int
	preferred string
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger for per-attempt logging.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// WithPoolMetrics sets the recorder for per-attempt metrics.
func WithPoolMetrics(m observability.MetricsRecorder) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// WithPreferred names the provider tried first. An unknown name is
// ignored at invoke time, leaving plain registration order.
func WithPreferred(name string) PoolOption {
	return func(p *Pool) { p.preferred = name }
}

// NewPool creates a pool over the given providers. Order matters: it is
// the fallback order.
func NewPool(providers []Provider, opts ...PoolOption) *Pool {
	p := &Pool{
		byName:  make(map[string]int, len(providers)),
		metrics: observability.NoopMetrics{},
	}
	for _, prov := range providers {
		p.register(prov)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register appends a provider to the fallback order. Registering a name
// twice replaces the earlier provider in place, keeping its position.
func (p *Pool) Register(prov Provider) {
	p.register(prov)
}

func (p *Pool) register(prov Provider) {
	if i, ok := p.byName[prov.Name()]; ok {
		p.providers[i] = prov
		return
	}
	p.byName[prov.Name()] = len(p.providers)
	p.providers = append(p.providers, prov)
}

// Names returns the provider names in fallback order, before any
// preferred-provider reordering.
func (p *Pool) Names() []string {
	names := make([]string, len(p.providers))
	for i, prov := range p.providers {
		names[i] = prov.Name()
	}
	return names
}

// Len returns the number of registered providers.
func (p *Pool) Len() int {
	return len(p.providers)
}

// Invoke tries each candidate provider once, in order, and returns the
// first success. The candidate order is the pool's preferred provider
// (when set and registered) followed by the others in registration
// order. When every attempt fails, the returned error is a *PoolError
// wrapping the last attempt's error.
//
// Cancellation is checked between attempts, so a canceled ctx stops the
// fallback walk rather than burning through remaining providers.
func (p *Pool) Invoke(ctx context.Context, req Request) (Result, error) {
	return p.InvokePreferred(ctx, req, p.preferred)
}

// InvokePreferred is Invoke with a per-call preferred provider,
// overriding the pool-level preference. An unknown name leaves plain
// registration order.
func (p *Pool) InvokePreferred(ctx context.Context, req Request, preferred string) (Result, error) {
	if len(p.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	candidates := p.candidates(preferred)

	var attempted []string
	var lastErr error
	for _, prov := range candidates {
		select {
		case <-ctx.Done():
			if lastErr == nil {
				return Result{}, ctx.Err()
			}
			return Result{}, &PoolError{Attempted: attempted, LastErr: ctx.Err()}
		default:
		}

		attempted = append(attempted, prov.Name())
		start := time.Now()
		text, err := prov.Complete(ctx, req)
		elapsed := time.Since(start)
		p.metrics.RecordProviderAttempt(ctx, prov.Name(), elapsed, err)

		if err != nil {
			lastErr = err
			if p.logger != nil {
				p.logger.Warn("provider attempt failed",
					slog.String("provider", prov.Name()),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		if p.logger != nil {
			p.logger.Debug("provider attempt succeeded",
				slog.String("provider", prov.Name()),
				slog.Duration("duration", elapsed),
				slog.Int("response_len", len(text)),
			)
		}
		return Result{Text: text, Provider: prov.Name(), Duration: elapsed}, nil
	}

	return Result{}, &PoolError{Attempted: attempted, LastErr: lastErr}
}

// candidates builds the attempt order for one invocation.
func (p *Pool) candidates(preferred string) []Provider {
	i, ok := p.byName[preferred]
	if preferred == "" || !ok {
		return p.providers
	}
	out := make([]Provider, 0, len(p.providers))
	out = append(out, p.providers[i])
	for j, prov := range p.providers {
		if j != i {
			out = append(out, prov)
		}
	}
	return out
}
