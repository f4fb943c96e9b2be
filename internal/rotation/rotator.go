// Package rotation drives the epoch lifecycle: on every tick it mints a new
// epoch, re-evaluates the roster and commits both as one step.
package rotation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"meshgate/internal/epoch"
	"meshgate/internal/membership"
	"meshgate/internal/platform/logger"
	"meshgate/internal/roster"
	"meshgate/internal/rotation/metrics"
	"meshgate/internal/state"
	"meshgate/internal/status"
)

// Phase is the rotator state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRotating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRotating:
		return "rotating"
	default:
		return "unknown"
	}
}

// Publisher receives the snapshot of each committed tick.
type Publisher interface {
	Publish(ctx context.Context, snap status.Snapshot)
}

// Rotator serializes rotation ticks over a shared arena.
type Rotator struct {
	arena    *state.Arena
	roster   roster.Roster
	policy   membership.Policy
	interval time.Duration

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
	tracer    trace.Tracer
	now       func() time.Time
	entropy   io.Reader

	mu           sync.Mutex // held for the whole tick
	bootstrapped bool
	phase        atomic.Int32
}

// Option configures a Rotator.
type Option func(*Rotator)

func WithLogger(l *slog.Logger) Option {
	return func(r *Rotator) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Rotator) {
		r.metrics = m
	}
}

// WithPublisher sets the status snapshot collaborator.
func WithPublisher(p Publisher) Option {
	return func(r *Rotator) {
		r.publisher = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Rotator) {
		if now != nil {
			r.now = now
		}
	}
}

// WithEntropy overrides the secret source. Tests only.
func WithEntropy(rd io.Reader) Option {
	return func(r *Rotator) {
		if rd != nil {
			r.entropy = rd
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Rotator) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New creates an idle rotator.
func New(arena *state.Arena, members roster.Roster, policy membership.Policy, interval time.Duration, opts ...Option) (*Rotator, error) {
	if arena == nil {
		return nil, errors.New("arena is required")
	}
	if members.Len() == 0 {
		return nil, errors.New("roster is required")
	}
	if interval <= 0 {
		return nil, errors.New("rotation interval must be positive")
	}

	r := &Rotator{
		arena:    arena,
		roster:   members,
		policy:   policy,
		interval: interval,
		logger:   logger.Discard(),
		tracer:   otel.Tracer("meshgate/internal/rotation"),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Phase returns the current state.
func (r *Rotator) Phase() Phase {
	return Phase(r.phase.Load())
}

// Interval returns the configured rotation period.
func (r *Rotator) Interval() time.Duration {
	return r.interval
}

// Bootstrap runs the startup rotation exactly once. Later calls return the
// current epoch without rotating.
func (r *Rotator) Bootstrap(ctx context.Context) (epoch.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bootstrapped {
		return r.arena.Epoch(), nil
	}
	rec, err := r.tick(ctx, "bootstrap")
	if err != nil {
		return epoch.Record{}, err
	}
	r.bootstrapped = true
	return rec, nil
}

// Rotate runs one tick. A call made while another tick is in flight waits
// for it to finish and then performs its own.
func (r *Rotator) Rotate(ctx context.Context) (epoch.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.tick(ctx, "interval")
	if err == nil {
		r.bootstrapped = true
	}
	return rec, err
}

// Run bootstraps if needed, then rotates every interval until ctx is done.
// A failed tick leaves the previous epoch in place until the next interval.
func (r *Rotator) Run(ctx context.Context) error {
	if _, err := r.Bootstrap(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// failures are logged and counted by the tick itself
			_, _ = r.Rotate(ctx)
		}
	}
}

// tick must be called with r.mu held. Once started it runs to completion
// regardless of ctx; only the status publish observes cancellation.
func (r *Rotator) tick(ctx context.Context, trigger string) (epoch.Record, error) {
	r.phase.Store(int32(PhaseRotating))
	defer r.phase.Store(int32(PhaseIdle))

	ctx, span := r.tracer.Start(ctx, "rotation.tick", trace.WithAttributes(
		attribute.String("meshgate.rotation.trigger", trigger),
	))
	defer span.End()

	commitCtx := context.WithoutCancel(ctx)
	start := r.now()

	records := r.arena.Evidence().All(commitCtx)
	prev := r.arena.Epoch()

	next, err := epoch.Next(prev, start, r.interval, r.entropy)
	if err != nil {
		return r.fail(ctx, span, err)
	}

	decisions := r.policy.EvaluateAll(r.roster.IDs(), records, start, next.ID)
	if err := r.arena.Commit(next, decisions); err != nil {
		return r.fail(ctx, span, err)
	}

	elapsed := r.now().Sub(start)
	r.metrics.ObserveRotation(next.ID, next.Expiry, elapsed)
	r.metrics.SetDecisions(countDecisions(decisions))
	span.SetAttributes(attribute.Int64("meshgate.epoch.id", int64(next.ID)))

	allowed := 0
	for _, d := range decisions {
		if d.Allowed() {
			allowed++
		}
		r.logger.DebugContext(ctx, "membership evaluated",
			"node_id", d.NodeID,
			"epoch_id", next.ID,
			"status", string(d.Status),
			"reason", string(d.Reason),
		)
	}
	r.logger.InfoContext(ctx, "epoch rotated",
		"epoch_id", next.ID,
		"previous_epoch_id", prev.ID,
		"expiry", next.Expiry,
		"secret_fingerprint", next.Fingerprint,
		"trigger", trigger,
		"allowed", allowed,
		"denied", len(decisions)-allowed,
		"duration_ms", elapsed.Milliseconds(),
	)

	if r.publisher != nil {
		r.publisher.Publish(ctx, status.Build(next, decisions, records, start))
	}
	return next, nil
}

func (r *Rotator) fail(ctx context.Context, span trace.Span, err error) (epoch.Record, error) {
	r.metrics.IncRotationFailure()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.logger.ErrorContext(ctx, "epoch rotation aborted", "error", err)
	return epoch.Record{}, err
}

func countDecisions(decisions []membership.Decision) map[[2]string]int {
	counts := make(map[[2]string]int)
	for _, d := range decisions {
		counts[[2]string{string(d.Status), string(d.Reason)}]++
	}
	return counts
}
