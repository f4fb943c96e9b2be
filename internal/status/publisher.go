package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"meshgate/internal/platform/logger"
	"meshgate/internal/status/metrics"
	"meshgate/pkg/platform/circuit"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher fans a snapshot out to every sink. Each sink gets its own timeout
// and circuit breaker; failures are logged and counted, never returned.
type Publisher struct {
	sinks   []guardedSink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	breakerOpts []circuit.Option
}

type guardedSink struct {
	sink    Sink
	breaker *circuit.Breaker
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithTimeout bounds each sink write.
func WithTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreakerOptions tunes the per-sink circuit breakers.
func WithBreakerOptions(opts ...circuit.Option) PublisherOption {
	return func(p *Publisher) {
		p.breakerOpts = append(p.breakerOpts, opts...)
	}
}

// NewPublisher wraps sinks. Nil sinks are skipped.
func NewPublisher(sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		timeout: defaultPublishTimeout,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	breakerOpts := append([]circuit.Option{circuit.WithSuccessThreshold(1)}, p.breakerOpts...)
	for _, s := range sinks {
		if s == nil {
			continue
		}
		p.sinks = append(p.sinks, guardedSink{
			sink:    s,
			breaker: circuit.New("status_sink_"+s.Name(), breakerOpts...),
		})
	}
	return p
}

// Len returns the number of configured sinks.
func (p *Publisher) Len() int {
	if p == nil {
		return 0
	}
	return len(p.sinks)
}

// Publish writes snap to every sink concurrently and waits for all of them.
func (p *Publisher) Publish(ctx context.Context, snap Snapshot) {
	if p == nil || len(p.sinks) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, gs := range p.sinks {
		wg.Go(func() {
			p.publishOne(ctx, gs, snap)
		})
	}
	wg.Wait()
}

func (p *Publisher) publishOne(ctx context.Context, gs guardedSink, snap Snapshot) {
	name := gs.sink.Name()
	if !gs.breaker.Allow() {
		p.metrics.ObservePublish(name, metrics.ResultDropped, 0)
		p.logger.DebugContext(ctx, "status sink circuit open, snapshot dropped",
			"sink", name,
			"epoch_id", snap.Epoch.ID,
		)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := gs.sink.Write(writeCtx, snap)
	elapsed := time.Since(start)

	if err != nil {
		p.metrics.ObservePublish(name, metrics.ResultError, elapsed)
		p.logger.ErrorContext(ctx, "status snapshot publish failed",
			"sink", name,
			"epoch_id", snap.Epoch.ID,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		if _, change := gs.breaker.RecordFailure(); change.Opened {
			p.metrics.SetCircuitOpen(name, true)
			p.logger.WarnContext(ctx, "status sink circuit opened", "sink", name)
		}
		return
	}

	p.metrics.ObservePublish(name, metrics.ResultOK, elapsed)
	if _, change := gs.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetCircuitOpen(name, false)
		p.logger.InfoContext(ctx, "status sink circuit closed", "sink", name)
	}
}
