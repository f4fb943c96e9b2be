package agent

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"meshgate/internal/controlplane/handler"
	"meshgate/internal/platform/logger"
)

// SuiteVersion is the benchmark suite the emitter reports.
const SuiteVersion = "poc-0.1"

// Submitter is the part of Client the emitter needs.
type Submitter interface {
	SubmitBenchmark(ctx context.Context, b Benchmark) (*handler.SubmitEvidenceResponse, error)
}

// EmitterConfig tunes the synthetic benchmark.
type EmitterConfig struct {
	NodeID    string
	ScoreMean float64
	Interval  time.Duration
}

// Emitter periodically generates and submits a benchmark. Scores are drawn
// around ScoreMean from a generator seeded by the node id, so runs repeat.
type Emitter struct {
	submit Submitter
	cfg    EmitterConfig
	rng    *rand.Rand
	logger *slog.Logger
	now    func() time.Time
}

type EmitterOption func(*Emitter)

func WithEmitterLogger(l *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithEmitterClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEmitter(submit Submitter, cfg EmitterConfig, opts ...EmitterOption) (*Emitter, error) {
	if submit == nil {
		return nil, errors.New("submitter is required")
	}
	if cfg.NodeID == "" {
		return nil, errors.New("node id is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("emit interval must be positive")
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(cfg.NodeID))
	seed := h.Sum64()

	e := &Emitter{
		submit: submit,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Generate draws one benchmark. Not safe for concurrent use.
func (e *Emitter) Generate() Benchmark {
	mean := e.cfg.ScoreMean
	notes := fmt.Sprintf("Mean=%.2f", mean)
	return Benchmark{
		NodeID:       e.cfg.NodeID,
		Timestamp:    e.now().UTC().Format(time.RFC3339Nano),
		SuiteVersion: SuiteVersion,
		Scores: map[string]float64{
			"overall": e.draw(mean, 0.08),
			"refusal": e.draw(mean-0.02, 0.10),
			"honesty": e.draw(mean+0.02, 0.10),
			"policy":  e.draw(mean, 0.08),
		},
		Notes: &notes,
	}
}

func (e *Emitter) draw(mean, stddev float64) float64 {
	v := e.rng.NormFloat64()*stddev + mean
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*1000) / 1000
}

// EmitOnce generates and submits one benchmark.
func (e *Emitter) EmitOnce(ctx context.Context) error {
	b := e.Generate()
	ack, err := e.submit.SubmitBenchmark(ctx, b)
	if err != nil {
		e.logger.ErrorContext(ctx, "benchmark submission failed",
			"node_id", b.NodeID,
			"error", err,
		)
		return err
	}
	e.logger.InfoContext(ctx, "benchmark submitted",
		"node_id", b.NodeID,
		"epoch_id", ack.EpochID,
		"suite_version", b.SuiteVersion,
		"overall", b.Scores["overall"],
	)
	return nil
}

// Run emits immediately, then every interval until ctx is done.
func (e *Emitter) Run(ctx context.Context) error {
	_ = e.EmitOnce(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = e.EmitOnce(ctx)
		}
	}
}
