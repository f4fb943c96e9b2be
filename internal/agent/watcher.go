package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"meshgate/internal/controlplane/handler"
	"meshgate/internal/platform/logger"
)

// ConfigSource is the part of Client the watcher needs.
type ConfigSource interface {
	NodeConfig(ctx context.Context, nodeID string) (*handler.NodeConfigResponse, error)
}

// Watcher polls the controller for this node's config. It logs membership
// transitions and hands a new key to the Applier once per epoch.
type Watcher struct {
	source   ConfigSource
	applier  Applier
	nodeID   string
	interval time.Duration
	logger   *slog.Logger

	mu             sync.Mutex
	lastMembership string
	lastReason     string
	appliedEpoch   uint64
	applied        bool
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithApplier replaces the default LogApplier.
func WithApplier(a Applier) WatcherOption {
	return func(w *Watcher) {
		if a != nil {
			w.applier = a
		}
	}
}

func NewWatcher(source ConfigSource, nodeID string, interval time.Duration, opts ...WatcherOption) (*Watcher, error) {
	if source == nil {
		return nil, errors.New("config source is required")
	}
	if nodeID == "" {
		return nil, errors.New("node id is required")
	}
	if interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	w := &Watcher{
		source:   source,
		nodeID:   nodeID,
		interval: interval,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.applier == nil {
		w.applier = LogApplier{Logger: w.logger}
	}
	return w, nil
}

// AppliedEpoch reports the last epoch whose key was applied.
func (w *Watcher) AppliedEpoch() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appliedEpoch, w.applied
}

// Poll fetches the config once and reacts to it.
func (w *Watcher) Poll(ctx context.Context) (*handler.NodeConfigResponse, error) {
	cfg, err := w.source.NodeConfig(ctx, w.nodeID)
	if err != nil {
		w.logger.WarnContext(ctx, "config poll failed", "node_id", w.nodeID, "error", err)
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Membership != w.lastMembership || cfg.Reason != w.lastReason {
		w.logger.InfoContext(ctx, "membership changed",
			"node_id", w.nodeID,
			"epoch_id", cfg.EpochID,
			"from", w.lastMembership,
			"to", cfg.Membership,
			"reason", cfg.Reason,
			"detail", cfg.Detail,
		)
		w.lastMembership = cfg.Membership
		w.lastReason = cfg.Reason
	}

	if !cfg.Allowed || cfg.PSKBase64 == nil {
		return cfg, nil
	}
	if w.applied && w.appliedEpoch == cfg.EpochID {
		return cfg, nil
	}

	material, err := base64.StdEncoding.DecodeString(*cfg.PSKBase64)
	if err != nil {
		err = fmt.Errorf("decode psk for epoch %d: %w", cfg.EpochID, err)
		w.logger.ErrorContext(ctx, "config rejected", "node_id", w.nodeID, "error", err)
		return cfg, err
	}
	if err := w.applier.Apply(ctx, cfg.EpochID, material); err != nil {
		w.logger.ErrorContext(ctx, "key apply failed",
			"node_id", w.nodeID,
			"epoch_id", cfg.EpochID,
			"error", err,
		)
		return cfg, err
	}
	w.appliedEpoch = cfg.EpochID
	w.applied = true
	return cfg, nil
}

// Run polls immediately, then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	_, _ = w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = w.Poll(ctx)
		}
	}
}
