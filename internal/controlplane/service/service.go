// Package service implements the control-plane operations over the shared
// state arena: evidence intake, epoch inspection and credential issuance.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meshgate/internal/controlplane"
	"meshgate/internal/controlplane/metrics"
	"meshgate/internal/evidence"
	"meshgate/internal/keys"
	"meshgate/internal/platform/logger"
	"meshgate/internal/roster"
	"meshgate/internal/signature"
	"meshgate/internal/state"
	dErrors "meshgate/pkg/domain-errors"
	"meshgate/pkg/requestcontext"
)

const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	unknownNode    = "unknown"
)

// Service is safe for concurrent use; it holds no state of its own.
type Service struct {
	arena     *state.Arena
	roster    roster.Roster
	deriver   keys.Deriver
	verifier  signature.Verifier
	pskLength int

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDeriver selects the PSK derivation. Defaults to keys.HMAC.
func WithDeriver(d keys.Deriver) Option {
	return func(s *Service) {
		if d != nil {
			s.deriver = d
		}
	}
}

// WithVerifier selects the evidence signature check. Defaults to signature.AcceptAll.
func WithVerifier(v signature.Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithPSKLength sets the derived key length in bytes.
func WithPSKLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pskLength = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(arena *state.Arena, members roster.Roster, opts ...Option) (*Service, error) {
	if arena == nil {
		return nil, fmt.Errorf("arena is required")
	}
	if members.Len() == 0 {
		return nil, fmt.Errorf("roster is required")
	}

	svc := &Service{
		arena:     arena,
		roster:    members,
		deriver:   keys.HMAC{},
		verifier:  signature.AcceptAll{},
		pskLength: keys.DefaultLength,
		logger:    logger.Discard(),
		tracer:    otel.Tracer("meshgate/internal/controlplane"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// SubmitEvidence stores rec as targetNodeID's latest evidence. Membership is
// unaffected until the next rotation.
func (s *Service) SubmitEvidence(ctx context.Context, targetNodeID string, rec evidence.Record) (*controlplane.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "controlplane.submit_evidence", trace.WithAttributes(
		attribute.String("meshgate.node_id", targetNodeID),
	))
	defer span.End()

	if !s.roster.Contains(targetNodeID) {
		s.metrics.IncSubmission(unknownNode, resultRejected)
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("node %q is not in the roster", targetNodeID))
	}
	if rec.NodeID != targetNodeID {
		s.metrics.IncSubmission(targetNodeID, resultRejected)
		return nil, dErrors.New(dErrors.CodeValidation, "node_id mismatch")
	}

	payload, err := signature.Payload(rec)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode evidence")
	}
	var sig string
	if rec.Signature != nil {
		sig = *rec.Signature
	}
	if !s.verifier.Verify(payload, sig) {
		s.metrics.IncSubmission(targetNodeID, resultRejected)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "evidence signature rejected")
	}

	rec.ReceivedAt = requestcontext.Now(ctx)
	s.arena.Evidence().Upsert(ctx, rec)
	current := s.arena.Epoch()
	s.metrics.IncSubmission(targetNodeID, resultAccepted)

	overall, _ := rec.Overall()
	s.logger.InfoContext(ctx, "evidence received",
		"request_id", requestcontext.RequestID(ctx),
		"node_id", targetNodeID,
		"epoch_id", current.ID,
		"overall", overall,
		"suite_version", rec.SuiteVersion,
	)

	return &controlplane.SubmitResult{NodeID: targetNodeID, EpochID: current.ID}, nil
}

// EpochState reports the current epoch and every roster node's decision.
func (s *Service) EpochState(ctx context.Context) controlplane.EpochState {
	_, span := s.tracer.Start(ctx, "controlplane.epoch_state")
	defer span.End()

	view := s.arena.View()
	out := controlplane.EpochState{
		Initialized:       view.Epoch.Initialized(),
		EpochID:           view.Epoch.ID,
		Expiry:            view.Epoch.Expiry,
		SecretFingerprint: view.Epoch.Fingerprint,
		Nodes:             make([]controlplane.NodeMembership, 0, s.roster.Len()),
	}
	for _, nodeID := range s.roster.IDs() {
		d := view.Decision(nodeID)
		out.Nodes = append(out.Nodes, controlplane.NodeMembership{
			NodeID: nodeID,
			Status: d.Status,
			Reason: d.Reason,
			Detail: d.Detail(),
		})
	}
	return out
}

// NodeConfig reports nodeID's membership and, only when allowed, the keying
// material derived from the current epoch secret.
func (s *Service) NodeConfig(ctx context.Context, nodeID string) (*controlplane.NodeConfig, error) {
	ctx, span := s.tracer.Start(ctx, "controlplane.node_config", trace.WithAttributes(
		attribute.String("meshgate.node_id", nodeID),
	))
	defer span.End()

	if !s.roster.Contains(nodeID) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("node %q is not in the roster", nodeID))
	}

	ep, d := s.arena.NodeView(nodeID)
	cfg := &controlplane.NodeConfig{
		NodeID:  nodeID,
		EpochID: ep.ID,
		Expiry:  ep.Expiry,
		Status:  d.Status,
		Reason:  d.Reason,
		Detail:  d.Detail(),
	}

	if ep.Initialized() && d.Allowed() && d.EpochID == ep.ID {
		psk := s.deriver.Derive(ep.Secret, nodeID, s.pskLength)
		if len(psk) == 0 {
			return nil, dErrors.Wrap(errors.New("empty derivation"), dErrors.CodeInternal, "failed to derive keying material")
		}
		cfg.Allowed = true
		cfg.PSK = psk
	}
	s.metrics.IncConfigQuery(nodeID, cfg.Allowed)
	span.SetAttributes(attribute.Bool("meshgate.allowed", cfg.Allowed))

	return cfg, nil
}

// Health reports liveness with the current epoch id.
func (s *Service) Health(_ context.Context) controlplane.Health {
	ep := s.arena.Epoch()
	return controlplane.Health{Status: "ok", EpochID: ep.ID, Initialized: ep.Initialized()}
}
