package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"meshgate/internal/controlplane"
	"meshgate/internal/evidence"
	"meshgate/pkg/platform/httputil"
	"meshgate/pkg/requestcontext"
)

// Service defines the control-plane operations the handler exposes.
type Service interface {
	SubmitEvidence(ctx context.Context, nodeID string, rec evidence.Record) (*controlplane.SubmitResult, error)
	EpochState(ctx context.Context) controlplane.EpochState
	NodeConfig(ctx context.Context, nodeID string) (*controlplane.NodeConfig, error)
	Health(ctx context.Context) controlplane.Health
}

// Handler wires control-plane endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a control-plane handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts control-plane endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/benchmarks/{nodeID}", h.HandleSubmitEvidence)
	r.Get("/v1/epoch", h.HandleEpoch)
	r.Get("/v1/config/{nodeID}", h.HandleNodeConfig)
	r.Get("/health", h.HandleHealth)
}

// HandleSubmitEvidence handles POST /v1/benchmarks/{nodeID}.
func (h *Handler) HandleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	nodeID := chi.URLParam(r, "nodeID")

	req, ok := httputil.DecodeAndPrepare[SubmitEvidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitEvidence(ctx, nodeID, req.ToRecord())
	if err != nil {
		h.logger.WarnContext(ctx, "evidence submission rejected",
			"request_id", requestID,
			"node_id", nodeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "evidence submission accepted",
		"request_id", requestID,
		"node_id", nodeID,
		"epoch_id", result.EpochID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubmitResult(result))
}

// HandleEpoch handles GET /v1/epoch.
func (h *Handler) HandleEpoch(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromEpochState(h.service.EpochState(r.Context())))
}

// HandleNodeConfig handles GET /v1/config/{nodeID}.
func (h *Handler) HandleNodeConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	nodeID := chi.URLParam(r, "nodeID")

	cfg, err := h.service.NodeConfig(ctx, nodeID)
	if err != nil {
		h.logger.WarnContext(ctx, "node config request failed",
			"request_id", requestID,
			"node_id", nodeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "node config served",
		"request_id", requestID,
		"node_id", nodeID,
		"epoch_id", cfg.EpochID,
		"allowed", cfg.Allowed,
		"reason", string(cfg.Reason),
	)
	httputil.WriteJSON(w, http.StatusOK, FromNodeConfig(cfg))
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromHealth(h.service.Health(r.Context())))
}
