package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"meshgate/internal/controlplane/handler"
	"meshgate/internal/platform/logger"
	"meshgate/internal/platform/metrics"
	"meshgate/internal/platform/middleware"
	"meshgate/pkg/platform/middleware/requesttime"
)

const defaultRequestTimeout = 30 * time.Second

// Deps are the collaborators the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	ControlPlane   *handler.Handler
	RequestTimeout time.Duration
}

// NewRouter wires the public endpoints behind the shared middleware chain.
// Handlers delegate to services; no business logic lives here.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.Latency(deps.Metrics))

	if deps.ControlPlane != nil {
		deps.ControlPlane.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	return r
}
