package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pulsedash/pulsedash/internal/dashboard"
	"github.com/pulsedash/pulsedash/internal/observability"
	"github.com/pulsedash/pulsedash/internal/platform/httpx"
	"github.com/pulsedash/pulsedash/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	Dashboard *dashboard.Handler
	Metrics   *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Handle("/static/*", http.FileServerFS(web.Static))

	params.Dashboard.MountRoutes(r)

	return r
}
