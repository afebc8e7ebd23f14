// Package status serves a read-only view of a running batch.
//
//	GET /status   batch and per-entry state as JSON
//	GET /metrics  Prometheus exposition
//	GET /healthz  liveness
package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/pakfetch/batch"
	"github.com/adamwoolhether/pakfetch/web"
	"github.com/adamwoolhether/pakfetch/web/middleware"
)

// Source reports the state of a batch. *batch.Runner implements it.
type Source interface {
	Status() batch.Status
}

type Config struct {
	Source   Source
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Tracer   trace.TracerProvider
}

// NewRouter builds the status routes. A nil Gatherer leaves out /metrics.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.Trace(cfg.Tracer))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Panics(logger))

	h := handlers{source: cfg.Source, logger: logger}

	r.Get("/status", h.status)
	r.Get("/healthz", h.health)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(h.respondCode(http.StatusNotFound))
	r.MethodNotAllowed(h.respondCode(http.StatusMethodNotAllowed))

	return r
}

type handlers struct {
	source Source
	logger *slog.Logger
}

func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.respond(w, r, web.RespondError(w, web.NewError(http.StatusServiceUnavailable)))
		return
	}
	h.respond(w, r, web.RespondJSON(w, http.StatusOK, h.source.Status()))
}

func (h handlers) health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, web.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"}))
}

func (h handlers) respondCode(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, web.RespondError(w, web.NewError(code)))
	}
}

func (h handlers) respond(_ http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.logger.Error("writing response", "trace_id", middleware.GetValues(r.Context()).TraceID, "path", r.URL.Path, "error", err)
	}
}
