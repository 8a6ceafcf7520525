// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services and translate coded errors; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldproof/internal/photoproof"
)

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Documents    DocumentService
	Assignment   AssignmentService
	Importer     Importer
	Exporter     Exporter
	Registration RegistrationService
	Proofs       photoproof.Store

	JWTSigningKey []byte
	Logger        *slog.Logger
}

// NewRouter wires middleware and all endpoint groups.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestMetadata)
	r.Use(Authenticate(cfg.JWTSigningKey, logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	NewDocumentHandler(cfg.Documents, cfg.Assignment, logger).Register(r)
	NewBulkHandler(cfg.Importer, cfg.Exporter, logger).Register(r)
	NewAccountHandler(cfg.Registration, logger).Register(r)
	if cfg.Proofs != nil {
		NewPhotoHandler(cfg.Proofs).Register(r)
	}
	return r
}
