package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadagent/mailfinder/internal/service"
	"github.com/leadagent/mailfinder/pkg/health"
	"github.com/leadagent/mailfinder/pkg/middleware"
)

// lookupMaxAge is the Cache-Control max-age for stored lookups, in seconds.
const lookupMaxAge = 300

// RouterConfig holds the optional parts of the HTTP surface.
type RouterConfig struct {
	ServiceName    string
	APIKeys        []string
	CORSOrigins    []string
	RequestTimeout time.Duration

	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all mailfinder routes registered.
func NewRouter(
	finderService *service.FinderService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSOrigins
	}

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	finderHandler := NewFinderHandler(finderService, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(ContentTypeJSON)

		r.Post("/verify-email", finderHandler.VerifyEmail)

		r.Route("/api/v1/emails", func(r chi.Router) {
			r.Post("/find", finderHandler.FindEmail)
			r.Post("/enqueue", finderHandler.EnqueueLookup)
		})

		r.Route("/api/v1/lookups", func(r chi.Router) {
			r.Get("/", finderHandler.ListLookups)
			r.With(middleware.CacheControl(lookupMaxAge)).Get("/{id}", finderHandler.GetLookup)
		})
	})

	return r
}
