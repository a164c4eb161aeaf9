package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"cogneo-edge-router/internal/handlers"
	"cogneo-edge-router/internal/metrics"
	"cogneo-edge-router/internal/middleware"
)

// Options are the transport-level settings the router consumes.
type Options struct {
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	CORSEnable       bool
	CORSAllowOrigins []string
	MetricsEnable    bool
}

// SetupRouter wires middleware and routes onto r.
func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, gw *handlers.Gateway, opts Options) {
	if opts.MetricsEnable {
		r.Use(metrics.Middleware)
	}

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	if opts.CORSEnable {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}))
	}

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	// routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search/vector", gw.VectorSearch)
		r.Post("/search/hybrid", gw.HybridSearch)
		r.Post("/search/fts", gw.FTSSearch)
		r.Post("/search/rag", gw.RAGQuery)
		r.Post("/chat/conversation", gw.ChatConversation)
		r.Post("/chat/agentic", gw.ChatAgentic)
	})

	// health checks
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.MetricsEnable {
		r.Handle("/metrics", metrics.Handler())
	}
}
