package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/VNGato/sistema-estoque/internal/metrics"
)

func NewRouter(ph *ProductHandler, sh *SaleHandler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(metrics.Middleware)

	r.Get("/health", ph.Health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", ph.Register)
		r.Get("/", ph.List)
		r.Get("/{id}", ph.Get)
		r.Put("/{id}", ph.Update)
		r.Delete("/{id}", ph.Delete)
		r.Post("/{id}/sell", ph.Sell)
		r.Post("/{id}/restock", ph.Restock)
	})

	r.Post("/sales", sh.CommitSale)

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
