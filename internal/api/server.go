// Package api exposes the analysis engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/engine"
	"github.com/Veraticus/runway/internal/model"
)

// maxUploadBytes caps the size of an uploaded statement.
const maxUploadBytes = 10 << 20

// Analyzer is the slice of the engine the HTTP API depends on.
type Analyzer interface {
	Analyze(ctx context.Context, userID string) (*engine.Analysis, error)
	Health(ctx context.Context, userID string) (*model.HealthResult, error)
	Import(ctx context.Context, userID string, txns []model.Transaction) (int, error)
	Settings(ctx context.Context, userID string) (*model.UserFinancialSettings, error)
	UpdateSettings(ctx context.Context, settings *model.UserFinancialSettings) error
}

var _ Analyzer = (*engine.Engine)(nil)

// Server serves the runway HTTP API.
type Server struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// NewServer creates a server. A nil logger uses the default logger.
func NewServer(analyzer Analyzer, logger *slog.Logger) *Server {
	return &Server{
		analyzer: analyzer,
		logger:   common.ComponentLogger(logger, "api"),
	}
}

// Router builds the chi router for every endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/transactions", s.importTransactions)
		r.Get("/patterns", s.getPatterns)
		r.Get("/income", s.getIncome)
		r.Get("/health", s.getHealth)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
	})

	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
