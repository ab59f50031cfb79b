package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ufosim/internal/config"
	"github.com/san-kum/ufosim/internal/tuner"
)

// Server exposes the simulator and the tuner over HTTP. The /control path
// is called on every animation frame and never reaches the tuner.
type Server struct {
	cfg   *config.Config
	tuner tuner.Proposer
	log   logrus.FieldLogger
}

func New(cfg *config.Config, t tuner.Proposer, log logrus.FieldLogger) *Server {
	return &Server{cfg: cfg, tuner: t, log: log}
}

// RegisterRoutes registers all HTTP routes
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /control", s.handleControl)
	mux.HandleFunc("POST /tune", s.handleTune)
	mux.HandleFunc("POST /rollout", s.handleRollout)
	mux.HandleFunc("GET /gains", s.handleGains)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routes wrapped with request ids, logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withRequestID(s.withLogging(s.withCORS(mux)))
}

// ListenAndServe runs until ctx is canceled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
