package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"claimguard/internal/platform/config"
	"claimguard/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server owns the root chi mux and the listener
type Server struct {
	mux *chi.Mux
	srv *stdhttp.Server
}

// NewServer reads API_PORT and the timeouts from cfg. Writes are not bounded by
// default since the records export can stream for a while
func NewServer(cfg config.Conf) *Server {
	mux := chi.NewRouter()
	return &Server{
		mux: mux,
		srv: &stdhttp.Server{
			Addr:              cfg.MayString("API_PORT", ":4000"),
			Handler:           mux,
			ReadHeaderTimeout: cfg.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
			IdleTimeout:       cfg.MayDuration("IDLE_TIMEOUT", 2*time.Minute),
			WriteTimeout:      cfg.MayDuration("WRITE_TIMEOUT", 0),
		},
	}
}

// Router returns the root router
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler returns the root mux
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Run listens until Shutdown, which is not an error
func (s *Server) Run(context.Context) error {
	logger.Named("http").Info().Str("addr", s.srv.Addr).Msg("http listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains open connections until ctx ends
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
