package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/samvad-hq/city-pulse/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Server runs the HTTP API until its context is canceled.
type Server struct {
	srv *http.Server
	log logger.Logger
}

func NewServer(addr string, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.Ensure(log),
	}
}

// Run blocks until ctx is done or the listener fails, then shuts down
// gracefully. Request contexts derive from ctx so open streams end with it.
// A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
