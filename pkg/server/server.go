package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	readTimeout     = 5 * time.Second
	shutdownTimeout = 10 * time.Second
	// Report generation calls several Analytics queries and renders charts.
	handlerTimeout = 2 * time.Minute
)

type Server struct {
	srv *http.Server
	log zerolog.Logger
}

func New(handler http.Handler, port int, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: readTimeout,
			ReadTimeout:       readTimeout,
			// Instead of setting WriteTimeout, we use http.TimeoutHandler to specify the maximum amount of time for a handler to complete.
			Handler: http.TimeoutHandler(handler, handlerTimeout, ""),
		},
		log: logger.With().Str("pkg", "server").Logger(),
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Initializing the srv in a goroutine so that
	// it won't block the graceful shutdown handling below
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("listening")

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen error: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	// The context is used to inform the server it has a few seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.Err(err).Msg("forced to shut down")

		return err
	}

	s.log.Info().Msg("exiting")

	return nil
}
