// Package keepalive runs the tiny HTTP server that uptime monitors poll
// to keep the bot's host from idling it out.
package keepalive

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server answers health checks on GET /.
type Server struct {
	http *http.Server
	log  *zap.Logger
}

// New creates the keep-alive server on the given listen address.
func New(addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           newHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func newHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Bot is running!"))
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("keep-alive server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
