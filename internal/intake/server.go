// Package intake implements the intake server (C9): an HTTP endpoint that
// accepts multipart or raw-body uploads and writes them into a destination
// tree via C2 (path templating) + C3 (atomic destination writer).
package intake

import (
	"context"
	"net"
	"net/http"

	"github.com/kpcyrd/brchd/internal/logging"
)

// Config configures the intake server's destination tree.
type Config struct {
	Root         string // destination root directory
	PathTemplate string
}

// Server wraps an *http.Server configured with the three brchd endpoints.
type Server struct {
	httpSrv *http.Server
	logger  *logging.Logger
}

// New builds an intake server listening at addr once Start is called.
func New(addr string, cfg Config, logger *logging.Logger) *Server {
	h := &handler{cfg: cfg, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handle)

	return &Server{
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: withAccessLog(logger, mux),
		},
		logger: logger,
	}
}

// ListenAndServe blocks serving requests until Shutdown is called, at which
// point it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
