// Package server builds the HTTP server from configuration.
package server

import (
	"net/http"
	"time"

	"file-gallery/internal/config"
)

const defaultReadHeaderTimeout = 10 * time.Second

// New returns an http.Server listening on the configured address. Write
// timeouts must cover the largest upload a client may stream.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	if cfg.Server != nil {
		srv.ReadTimeout = cfg.Server.ReadTimeout
		srv.WriteTimeout = cfg.Server.WriteTimeout
		srv.IdleTimeout = cfg.Server.IdleTimeout
	}
	return srv
}
