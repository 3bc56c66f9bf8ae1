// Package httpserver owns the HTTP server's construction and its
// lifecycle timeouts, so cmd/server only wires the router and the signal
// handling.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

const shutdownGrace = 10 * time.Second

// New builds the wizard's HTTP server. The header timeout bounds
// slow-loris clients; body reads are left to the handlers, which all
// decode small JSON payloads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
}

// Shutdown drains in-flight requests, giving up after a fixed grace
// period.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}
