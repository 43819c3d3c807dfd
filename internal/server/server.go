// internal/server/server.go
//
// HTTP server with production timeouts and a graceful shutdown.
//
// Context
// -------
//   • ReadHeaderTimeout – abort slow-loris headers (10 s)
//   • ReadTimeout       – cap the whole request, multipart uploads included
//                          (30 s)
//   • WriteTimeout      – cap total response time; backend calls and
//                          export downloads run inside it (60 s)
//   • IdleTimeout       – close keep-alives on idle clients (120 s)
//
// Run blocks until ctx is cancelled or the listener fails, then gives
// in-flight requests ShutdownGrace to finish.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownGrace is how long Run waits for in-flight requests.
const ShutdownGrace = 15 * time.Second

// New constructs an *http.Server whose error log goes to log.
func New(addr string, handler http.Handler, log *zap.SugaredLogger) *http.Server {
	if log == nil {
		log = zap.S()
	}
	errLog, err := zap.NewStdLogAt(log.Desugar().Named("http"), zap.WarnLevel)
	if err != nil {
		errLog = nil
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          errLog,
	}
}

// Run serves srv until ctx ends, then shuts it down.  A clean shutdown
// returns nil.
func Run(ctx context.Context, srv *http.Server, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.S()
	}
	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down", "grace", ShutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
