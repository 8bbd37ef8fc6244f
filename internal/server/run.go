// internal/server/run.go
//
// Run serves until ctx ends, then drains in-flight requests for at most
// ShutdownGrace.  Both halves run in one errgroup so a listen failure
// cancels the shutdown watcher and vice versa.

package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run listens on srv.Addr.  It returns nil after a clean shutdown.
func Run(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.S().Infow("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		zap.S().Infow("http server shutting down")
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
