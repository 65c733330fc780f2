package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/aretw0/companion/pkg/adapters/http"
)

// Serve listens on the configured API and metrics addresses and serves until
// ctx is cancelled. An empty metrics address disables the metrics listener.
func Serve(ctx context.Context, app *App) error {
	apiLn, err := net.Listen("tcp", app.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen api: %w", err)
	}
	var metricsLn net.Listener
	if addr := app.Config.Server.MetricsAddr; addr != "" {
		metricsLn, err = net.Listen("tcp", addr)
		if err != nil {
			apiLn.Close()
			return fmt.Errorf("listen metrics: %w", err)
		}
	}
	return ServeListeners(ctx, app, apiLn, metricsLn)
}

// ServeListeners runs the API (and, when metricsLn is non-nil, the metrics
// endpoint) on the given listeners. Cancelling ctx starts a graceful
// shutdown bounded by server.shutdown_timeout; a listener failure stops
// both servers.
func ServeListeners(ctx context.Context, app *App, apiLn, metricsLn net.Listener) error {
	cfg := app.Config.Server
	logger := app.Logger

	servers := []*http.Server{{
		Handler:      httpadapter.NewHandler(app.Agent, httpadapter.WithLogger(logger)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}}
	listeners := []net.Listener{apiLn}
	if metricsLn != nil {
		router := chi.NewRouter()
		router.Handle("/metrics", app.Metrics.Handler())
		servers = append(servers, &http.Server{Handler: router, ReadTimeout: cfg.ReadTimeout})
		listeners = append(listeners, metricsLn)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		srv, ln := servers[i], listeners[i]
		g.Go(func() error {
			logger.Info("listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err, srv.Close())
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
