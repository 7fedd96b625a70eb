package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtnitsch/landing-ops/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

// ServeAction runs the HTTP API until SIGINT or SIGTERM, reloading the
// rubric file when it changes.
func ServeAction(c *cli.Context) error {
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Rubric.Watch(ctx, app.Logger); err != nil {
		app.Logger.Warn("rubric hot reload disabled", "error", err)
	}

	addr := app.Config.Listen
	if c.IsSet("listen") {
		addr = c.String("listen")
	}
	if app.Config.AdminToken == "" {
		app.Logger.Warn("LOPS_ADMIN_TOKEN is not set; admin routes are open")
	}
	if !c.Bool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr: addr,
		Handler: NewRouter(Options{
			Service:    app.Service,
			Store:      app.Store,
			AdminToken: app.Config.AdminToken,
			Metrics:    app.Metrics,
			Logger:     app.Logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("api listening", "addr", addr, "sink", app.Sink.Name(), "rubric_version", app.Rubric.Current().Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
