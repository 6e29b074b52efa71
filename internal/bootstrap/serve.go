package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

// Serve runs the HTTP API until ctx is done, then drains requests and running analyses.
func Serve(ctx context.Context, app *App) error {
	srv := &http.Server{
		Addr:              server.Addr(app.Config.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("server.listening", map[string]any{"addr": srv.Addr, "env": app.Config.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	telemetry.Info("server.shutting_down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	app.Close()
	return nil
}
