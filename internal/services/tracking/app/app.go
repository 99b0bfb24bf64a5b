// Package app wires the tracking runtime: configuration, storage, services,
// and the HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/punchcard-hq/punchcard/internal/platform/config"
	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/platform/otel"
	"github.com/punchcard-hq/punchcard/internal/services/tracking"
	trackinghttp "github.com/punchcard-hq/punchcard/internal/services/tracking/api/http"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/domain/shiftcal"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/projection"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage/sqlite"
)

// shutdownGrace bounds how long in-flight requests may drain on stop.
const shutdownGrace = 10 * time.Second

// Env is the process configuration, populated from the environment.
type Env struct {
	HTTPAddr    string `env:"PUNCHCARD_HTTP_ADDR" envDefault:":8080"`
	DBPath      string `env:"PUNCHCARD_DB_PATH" envDefault:"data/punchcard.db"`
	ShiftZone   string `env:"PUNCHCARD_SHIFT_ZONE" envDefault:"Europe/Berlin"`
	LogLevel    string `env:"PUNCHCARD_LOG_LEVEL" envDefault:"info"`
	Environment string `env:"PUNCHCARD_ENV" envDefault:"production"`
}

// LoadEnv reads configuration from the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := config.ParseEnv(&env); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return env, nil
}

// Run boots the service and serves until the context is cancelled.
func Run(ctx context.Context, env Env) error {
	log := logx.New("punchcard", env.Environment, env.LogLevel)

	shutdownTracing, err := otel.Setup(ctx, "punchcard")
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "app.tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	cal, err := shiftcal.New(env.ShiftZone)
	if err != nil {
		return fmt.Errorf("load shift zone %q: %w", env.ShiftZone, err)
	}

	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", env.DBPath, err)
	}
	defer store.Close()

	monthly := projection.NewMonthly(store, cal, log)
	handler := &trackinghttp.Handler{
		Shifts:  tracking.NewShiftService(store, monthly, cal, log),
		Stats:   tracking.NewStatsService(store),
		Rebuild: tracking.NewRebuildService(store, monthly, log),
		Log:     log,
	}
	server := trackinghttp.NewServer(env.HTTPAddr, handler, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.Info(ctx, "app.started",
		slog.String("addr", env.HTTPAddr),
		slog.String("db_path", env.DBPath),
		slog.String("shift_zone", env.ShiftZone),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		err := <-serveErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info(context.Background(), "app.stopped")
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}
