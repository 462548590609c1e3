// Command ehr-worker serves the record tools on stdin/stdout. It owns the
// only database connection and releases it on every exit path.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/config"
	"github.com/triage-ai/ehr-gateway/internal/registry"
	"github.com/triage-ai/ehr-gateway/internal/store"
	"github.com/triage-ai/ehr-gateway/internal/worker"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ehr-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Stdout is the protocol channel.
	logger := config.MustBuildLogger(config.EnvOrDefault("EHR_WORKER_LOG_LEVEL", "info"), "stderr")
	defer logger.Sync() //nolint:errcheck // best-effort flush

	driver := config.EnvOrDefault("EHR_DB_DRIVER", "sqlite")
	dsn := config.EnvOrDefault("EHR_DB_DSN", "ehr.db")
	seed := config.EnvOrDefaultBool("EHR_DB_SEED", false)
	secret := os.Getenv("EHR_ACCESS_SECRET")

	if secret == "" {
		logger.Warn("EHR_ACCESS_SECRET is empty, every tool call will be denied")
	}

	dialect, err := store.ParseDialect(driver)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.Open(openCtx, dialect, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	if seed {
		if err := st.Migrate(openCtx); err != nil {
			return err
		}
		if err := st.Seed(openCtx, time.Now()); err != nil {
			return err
		}
		logger.Info("store migrated and seeded")
	}

	reg := registry.Default()
	gate := auth.NewStaticGate(secret, reg.Names()...)
	srv := worker.NewServer(gate, st, reg, logger)

	logger.Debug("worker serving",
		zap.String("driver", dialect.String()),
		zap.Strings("tools", reg.Names()),
	)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
		return nil
	}
}
