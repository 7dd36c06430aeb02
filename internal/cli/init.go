// Package cli provides common CLI initialization utilities shared by
// cmd/cajas, cmd/cajas-worker and cmd/cajas-report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cajas/internal/amqp"
	"cajas/internal/backend"
	"cajas/internal/config"
	"cajas/internal/log"
	"cajas/internal/services"
	"cajas/internal/storage"
)

// SetupLogger initializes structured logging at LOG_LEVEL and sets it as the
// default logger.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// Runtime holds the components every command builds from the configuration.
type Runtime struct {
	Config  *config.Config
	Logger  *log.Logger
	Source  backend.Source
	Store   *storage.SnapshotStore
	Dataset *services.DatasetService

	cleanup []func() error
}

// Bootstrap opens the data source and the snapshot store and builds the
// dataset service. The store is optional: when it cannot be opened the
// service runs without snapshot fallback.
func Bootstrap(ctx context.Context, logger *log.Logger, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	bindings, columns, err := config.LoadBindings(cfg.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("load category bindings: %w", err)
	}

	srcCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateSource(ctx, srcCfg)
	if err != nil {
		return nil, err
	}
	rt.Source = res.Source
	if res.Cleanup != nil {
		rt.cleanup = append(rt.cleanup, res.Cleanup)
	}

	opts := services.DatasetOptions{
		Bindings: bindings,
		Columns:  columns,
		Policy:   cfg.Policy(),
		CacheTTL: cfg.CacheTTL,
		Logger:   logger,
	}
	if cfg.SnapshotsEnabled() {
		store, err := storage.NewSnapshotStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.WarnContext(ctx, "Snapshot store unavailable, continuing without fallback",
				log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		} else {
			rt.Store = store
			opts.Store = store
			rt.cleanup = append(rt.cleanup, store.Close)
			logger.InfoContext(ctx, "Opened snapshot store", "path", cfg.SQLiteDBPath, "keep", cfg.SnapshotKeep)
		}
	}

	rt.Dataset = services.NewDatasetService(res.Source, opts)
	logger.InfoContext(ctx, "Dataset service ready",
		"backend", cfg.DataBackend,
		"categories", len(bindings),
		"policy", string(opts.Policy))
	return rt, nil
}

// CheckSheets logs the bound worksheets the source does not have. It is a
// startup hint only; loads report the same problem as a configuration error.
func (rt *Runtime) CheckSheets(ctx context.Context) {
	missing, err := backend.MissingSheets(ctx, rt.Source, rt.Dataset.Bindings())
	if err != nil {
		rt.Logger.WarnContext(ctx, "Could not list worksheets", log.FieldError, err.Error())
		return
	}
	if len(missing) > 0 {
		rt.Logger.WarnContext(ctx, "Bound worksheets not found in source", "missing", missing)
	}
}

// ConnectAMQP returns a client when AMQP is configured, or nil. A broker
// that cannot be reached is logged and skipped.
func (rt *Runtime) ConnectAMQP(ctx context.Context) *amqp.Client {
	if !rt.Config.AMQPEnabled() {
		return nil
	}
	client, err := amqp.NewClient(rt.Config.AMQPURL, rt.Config.AMQPExchange, rt.Config.AMQPQueue, rt.Logger)
	if err != nil {
		rt.Logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications",
			log.FieldError, err.Error())
		return nil
	}
	rt.cleanup = append(rt.cleanup, client.Close)
	rt.Logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", rt.Config.AMQPExchange,
		"queue", rt.Config.AMQPQueue)
	return client
}

// Close releases everything Bootstrap and ConnectAMQP opened, newest first.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		if err := rt.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.cleanup = nil
	return errors.Join(errs...)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT, SIGTERM or when parent is
// done, and a channel that is closed once cleanup has run.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
