package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cajas/internal/cli"
	"cajas/internal/log"
	"cajas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting cajas-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	parent, stop := context.WithCancel(context.Background())
	defer stop()

	rt, err := cli.Bootstrap(parent, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize data source", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	rt.CheckSheets(parent)

	var pruner worker.SnapshotPruner
	if rt.Store != nil {
		pruner = rt.Store
	} else {
		logger.Info("Snapshots disabled - refreshes will not be persisted")
	}

	var publisher worker.Publisher
	if client := rt.ConnectAMQP(parent); client != nil {
		publisher = client
	} else {
		logger.Info("AMQP disabled - web servers rely on their cache TTL")
	}

	w := worker.NewRefreshWorker(rt.Dataset, pruner, publisher, cfg.SnapshotKeep, logger)

	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(context.Context) {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err.Error())
		}
	})

	if err := w.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Refresh worker stopped", log.FieldError, err.Error())
		stop()
		<-done
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
