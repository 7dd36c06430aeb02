package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cajas/internal/amqp"
	"cajas/internal/cache"
	"cajas/internal/cli"
	"cajas/internal/core"
	apphttp "cajas/internal/http"
	"cajas/internal/log"
	"cajas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	parent, stop := context.WithCancel(context.Background())
	defer stop()

	rt, err := cli.Bootstrap(parent, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize data source", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	rt.CheckSheets(parent)

	caches := cache.NewManager(logger)
	for _, c := range rt.Dataset.Cleaners() {
		caches.Register(c)
	}
	caches.StartCleanup(time.Minute)

	opts := apphttp.Options{Logger: logger}
	if rt.Store != nil {
		opts.Ready = rt.Store.Ping
	}

	amqpClient := rt.ConnectAMQP(parent)
	if amqpClient != nil {
		// Announce manual reloads so other replicas drop their cache too.
		opts.OnReload = func(ctx context.Context, ds *core.Dataset) {
			if err := amqpClient.PublishSnapshotRefreshed(ctx, amqp.NewSnapshotRefreshedMessage(ds)); err != nil {
				logger.WarnContext(ctx, "Failed to announce reload", log.FieldError, err.Error())
			}
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, rt.Dataset, opts)

	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		if err := rt.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err.Error())
		}
	})

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSnapshotRefreshed(ctx, worker.HandleRefreshed(rt.Dataset, logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped", log.FieldError, err.Error())
			}
		}()
	}

	// Warm the cache; a failure here is reported again on the first request.
	go func() {
		if _, err := rt.Dataset.Load(ctx); err != nil {
			logger.WarnContext(ctx, "Initial dataset load failed", log.FieldError, err.Error())
		}
	}()

	logger.Info("Starting cajas server", "port", cfg.Port, "backend", cfg.DataBackend, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		stop()
		<-done
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
