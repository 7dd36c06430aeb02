package worker

import (
	"context"
	"fmt"
	"time"

	"cajas/internal/amqp"
	"cajas/internal/core"
	"cajas/internal/log"
)

// DatasetLoader is the part of services.DatasetService the worker drives.
type DatasetLoader interface {
	Invalidate()
	Load(ctx context.Context) (*core.Dataset, error)
	Current() (*core.Dataset, bool, bool)
}

type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

type Publisher interface {
	PublishSnapshotRefreshed(ctx context.Context, msg *amqp.SnapshotRefreshedMessage) error
}

// RefreshResult describes one refresh cycle.
type RefreshResult struct {
	Dataset      *core.Dataset
	FromSnapshot bool
	Pruned       int64
	Published    bool
}

// RefreshWorker reloads the sheets on a schedule, keeps the snapshot table
// bounded and tells the web servers to drop their cached dataset.
type RefreshWorker struct {
	loader    DatasetLoader
	pruner    SnapshotPruner
	publisher Publisher
	keep      int
	logger    *log.Logger
}

// NewRefreshWorker builds a worker. pruner and publisher may be nil.
func NewRefreshWorker(loader DatasetLoader, pruner SnapshotPruner, publisher Publisher, keep int, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &RefreshWorker{
		loader:    loader,
		pruner:    pruner,
		publisher: publisher,
		keep:      keep,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// RefreshOnce forces a reload. A dataset served from a snapshot is not
// announced, since nothing new was read.
func (w *RefreshWorker) RefreshOnce(ctx context.Context) (RefreshResult, error) {
	w.loader.Invalidate()
	ds, err := w.loader.Load(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load dataset: %w", err)
	}
	res := RefreshResult{Dataset: ds}
	if current, fromSnapshot, ok := w.loader.Current(); ok && current == ds {
		res.FromSnapshot = fromSnapshot
	}
	if res.FromSnapshot {
		w.logger.WarnContext(ctx, "Refresh served from snapshot, source unavailable",
			log.FieldSnapshotID, ds.SnapshotID)
		return res, nil
	}

	if w.pruner != nil && w.keep > 0 {
		n, err := w.pruner.PruneSnapshots(ctx, w.keep)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to prune snapshots",
				log.FieldError, err.Error(),
				log.FieldOperation, log.OpPrune)
		} else {
			res.Pruned = n
		}
	}

	if w.publisher == nil {
		w.logger.DebugContext(ctx, "AMQP client not available, skipping refresh message")
	} else if err := w.publisher.PublishSnapshotRefreshed(ctx, amqp.NewSnapshotRefreshedMessage(ds)); err != nil {
		// The reload itself succeeded; servers pick it up when their cache expires.
		w.logger.ErrorContext(ctx, "Failed to publish refresh message",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpPublish)
	} else {
		res.Published = true
	}

	w.logger.InfoContext(ctx, "Refresh completed",
		log.FieldSnapshotID, ds.SnapshotID,
		log.FieldMovements, len(ds.Movements),
		log.FieldSummaries, len(ds.Summaries),
		"pruned", res.Pruned,
		"published", res.Published)
	return res, nil
}

// Run refreshes immediately and then every interval until ctx is cancelled.
// Failed cycles are logged and retried on the next tick.
func (w *RefreshWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	w.logger.InfoContext(ctx, "Refresh worker started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.RefreshOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Refresh failed",
				log.FieldError, err.Error(),
				log.FieldOperation, log.OpRefresh)
		}
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Refresh worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// HandleRefreshed is the AMQP handler used by web servers: it drops the
// cached dataset so the next request reads the new one.
func HandleRefreshed(loader interface{ Invalidate() }, logger *log.Logger) func(context.Context, *amqp.SnapshotRefreshedMessage) error {
	if logger == nil {
		logger = log.Discard()
	}
	return func(ctx context.Context, msg *amqp.SnapshotRefreshedMessage) error {
		loader.Invalidate()
		logger.InfoContext(ctx, "Dataset cache invalidated by refresh message",
			log.FieldSnapshotID, msg.SnapshotID,
			log.FieldOperation, log.OpConsume)
		return nil
	}
}
