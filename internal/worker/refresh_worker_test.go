package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cajas/internal/amqp"
	"cajas/internal/core"
)

type fakeLoader struct {
	ds           *core.Dataset
	err          error
	fromSnapshot bool
	invalidated  atomic.Int32
	loads        atomic.Int32
}

func (f *fakeLoader) Invalidate() { f.invalidated.Add(1) }

func (f *fakeLoader) Load(context.Context) (*core.Dataset, error) {
	f.loads.Add(1)
	return f.ds, f.err
}

func (f *fakeLoader) Current() (*core.Dataset, bool, bool) {
	return f.ds, f.fromSnapshot, f.ds != nil
}

type fakePruner struct{ keep int }

func (f *fakePruner) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	f.keep = keep
	return 2, nil
}

type fakePublisher struct {
	msgs []*amqp.SnapshotRefreshedMessage
	err  error
}

func (f *fakePublisher) PublishSnapshotRefreshed(_ context.Context, msg *amqp.SnapshotRefreshedMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func dataset() *core.Dataset {
	return &core.Dataset{SnapshotID: 5, LoadedAt: time.Now(), Movements: make([]core.MovementRow, 2)}
}

func TestRefreshOnce(t *testing.T) {
	loader := &fakeLoader{ds: dataset()}
	pruner := &fakePruner{}
	pub := &fakePublisher{}
	w := NewRefreshWorker(loader, pruner, pub, 10, nil)

	res, err := w.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("RefreshOnce failed: %v", err)
	}
	if loader.invalidated.Load() != 1 || loader.loads.Load() != 1 {
		t.Fatalf("expected one invalidate and one load")
	}
	if pruner.keep != 10 || res.Pruned != 2 {
		t.Fatalf("expected prune to keep 10, got keep=%d pruned=%d", pruner.keep, res.Pruned)
	}
	if !res.Published || len(pub.msgs) != 1 || pub.msgs[0].SnapshotID != 5 || pub.msgs[0].Movements != 2 {
		t.Fatalf("unexpected publish state %+v %+v", res, pub.msgs)
	}
}

func TestRefreshOnceFromSnapshotIsNotAnnounced(t *testing.T) {
	loader := &fakeLoader{ds: dataset(), fromSnapshot: true}
	pruner := &fakePruner{}
	pub := &fakePublisher{}
	w := NewRefreshWorker(loader, pruner, pub, 10, nil)

	res, err := w.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("RefreshOnce failed: %v", err)
	}
	if !res.FromSnapshot || res.Published || len(pub.msgs) != 0 || pruner.keep != 0 {
		t.Fatalf("snapshot refresh should neither prune nor publish: %+v", res)
	}
}

func TestRefreshOncePublishFailureIsNotFatal(t *testing.T) {
	loader := &fakeLoader{ds: dataset()}
	w := NewRefreshWorker(loader, nil, &fakePublisher{err: errors.New("broker down")}, 0, nil)

	res, err := w.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("publish failure should not fail the refresh: %v", err)
	}
	if res.Published {
		t.Fatal("expected Published=false")
	}
}

func TestRefreshOnceLoadError(t *testing.T) {
	loadErr := errors.New("schema")
	w := NewRefreshWorker(&fakeLoader{err: loadErr}, nil, nil, 0, nil)
	if _, err := w.RefreshOnce(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	loader := &fakeLoader{ds: dataset()}
	w := NewRefreshWorker(loader, nil, nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for loader.loads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunRejectsBadInterval(t *testing.T) {
	w := NewRefreshWorker(&fakeLoader{ds: dataset()}, nil, nil, 0, nil)
	if err := w.Run(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestHandleRefreshed(t *testing.T) {
	loader := &fakeLoader{}
	h := HandleRefreshed(loader, nil)
	if err := h(context.Background(), &amqp.SnapshotRefreshedMessage{SnapshotID: 1}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if loader.invalidated.Load() != 1 {
		t.Fatal("expected cache invalidation")
	}
}
