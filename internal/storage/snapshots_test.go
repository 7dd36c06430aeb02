package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cajas/internal/core"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "db", "cajas.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDataset(provider string) *core.Dataset {
	return &core.Dataset{
		LoadedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Movements: []core.MovementRow{
			{Category: core.Repuestos, Period: 1, Provider: provider, Amount: decimal.RequireFromString("1000.50"), Extra: map[string]any{"Detalle": "filtro"}},
			{Category: core.Petroleo, Period: 2, Provider: "Copec", Amount: decimal.RequireFromString("625500")},
		},
		Summaries: []core.SummaryRow{
			{Category: core.Repuestos, Period: 1, Assigned: decimal.NewFromInt(5000), Spent: decimal.RequireFromString("1000.50"), Balance: decimal.RequireFromString("3999.50")},
		},
		Diagnostics: core.Diagnostics{Malformed: 1, Samples: []core.Fallback{{Sheet: "M", Row: 3, Column: "Monto", Raw: "abc"}}},
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LatestSnapshot(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := sampleDataset("X")
	id, err := s.SaveSnapshot(ctx, in)
	if err != nil || id == 0 {
		t.Fatalf("save: id=%d err=%v", id, err)
	}

	got, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.SnapshotID != id || !got.LoadedAt.Equal(in.LoadedAt) {
		t.Fatalf("unexpected header %+v", got)
	}
	if len(got.Movements) != 2 || len(got.Summaries) != 1 {
		t.Fatalf("unexpected row counts %d/%d", len(got.Movements), len(got.Summaries))
	}
	m := got.Movements[0]
	if m.Provider != "X" || m.Period != 1 || !m.Amount.Equal(in.Movements[0].Amount) || m.Extra["Detalle"] != "filtro" {
		t.Fatalf("unexpected movement %+v", m)
	}
	if got.Movements[1].Extra != nil {
		t.Fatalf("expected nil extra, got %v", got.Movements[1].Extra)
	}
	if !got.Summaries[0].Balance.Equal(decimal.RequireFromString("3999.5")) {
		t.Fatalf("unexpected summary %+v", got.Summaries[0])
	}
	if got.Diagnostics.Malformed != 1 || len(got.Diagnostics.Samples) != 1 || got.Diagnostics.Samples[0].Raw != "abc" {
		t.Fatalf("unexpected diagnostics %+v", got.Diagnostics)
	}
}

func TestPruneSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, p := range []string{"A", "B", "C"} {
		if _, err := s.SaveSnapshot(ctx, sampleDataset(p)); err != nil {
			t.Fatalf("save %s: %v", p, err)
		}
	}
	n, err := s.PruneSnapshots(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 pruned, got %d err=%v", n, err)
	}
	infos, err := s.ListSnapshots(ctx, 10)
	if err != nil || len(infos) != 1 {
		t.Fatalf("expected one snapshot left, got %v err=%v", infos, err)
	}
	latest, err := s.LatestSnapshot(ctx)
	if err != nil || latest.Movements[0].Provider != "C" {
		t.Fatalf("expected newest snapshot kept, got %+v err=%v", latest, err)
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshot_movements`).Scan(&count); err != nil || count != 2 {
		t.Fatalf("expected orphan rows removed, got %d err=%v", count, err)
	}
	if _, err := s.PruneSnapshots(ctx, 0); err == nil {
		t.Fatalf("expected error for keep=0")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cajas.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
