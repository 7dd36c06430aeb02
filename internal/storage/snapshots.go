package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cajas/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by LatestSnapshot on an empty store.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore keeps past datasets so the dashboard can serve the last good
// load when the spreadsheet is unreachable.
type SnapshotStore struct {
	db      *sql.DB
	queries *Queries
}

// SnapshotInfo describes one stored snapshot without its rows.
type SnapshotInfo struct {
	ID          int64            `json:"id"`
	LoadedAt    time.Time        `json:"loaded_at"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
}

func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotStore{db: db, queries: New(db)}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSnapshot stores ds in one transaction and returns the snapshot ID.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, ds *core.Dataset) (int64, error) {
	if ds == nil {
		return 0, errors.New("nil dataset")
	}
	diag, err := json.Marshal(ds.Diagnostics)
	if err != nil {
		return 0, fmt.Errorf("encode diagnostics: %w", err)
	}
	loadedAt := ds.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := s.queries.WithTx(tx)

	id, err := q.CreateSnapshot(ctx, loadedAt.UTC().Format(time.RFC3339Nano), string(diag))
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	for i, m := range ds.Movements {
		extra, err := encodeExtra(m.Extra)
		if err != nil {
			return 0, fmt.Errorf("encode extra columns of movement %d: %w", i, err)
		}
		if err := q.InsertMovement(ctx, SnapshotMovement{
			SnapshotID: id,
			Position:   int64(i),
			Category:   m.Category,
			Period:     int64(m.Period),
			Provider:   m.Provider,
			Amount:     m.Amount.String(),
			Extra:      extra,
		}); err != nil {
			return 0, fmt.Errorf("insert movement %d: %w", i, err)
		}
	}
	for i, r := range ds.Summaries {
		if err := q.InsertSummary(ctx, SnapshotSummary{
			SnapshotID: id,
			Position:   int64(i),
			Category:   r.Category,
			Period:     int64(r.Period),
			Assigned:   r.Assigned.String(),
			Spent:      r.Spent.String(),
			Balance:    r.Balance.String(),
		}); err != nil {
			return 0, fmt.Errorf("insert summary %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recent dataset, or ErrNoSnapshot.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*core.Dataset, error) {
	snap, err := s.queries.GetLatestSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	info, err := toInfo(snap)
	if err != nil {
		return nil, err
	}

	movements, err := s.queries.ListMovements(ctx, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("list movements of snapshot %d: %w", snap.ID, err)
	}
	summaries, err := s.queries.ListSummaries(ctx, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("list summaries of snapshot %d: %w", snap.ID, err)
	}

	ds := &core.Dataset{
		SnapshotID:  snap.ID,
		LoadedAt:    info.LoadedAt,
		Diagnostics: info.Diagnostics,
		Movements:   make([]core.MovementRow, 0, len(movements)),
		Summaries:   make([]core.SummaryRow, 0, len(summaries)),
	}
	for _, m := range movements {
		amount, err := decimal.NewFromString(m.Amount)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d movement %d amount %q: %w", snap.ID, m.Position, m.Amount, err)
		}
		extra, err := decodeExtra(m.Extra)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d movement %d extra: %w", snap.ID, m.Position, err)
		}
		ds.Movements = append(ds.Movements, core.MovementRow{
			Category: m.Category,
			Period:   core.Period(m.Period),
			Provider: m.Provider,
			Amount:   amount,
			Extra:    extra,
		})
	}
	for _, r := range summaries {
		row := core.SummaryRow{Category: r.Category, Period: core.Period(r.Period)}
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{{&row.Assigned, r.Assigned}, {&row.Spent, r.Spent}, {&row.Balance, r.Balance}} {
			v, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("snapshot %d summary %d amount %q: %w", snap.ID, r.Position, f.src, err)
			}
			*f.dst = v
		}
		ds.Summaries = append(ds.Summaries, row)
	}
	return ds, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	snaps, err := s.queries.ListSnapshots(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]SnapshotInfo, 0, len(snaps))
	for _, snap := range snaps {
		info, err := toInfo(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// PruneSnapshots keeps the newest keep snapshots and returns how many were
// removed.
func (s *SnapshotStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("invalid keep %d: must be at least 1", keep)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	n, err := s.queries.WithTx(tx).DeleteOldSnapshots(ctx, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}

func toInfo(snap Snapshot) (SnapshotInfo, error) {
	info := SnapshotInfo{ID: snap.ID}
	t, err := time.Parse(time.RFC3339Nano, snap.LoadedAt)
	if err != nil {
		return info, fmt.Errorf("snapshot %d loaded_at %q: %w", snap.ID, snap.LoadedAt, err)
	}
	info.LoadedAt = t
	if err := json.Unmarshal([]byte(snap.Diagnostics), &info.Diagnostics); err != nil {
		return info, fmt.Errorf("snapshot %d diagnostics: %w", snap.ID, err)
	}
	return info, nil
}

func encodeExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeExtra(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(s.String), &extra); err != nil {
		return nil, err
	}
	return extra, nil
}
