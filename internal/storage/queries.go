package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type (
	Snapshot struct {
		ID          int64
		LoadedAt    string
		Diagnostics string
	}

	SnapshotMovement struct {
		SnapshotID int64
		Position   int64
		Category   string
		Period     int64
		Provider   string
		Amount     string
		Extra      sql.NullString
	}

	SnapshotSummary struct {
		SnapshotID int64
		Position   int64
		Category   string
		Period     int64
		Assigned   string
		Spent      string
		Balance    string
	}
)

const createSnapshot = `INSERT INTO snapshots (loaded_at, diagnostics) VALUES (?, ?)`

func (q *Queries) CreateSnapshot(ctx context.Context, loadedAt, diagnostics string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createSnapshot, loadedAt, diagnostics)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertMovement = `INSERT INTO snapshot_movements
    (snapshot_id, position, category, period, provider, amount, extra)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertMovement(ctx context.Context, m SnapshotMovement) error {
	_, err := q.db.ExecContext(ctx, insertMovement,
		m.SnapshotID, m.Position, m.Category, m.Period, m.Provider, m.Amount, m.Extra)
	return err
}

const insertSummary = `INSERT INTO snapshot_summaries
    (snapshot_id, position, category, period, assigned, spent, balance)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSummary(ctx context.Context, s SnapshotSummary) error {
	_, err := q.db.ExecContext(ctx, insertSummary,
		s.SnapshotID, s.Position, s.Category, s.Period, s.Assigned, s.Spent, s.Balance)
	return err
}

const getLatestSnapshot = `SELECT id, loaded_at, diagnostics FROM snapshots ORDER BY id DESC LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := q.db.QueryRowContext(ctx, getLatestSnapshot).Scan(&s.ID, &s.LoadedAt, &s.Diagnostics)
	return s, err
}

const listSnapshots = `SELECT id, loaded_at, diagnostics FROM snapshots ORDER BY id DESC LIMIT ?`

func (q *Queries) ListSnapshots(ctx context.Context, limit int64) ([]Snapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.LoadedAt, &s.Diagnostics); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const listMovements = `SELECT snapshot_id, position, category, period, provider, amount, extra
    FROM snapshot_movements WHERE snapshot_id = ? ORDER BY position`

func (q *Queries) ListMovements(ctx context.Context, snapshotID int64) ([]SnapshotMovement, error) {
	rows, err := q.db.QueryContext(ctx, listMovements, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotMovement
	for rows.Next() {
		var m SnapshotMovement
		if err := rows.Scan(&m.SnapshotID, &m.Position, &m.Category, &m.Period, &m.Provider, &m.Amount, &m.Extra); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listSummaries = `SELECT snapshot_id, position, category, period, assigned, spent, balance
    FROM snapshot_summaries WHERE snapshot_id = ? ORDER BY position`

func (q *Queries) ListSummaries(ctx context.Context, snapshotID int64) ([]SnapshotSummary, error) {
	rows, err := q.db.QueryContext(ctx, listSummaries, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotSummary
	for rows.Next() {
		var s SnapshotSummary
		if err := rows.Scan(&s.SnapshotID, &s.Position, &s.Category, &s.Period, &s.Assigned, &s.Spent, &s.Balance); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const keepClause = `NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`

const deleteOldMovements = `DELETE FROM snapshot_movements WHERE snapshot_id ` + keepClause

const deleteOldSummaries = `DELETE FROM snapshot_summaries WHERE snapshot_id ` + keepClause

const deleteOldSnapshots = `DELETE FROM snapshots WHERE id ` + keepClause

// DeleteOldSnapshots removes every snapshot but the newest keep and returns
// the number of snapshots removed.
func (q *Queries) DeleteOldSnapshots(ctx context.Context, keep int64) (int64, error) {
	if _, err := q.db.ExecContext(ctx, deleteOldMovements, keep); err != nil {
		return 0, err
	}
	if _, err := q.db.ExecContext(ctx, deleteOldSummaries, keep); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteOldSnapshots, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
