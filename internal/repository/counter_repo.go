package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type CounterSQLite struct {
	db *sql.DB
}

func NewCounterSQLite(db *sql.DB) *CounterSQLite { return &CounterSQLite{db: db} }

const (
	counterRowID = 1

	upsertCounterSQL = `
		INSERT INTO cycle_counter (id, cycles, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cycles=excluded.cycles,
			updated_at=excluded.updated_at
	`

	selectCounterSQL = `SELECT cycles FROM cycle_counter WHERE id=?`
)

// LoadCycleCount returns the lifetime harvest count, zero if never saved.
func (r *CounterSQLite) LoadCycleCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, selectCounterSQL, counterRowID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (r *CounterSQLite) SaveCycleCount(ctx context.Context, n int64) error {
	_, err := r.db.ExecContext(ctx, upsertCounterSQL, counterRowID, n, time.Now().UTC())
	return err
}
