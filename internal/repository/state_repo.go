package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apophisnow/icemaker/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	stateRowID = 1

	upsertStateSQL = `
		INSERT INTO icemaker_state (id, state, previous_state, cycle_count, shutdown_requested, last_fault, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			previous_state=excluded.previous_state,
			cycle_count=excluded.cycle_count,
			shutdown_requested=excluded.shutdown_requested,
			last_fault=excluded.last_fault,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, state, previous_state, cycle_count, shutdown_requested, last_fault, updated_at
		FROM icemaker_state WHERE id=?
	`
)

// Save upserts the icemaker_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, rec models.StateRecord) error {
	if rec.State.IsZero() {
		return fmt.Errorf("save state: empty state")
	}
	_, err := r.db.ExecContext(ctx, upsertStateSQL,
		stateRowID,
		rec.State.String(),
		rec.PreviousState.String(),
		rec.CycleCount,
		rec.ShutdownRequested,
		rec.LastFault,
		utcOrNow(rec.UpdatedAt),
	)
	return err
}

// Load fetches the snapshot row. ok is false when nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.StateRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, stateRowID)

	var (
		rec       models.StateRecord
		state     string
		prev      string
		lastFault sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&state,
		&prev,
		&rec.CycleCount,
		&rec.ShutdownRequested,
		&lastFault,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StateRecord{}, false, nil
		}
		return models.StateRecord{}, false, err
	}

	var err error
	if rec.State, err = models.ParseState(state); err != nil {
		return models.StateRecord{}, false, fmt.Errorf("stored state: %w", err)
	}
	if prev != "" {
		if rec.PreviousState, err = models.ParseState(prev); err != nil {
			return models.StateRecord{}, false, fmt.Errorf("stored previous state: %w", err)
		}
	}
	rec.LastFault = lastFault.String
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, true, nil
}
