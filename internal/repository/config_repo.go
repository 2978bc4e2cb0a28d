package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ConfigSQLite keeps the cycle config fields changed at runtime so they
// survive a restart. Only the overridden dotted keys are stored, as one JSON
// object; every other field comes from the config file at boot.
type ConfigSQLite struct {
	db *sql.DB
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite { return &ConfigSQLite{db: db} }

const (
	configRowID = 1

	upsertConfigSQL = `
		INSERT INTO cycle_config (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at
	`

	selectConfigSQL = `SELECT payload FROM cycle_config WHERE id=?`
	deleteConfigSQL = `DELETE FROM cycle_config WHERE id=?`
)

func (r *ConfigSQLite) Save(ctx context.Context, overrides map[string]any) error {
	b, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("marshal config overrides: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertConfigSQL, configRowID, string(b), time.Now().UTC())
	return err
}

// Load returns the stored overrides keyed by dotted field name. ok is false
// when none were saved. JSON numbers come back as float64.
func (r *ConfigSQLite) Load(ctx context.Context) (map[string]any, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, selectConfigSQL, configRowID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	overrides := map[string]any{}
	if err := json.Unmarshal([]byte(payload), &overrides); err != nil {
		return nil, false, fmt.Errorf("decode stored config overrides: %w", err)
	}
	return overrides, true, nil
}

// Clear drops the stored overrides; the next boot uses the config file alone.
func (r *ConfigSQLite) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, deleteConfigSQL, configRowID)
	return err
}
