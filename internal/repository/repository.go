package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

type StateRepo interface {
	Save(ctx context.Context, rec models.StateRecord) error
	Load(ctx context.Context) (models.StateRecord, bool, error)
}

// CounterRepo satisfies controller.CycleStore.
type CounterRepo interface {
	LoadCycleCount(ctx context.Context) (int64, error)
	SaveCycleCount(ctx context.Context, n int64) error
}

// ConfigRepo stores runtime config overrides keyed by dotted field name.
type ConfigRepo interface {
	Save(ctx context.Context, overrides map[string]any) error
	Load(ctx context.Context) (map[string]any, bool, error)
	Clear(ctx context.Context) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.LogEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.LogEvent, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	StateRepo   StateRepo
	CounterRepo CounterRepo
	ConfigRepo  ConfigRepo
	EventRepo   EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:   NewStateSQLite(db),
		CounterRepo: NewCounterSQLite(db),
		ConfigRepo:  NewConfigSQLite(db),
		EventRepo:   NewEventSQLite(db),
	}
}

// utcOrNow normalizes a timestamp for storage.
func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
