package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

var stateCols = []string{"id", "state", "previous_state", "cycle_count", "shutdown_requested", "last_fault", "updated_at"}

const selectStatePrefix = "SELECT id, state, previous_state, cycle_count, shutdown_requested, last_fault, updated_at"

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestStateSQLite_Save_SetsUTCWhenTimeZero(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	rec := models.StateRecord{
		State:         models.StateIce,
		PreviousState: models.Chill(models.Prechill),
		CycleCount:    12,
	}

	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok || tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO icemaker_state")).
		WithArgs(1, "ICE", "CHILL:PRECHILL", int64(12), false, "", isUTCRecent).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_ConvertsGivenTimeToUTC(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	original := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("UTC+9", 9*3600))
	rec := models.StateRecord{
		State:             models.StateError,
		PreviousState:     models.StateHeat,
		ShutdownRequested: true,
		LastFault:         "PHASE_TIMEOUT: heat",
		UpdatedAt:         original,
	}

	isExactUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		return ok && tm.Equal(original) && tm.Location() == time.UTC
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO icemaker_state")).
		WithArgs(1, "ERROR", "HEAT", int64(0), true, "PHASE_TIMEOUT: heat", isExactUTC).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_RejectsEmptyState(t *testing.T) {
	db, _ := newMock(t)
	repo := repository.NewStateSQLite(db)

	if err := repo.Save(context.Background(), models.StateRecord{}); err == nil {
		t.Fatalf("Save() expected error for empty state")
	}
}

func TestStateSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO icemaker_state")).
		WillReturnError(errors.New("db down"))

	if err := repo.Save(context.Background(), models.StateRecord{State: models.StateOff}); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestStateSQLite_Load_NoRows(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectStatePrefix)).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, ok, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if ok || !got.State.IsZero() {
		t.Fatalf("Load() expected nothing, got ok=%v %+v", ok, got)
	}
}

func TestStateSQLite_Load_HappyPath(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	rows := sqlmock.NewRows(stateCols).
		AddRow(1, "CHILL:RECHILL", "HEAT", int64(42), true, nil, nonUTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectStatePrefix)).
		WithArgs(1).
		WillReturnRows(rows)

	got, ok, err := repo.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if got.ID != 1 ||
		got.State != models.Chill(models.Rechill) ||
		got.PreviousState != models.StateHeat ||
		got.CycleCount != 42 ||
		!got.ShutdownRequested ||
		got.LastFault != "" {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC || !got.UpdatedAt.Equal(nonUTC) {
		t.Fatalf("Load() UpdatedAt = %v", got.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Load_UnknownStateIsAnError(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewStateSQLite(db)

	rows := sqlmock.NewRows(stateCols).
		AddRow(1, "MELTING", "", int64(0), false, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(selectStatePrefix)).
		WithArgs(1).
		WillReturnRows(rows)

	if _, _, err := repo.Load(context.Background()); err == nil {
		t.Fatalf("Load() expected error for unknown state")
	}
}

// Helpers

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}
