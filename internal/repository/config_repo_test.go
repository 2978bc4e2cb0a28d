package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apophisnow/icemaker/internal/repository"
)

func TestConfigSQLite_SaveStoresOnlyOverrides(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewConfigSQLite(db)

	overrides := map[string]any{"ice.target_temp_f": -4.0, "harvest_fill_s": 25}

	isOverridesJSON := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		var got map[string]any
		if json.Unmarshal([]byte(s), &got) != nil {
			return false
		}
		return reflect.DeepEqual(got, map[string]any{"ice.target_temp_f": -4.0, "harvest_fill_s": 25.0})
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cycle_config")).
		WithArgs(1, isOverridesJSON, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), overrides); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfigSQLite_LoadMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewConfigSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM cycle_config")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	_, ok, err := repo.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
}

func TestConfigSQLite_LoadReturnsStoredKeys(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewConfigSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM cycle_config")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"harvest_fill_s": 25}`))

	got, ok, err := repo.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	want := map[string]any{"harvest_fill_s": 25.0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
}

func TestConfigSQLite_LoadCorruptPayload(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewConfigSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM cycle_config")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{oops`))

	if _, _, err := repo.Load(context.Background()); err == nil {
		t.Fatalf("Load() expected decode error")
	}
}

func TestConfigSQLite_Clear(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewConfigSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cycle_config")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
