package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
	"github.com/apophisnow/icemaker/internal/repository/db"
)

func TestInitDB_CreatesSchema(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "icemaker.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	for _, table := range []string{"icemaker_state", "cycle_counter", "cycle_config", "icemaker_events"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icemaker.db")
	first, err := db.InitDB(path)
	if err != nil {
		t.Fatalf("first InitDB: %v", err)
	}
	_ = first.Close()

	second, err := db.InitDB(path)
	if err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
	_ = second.Close()
}

func TestRepositories_RoundTripOnSQLite(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "icemaker.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	repos := repository.NewRepository(conn)
	ctx := context.Background()

	if err := repos.CounterRepo.SaveCycleCount(ctx, 3); err != nil {
		t.Fatalf("SaveCycleCount: %v", err)
	}
	if err := repos.CounterRepo.SaveCycleCount(ctx, 4); err != nil {
		t.Fatalf("SaveCycleCount again: %v", err)
	}
	if n, err := repos.CounterRepo.LoadCycleCount(ctx); err != nil || n != 4 {
		t.Fatalf("LoadCycleCount = %d, %v", n, err)
	}

	overrides := map[string]any{"rechill.target_temp_f": 33.0}
	if err := repos.ConfigRepo.Save(ctx, overrides); err != nil {
		t.Fatalf("config Save: %v", err)
	}
	got, ok, err := repos.ConfigRepo.Load(ctx)
	if err != nil || !ok || len(got) != 1 || got["rechill.target_temp_f"] != 33.0 {
		t.Fatalf("config Load = %+v, %v, %v", got, ok, err)
	}
	if err := repos.ConfigRepo.Clear(ctx); err != nil {
		t.Fatalf("config Clear: %v", err)
	}
	if _, ok, _ := repos.ConfigRepo.Load(ctx); ok {
		t.Fatalf("config still present after Clear")
	}

	rec := models.StateRecord{State: models.StateIdle, PreviousState: models.Chill(models.Rechill), CycleCount: 4}
	if err := repos.StateRepo.Save(ctx, rec); err != nil {
		t.Fatalf("state Save: %v", err)
	}
	loaded, ok, err := repos.StateRepo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("state Load = %v, %v", ok, err)
	}
	if loaded.State != models.StateIdle || loaded.PreviousState != models.Chill(models.Rechill) || loaded.CycleCount != 4 {
		t.Fatalf("state Load = %+v", loaded)
	}
}
