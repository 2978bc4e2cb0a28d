package service

import (
	"context"
	"errors"
	"testing"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
)

func TestRestore_AppliesConfigCounterAndState(t *testing.T) {
	r := newRig(t)
	r.configs.stored, r.configs.ok = map[string]any{"ice.target_temp_f": -5.0}, true
	r.counter.n = 17
	r.states.loadRec = models.StateRecord{State: models.StateIdle, PreviousState: models.Chill(models.Rechill), CycleCount: 12}
	r.states.loadOK = true

	if err := Restore(context.Background(), r.ctrl, r.repos, logger.Nop()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.ctrl.Config().Ice.TargetTemp != -5 {
		t.Fatalf("stored config not applied")
	}
	snap := r.ctrl.Snapshot()
	if snap.Status.State != models.StateIdle {
		t.Fatalf("state = %s, want IDLE", snap.Status.State)
	}
	if snap.Status.CycleCount != 17 {
		t.Fatalf("cycle count = %d, want the counter table value 17", snap.Status.CycleCount)
	}
}

func TestRestore_InterruptedCycleRestartsAtPrechill(t *testing.T) {
	r := newRig(t)
	r.states.loadRec = models.StateRecord{State: models.StateHeat, PreviousState: models.StateIce}
	r.states.loadOK = true

	if err := Restore(context.Background(), r.ctrl, r.repos, logger.Nop()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := r.ctrl.State(); got != models.Chill(models.Prechill) {
		t.Fatalf("state = %s, want CHILL:PRECHILL", got)
	}
}

func TestRestore_InvalidStoredConfigIsSkipped(t *testing.T) {
	r := newRig(t)
	r.configs.stored, r.configs.ok = map[string]any{"harvest.target_temp_f": 0.0, "ice.target_temp_f": 5.0}, true

	if err := Restore(context.Background(), r.ctrl, r.repos, logger.Nop()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.ctrl.Config() != models.DefaultCycleConfig() {
		t.Fatalf("invalid stored config was applied")
	}
}

func TestRestore_OverridesKeepFileConfigForOtherFields(t *testing.T) {
	file := models.DefaultCycleConfig()
	file.Rechill.TargetTemp = 33
	file.HarvestFillSeconds = 22

	r := newRig(t)
	r.ctrl = controller.New(r.hal, r.counter, logger.Nop(), controller.WithConfig(file))
	svc := NewConfigurationService(r.ctrl, r.configs, r.events, logger.Nop())
	if _, err := svc.Update(context.Background(), map[string]any{"ice.target_temp_f": -4.0}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// next boot, config.yml edited since
	file.Rechill.TargetTemp = 34
	next := controller.New(r.hal, r.counter, logger.Nop(), controller.WithConfig(file))
	if err := Restore(context.Background(), next, r.repos, logger.Nop()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got := next.Config()
	if got.Ice.TargetTemp != -4 {
		t.Fatalf("override lost: ice target = %v", got.Ice.TargetTemp)
	}
	if got.Rechill.TargetTemp != 34 || got.HarvestFillSeconds != 22 {
		t.Fatalf("file config masked: rechill=%v fill=%d", got.Rechill.TargetTemp, got.HarvestFillSeconds)
	}
}

func TestRestore_NothingStored(t *testing.T) {
	r := newRig(t)
	if err := Restore(context.Background(), r.ctrl, r.repos, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := r.ctrl.State(); got != models.StateOff {
		t.Fatalf("state = %s, want OFF", got)
	}
}

func TestRestore_RepositoryErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*rig)
	}{
		{name: "config", setup: func(r *rig) { r.configs.loadErr = errors.New("boom") }},
		{name: "counter", setup: func(r *rig) { r.counter.loadErr = errors.New("boom") }},
		{name: "state", setup: func(r *rig) { r.states.loadErr = errors.New("boom") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t)
			tc.setup(r)
			if err := Restore(context.Background(), r.ctrl, r.repos, logger.Nop()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPersist_SavesCurrentRecord(t *testing.T) {
	r := newRig(t)
	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := Persist(context.Background(), r.ctrl, r.repos); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	saves := r.states.saved()
	if len(saves) != 1 || saves[0].State != models.StateStandby || saves[0].ID != 1 {
		t.Fatalf("unexpected saves: %+v", saves)
	}

	r.states.saveErr = errors.New("closed")
	if err := Persist(context.Background(), r.ctrl, r.repos); err == nil {
		t.Fatalf("expected save error")
	}
}
