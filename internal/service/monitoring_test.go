package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

func TestMonitoringService_SensorsBeforeFirstTick(t *testing.T) {
	r := newRig(t)
	svc := NewMonitoringService(r.ctrl)

	if _, err := svc.Sensors(context.Background()); !errors.Is(err, ErrNoReading) {
		t.Fatalf("want ErrNoReading, got %v", err)
	}
}

func TestMonitoringService_SensorsReturnsLatestSample(t *testing.T) {
	r := newRig(t)
	svc := NewMonitoringService(r.ctrl)

	r.hal.SetTemps(12.5, 38)
	r.ctrl.Tick(context.Background())

	got, err := svc.Sensors(context.Background())
	if err != nil {
		t.Fatalf("Sensors: %v", err)
	}
	if got.PlateTemp != 12.5 || got.BinTemp != 38 {
		t.Fatalf("unexpected reading: %+v", got)
	}
	if got.TakenAt.Location() != time.UTC {
		t.Fatalf("TakenAt not UTC: %v", got.TakenAt.Location())
	}
}

func TestMonitoringService_SnapshotIsACopy(t *testing.T) {
	r := newRig(t)
	svc := NewMonitoringService(r.ctrl)
	ctx := context.Background()

	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := svc.Snapshot(ctx)
	if snap.Status.State != models.StateStandby || snap.Status.PreviousState != models.StateOff {
		t.Fatalf("unexpected status: %+v", snap.Status)
	}

	snap.Relays.Compressor1 = true
	if svc.Snapshot(ctx).Relays.Compressor1 {
		t.Fatalf("mutating a snapshot leaked into the controller")
	}
}

func TestMonitoringService_SubscribeReceivesStateChanges(t *testing.T) {
	r := newRig(t)
	svc := NewMonitoringService(r.ctrl)

	events, cancel := svc.Subscribe(8)
	defer cancel()

	if err := r.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != models.EventStateChanged || ev.State.To != models.StateStandby {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
}
