package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/simulator"
)

func TestSimulationService_RealHardware(t *testing.T) {
	svc := NewSimulationService(nil, logger.Nop())
	ctx := context.Background()

	st, err := svc.Status(ctx)
	if err != nil || st.Enabled || st.Model != nil {
		t.Fatalf("Status on real hardware = %+v, %v", st, err)
	}
	if _, err := svc.SetSpeed(ctx, 10); !errors.Is(err, ErrSimulatorUnavailable) {
		t.Fatalf("SetSpeed: got %v", err)
	}
	if _, err := svc.Reset(ctx); !errors.Is(err, ErrSimulatorUnavailable) {
		t.Fatalf("Reset: got %v", err)
	}
}

func TestSimulationService_SpeedIsClamped(t *testing.T) {
	wall := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sim := hal.NewSimulated(simulator.New(), hal.WithWallClock(func() time.Time { return wall }))
	svc := NewSimulationService(sim, logger.Nop())
	ctx := context.Background()

	st, err := svc.SetSpeed(ctx, 5000)
	if err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if !st.Enabled || st.Speed != hal.MaxSpeed {
		t.Fatalf("SetSpeed(5000) = %+v, want clamp to %v", st, hal.MaxSpeed)
	}
	if st, _ = svc.SetSpeed(ctx, 0); st.Speed != hal.MinSpeed {
		t.Fatalf("SetSpeed(0) = %v, want %v", st.Speed, hal.MinSpeed)
	}
}

func TestSimulationService_ResetRestoresInitialConditions(t *testing.T) {
	wall := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sim := hal.NewSimulated(simulator.New(), hal.WithWallClock(func() time.Time { return wall }))
	svc := NewSimulationService(sim, logger.Nop())
	ctx := context.Background()

	sim.ResetTo(simulator.Initial{PlateF: 10, WaterF: 40, BinF: 30, WaterLiters: 0.5, BinIceKg: 2})
	st, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	def := simulator.DefaultInitial()
	if st.Model == nil || st.Model.PlateF != def.PlateF || st.Model.BinIceKg != def.BinIceKg {
		t.Fatalf("Reset model = %+v, want defaults %+v", st.Model, def)
	}
}
