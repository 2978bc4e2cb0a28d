package service

import (
	"context"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/models"
)

type MonitoringService struct {
	ctrl *controller.Controller
}

func NewMonitoringService(ctrl *controller.Controller) *MonitoringService {
	return &MonitoringService{ctrl: ctrl}
}

// Snapshot returns status, relays, and the latest reading as one copy.
func (s *MonitoringService) Snapshot(ctx context.Context) models.Snapshot {
	snap := s.ctrl.Snapshot()
	snap.Status.StateEnteredAt = toUTC(snap.Status.StateEnteredAt)
	return snap
}

// Sensors returns the latest sample taken by the scheduler. It does not touch
// the hardware, so API polling never competes with the control loop.
func (s *MonitoringService) Sensors(ctx context.Context) (models.SensorReading, error) {
	snap := s.ctrl.Snapshot()
	if snap.Reading == nil {
		return models.SensorReading{}, ErrNoReading
	}
	r := *snap.Reading
	r.TakenAt = toUTC(r.TakenAt)
	return r, nil
}

func (s *MonitoringService) Subscribe(buf int) (<-chan models.Event, func()) {
	return s.ctrl.Subscribe(buf)
}
