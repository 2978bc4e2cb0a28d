package service

import (
	"context"
	"errors"
	"time"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

var (
	// ErrSimulatorUnavailable is returned by Simulation when the machine runs on real hardware.
	ErrSimulatorUnavailable = errors.New("simulator not enabled")
	// ErrNoReading means no successful sensor sample has been taken yet.
	ErrNoReading = errors.New("no sensor reading yet")
)

// Icemaker exposes the operator commands. Every accepted command is journaled.
type Icemaker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnterDiagnostic(ctx context.Context) error
	ExitDiagnostic(ctx context.Context) error
	SetRelay(ctx context.Context, name models.RelayName, on bool) error
	Execute(ctx context.Context, cmd string) error
}

// Monitoring exposes read-only controller state and the live event stream.
type Monitoring interface {
	Snapshot(ctx context.Context) models.Snapshot
	Sensors(ctx context.Context) (models.SensorReading, error)
	Subscribe(buf int) (<-chan models.Event, func())
}

// Configuration reads and changes the cycle configuration at runtime.
type Configuration interface {
	Get(ctx context.Context) models.CycleConfig
	Update(ctx context.Context, update map[string]any) (models.CycleConfig, error)
	Reset(ctx context.Context) (models.CycleConfig, error)
	Schema() []models.ConfigField
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.LogEvent, error)
}

// Simulation controls the thermal model. Every method returns
// ErrSimulatorUnavailable on real hardware.
type Simulation interface {
	Status(ctx context.Context) (SimulationStatus, error)
	SetSpeed(ctx context.Context, multiplier float64) (SimulationStatus, error)
	Reset(ctx context.Context) (SimulationStatus, error)
}

// Scheduler drives the controller. Stop via context cancellation in main().
type Scheduler interface {
	Run(ctx context.Context)
}

// Journal persists controller events and state snapshots until ctx ends.
type Journal interface {
	Run(ctx context.Context)
}

// Service aggregates all sub-services.
type Service struct {
	Icemaker
	Monitoring
	Configuration
	EventLog
	Simulation
	Scheduler
	Journal
}

// NewService wires the controller and the repository layer into concrete
// services. sim may be nil when running on real hardware.
func NewService(ctrl *controller.Controller, repos *repository.Repository, sim hal.SimulationControl, log *logger.Logger, journalOpts ...JournalOption) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		Icemaker:      NewIcemakerService(ctrl, repos.EventRepo, log),
		Monitoring:    NewMonitoringService(ctrl),
		Configuration: NewConfigurationService(ctrl, repos.ConfigRepo, repos.EventRepo, log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Simulation:    NewSimulationService(sim, log),
		Scheduler:     NewSchedulerService(ctrl, log),
		Journal:       NewJournalService(ctrl, repos.StateRepo, repos.EventRepo, log, journalOpts...),
	}
}

// journal appends e, logging instead of failing: a lost journal entry never
// blocks a command.
func journal(ctx context.Context, repo repository.EventRepo, log *logger.Logger, e models.LogEvent) {
	if repo == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := repo.Append(ctx, e); err != nil {
		log.Warnw("journal_append_failed", "type", e.Type, "err", err)
	}
}
