package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

type IcemakerService struct {
	ctrl      *controller.Controller
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewIcemakerService(ctrl *controller.Controller, eventRepo repository.EventRepo, log *logger.Logger) *IcemakerService {
	return &IcemakerService{ctrl: ctrl, eventRepo: eventRepo, log: log}
}

func (s *IcemakerService) Start(ctx context.Context) error {
	return s.run(ctx, controller.CmdStart, nil, s.ctrl.Start)
}

func (s *IcemakerService) Stop(ctx context.Context) error {
	return s.run(ctx, controller.CmdStop, nil, s.ctrl.Stop)
}

// EmergencyStop always succeeds; relay write failures are only logged by the controller.
func (s *IcemakerService) EmergencyStop(ctx context.Context) error {
	return s.run(ctx, controller.CmdEmergencyStop, nil, func() error {
		s.ctrl.EmergencyStop()
		return nil
	})
}

func (s *IcemakerService) Shutdown(ctx context.Context) error {
	return s.run(ctx, controller.CmdShutdown, nil, s.ctrl.RequestShutdown)
}

func (s *IcemakerService) EnterDiagnostic(ctx context.Context) error {
	return s.run(ctx, controller.CmdEnterDiagnostic, nil, s.ctrl.EnterDiagnostic)
}

func (s *IcemakerService) ExitDiagnostic(ctx context.Context) error {
	return s.run(ctx, controller.CmdExitDiagnostic, nil, s.ctrl.ExitDiagnostic)
}

func (s *IcemakerService) SetRelay(ctx context.Context, name models.RelayName, on bool) error {
	meta := map[string]any{"relay": name, "on": on}
	return s.run(ctx, controller.CmdSetRelay, meta, func() error {
		return s.ctrl.SetRelay(name, on)
	})
}

// Execute dispatches a command by name, as received from the MQTT command
// topic. Names are matched case-insensitively; dashes are accepted for
// underscores.
func (s *IcemakerService) Execute(ctx context.Context, cmd string) error {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cmd)), "-", "_") {
	case controller.CmdStart:
		return s.Start(ctx)
	case controller.CmdStop:
		return s.Stop(ctx)
	case controller.CmdEmergencyStop:
		return s.EmergencyStop(ctx)
	case controller.CmdShutdown:
		return s.Shutdown(ctx)
	case controller.CmdEnterDiagnostic:
		return s.EnterDiagnostic(ctx)
	case controller.CmdExitDiagnostic:
		return s.ExitDiagnostic(ctx)
	}
	return fmt.Errorf("%w: unknown command %q", models.ErrInvalidCommand, cmd)
}

// run executes fn and journals the command if it was accepted.
func (s *IcemakerService) run(ctx context.Context, cmd string, meta map[string]any, fn func() error) error {
	before := s.ctrl.State()
	if err := fn(); err != nil {
		s.log.Warnw("command_rejected", "command", cmd, "state", before.String(), "err", err)
		return err
	}
	after := s.ctrl.State()
	s.log.Infow("command_accepted", "command", cmd, "from", before.String(), "to", after.String())

	if meta == nil {
		meta = map[string]any{}
	}
	meta["from"] = before.String()
	meta["to"] = after.String()
	journal(ctx, s.eventRepo, s.log, models.LogEvent{
		Type:        models.LogCommand,
		Description: cmd,
		Metadata:    meta,
	})
	return nil
}
