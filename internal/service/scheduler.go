package service

import (
	"context"
	"time"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
)

// MinPollInterval bounds how fast the control loop can spin.
const MinPollInterval = 50 * time.Millisecond

// SchedulerService ticks the controller at the configured poll interval. The
// interval is re-read after every tick, so config changes apply at once.
type SchedulerService struct {
	ctrl *controller.Controller
	log  *logger.Logger
}

func NewSchedulerService(ctrl *controller.Controller, log *logger.Logger) *SchedulerService {
	return &SchedulerService{ctrl: ctrl, log: log}
}

// Run ticks until ctx is canceled. The first tick happens immediately.
func (s *SchedulerService) Run(ctx context.Context) {
	s.log.Infow("scheduler_started", "poll_s", s.ctrl.Config().PollIntervalSeconds)
	defer s.log.Infow("scheduler_stopped")

	t := time.NewTimer(0)
	defer t.Stop()
	var last models.State
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap := s.ctrl.Tick(ctx)
			if snap.Status.State != last {
				s.log.Debugw("tick", "state", snap.Status.State.String(), "cycles", snap.Status.CycleCount)
				last = snap.Status.State
			}
			t.Reset(pollInterval(s.ctrl.Config()))
		}
	}
}

func pollInterval(cfg models.CycleConfig) time.Duration {
	d := cfg.PollInterval()
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}
