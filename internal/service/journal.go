package service

import (
	"context"
	"fmt"
	"time"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

// JournalService follows the controller event stream. State changes and
// faults go to the event log, and every state change refreshes the persisted
// snapshot. Temperature samples are not journaled. Entries are stamped with
// wall time; the controller's own time (simulated time under the simulator)
// is kept in the "at" metadata.
//
// With a retention set, entries older than it are pruned at start and then
// every prune interval.
type JournalService struct {
	ctrl      *controller.Controller
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	log       *logger.Logger

	retention  time.Duration
	pruneEvery time.Duration
	now        func() time.Time
}

// DefaultPruneInterval is how often expired journal entries are removed.
const DefaultPruneInterval = time.Hour

type JournalOption func(*JournalService)

// WithRetention keeps journal entries for d. Zero keeps them forever.
func WithRetention(d time.Duration) JournalOption {
	return func(s *JournalService) { s.retention = d }
}

func WithPruneInterval(d time.Duration) JournalOption {
	return func(s *JournalService) {
		if d > 0 {
			s.pruneEvery = d
		}
	}
}

func withJournalClock(now func() time.Time) JournalOption {
	return func(s *JournalService) { s.now = now }
}

func NewJournalService(ctrl *controller.Controller, stateRepo repository.StateRepo, eventRepo repository.EventRepo, log *logger.Logger, opts ...JournalOption) *JournalService {
	s := &JournalService{
		ctrl:       ctrl,
		stateRepo:  stateRepo,
		eventRepo:  eventRepo,
		log:        log,
		pruneEvery: DefaultPruneInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes events until ctx is canceled.
func (s *JournalService) Run(ctx context.Context) {
	events, cancel := s.ctrl.Subscribe(controller.DefaultSubscriberBuffer)
	defer cancel()

	var prune <-chan time.Time
	if s.retention > 0 && s.eventRepo != nil {
		s.prune(ctx)
		t := time.NewTicker(s.pruneEvery)
		defer t.Stop()
		prune = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-prune:
			s.prune(ctx)
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *JournalService) handle(ctx context.Context, ev models.Event) {
	switch ev.Type {
	case models.EventStateChanged:
		if ev.State == nil {
			return
		}
		journal(ctx, s.eventRepo, s.log, models.LogEvent{
			Type:        models.LogStateChange,
			Description: fmt.Sprintf("%s -> %s", ev.State.From, ev.State.To),
			Metadata: map[string]any{
				"from":   ev.State.From.String(),
				"to":     ev.State.To.String(),
				"reason": ev.State.Reason,
				"at":     ev.At.UTC(),
			},
		})
		s.SaveSnapshot(ctx)
	case models.EventFaultRaised:
		if ev.Fault == nil {
			return
		}
		journal(ctx, s.eventRepo, s.log, models.LogEvent{
			Type:        models.LogFault,
			Description: ev.Fault.Message,
			Metadata: map[string]any{
				"kind":  ev.Fault.Kind,
				"state": ev.Fault.State.String(),
				"at":    ev.At.UTC(),
			},
		})
	}
}

func (s *JournalService) prune(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.eventRepo.Prune(ctx, cutoff)
	if err != nil {
		s.log.Warnw("journal_prune_failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Infow("journal_pruned", "deleted", n, "before", cutoff.UTC())
	}
}

// SaveSnapshot persists the controller's current state record.
func (s *JournalService) SaveSnapshot(ctx context.Context) {
	if s.stateRepo == nil {
		return
	}
	if err := s.stateRepo.Save(ctx, s.ctrl.Record()); err != nil {
		s.log.Warnw("state_persist_failed", "err", err)
	}
}
