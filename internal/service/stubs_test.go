package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/hal"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

// ---- Test doubles ----

// fakeEventRepo is a minimal stub that satisfies the repository.EventRepo interface.
type fakeEventRepo struct {
	mu sync.Mutex

	// captured inputs
	gotCtx  context.Context
	gotFrom time.Time
	gotTo   time.Time
	gotType string
	appends []models.LogEvent

	// configured outputs
	events    []models.LogEvent
	err       error
	appendErr error

	calls int

	prunedBefore []time.Time
	pruneErr     error
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.LogEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCtx = ctx
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeEventRepo) Prune(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunedBefore = append(f.prunedBefore, before)
	return 0, f.pruneErr
}

func (f *fakeEventRepo) prunes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.prunedBefore...)
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.LogEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, e)
	return nil
}

func (f *fakeEventRepo) appended() []models.LogEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LogEvent(nil), f.appends...)
}

func (f *fakeEventRepo) ofType(typ string) []models.LogEvent {
	var out []models.LogEvent
	for _, e := range f.appended() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type stateRepoStub struct {
	mu      sync.Mutex
	loadRec models.StateRecord
	loadOK  bool
	loadErr error
	saveErr error
	saves   []models.StateRecord
}

func (s *stateRepoStub) Save(ctx context.Context, rec models.StateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, rec)
	return s.saveErr
}

func (s *stateRepoStub) Load(ctx context.Context) (models.StateRecord, bool, error) {
	return s.loadRec, s.loadOK, s.loadErr
}

func (s *stateRepoStub) saved() []models.StateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StateRecord(nil), s.saves...)
}

type configRepoStub struct {
	stored  map[string]any
	ok      bool
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (c *configRepoStub) Save(ctx context.Context, overrides map[string]any) error {
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.stored, c.ok = overrides, true
	return nil
}

func (c *configRepoStub) Load(ctx context.Context) (map[string]any, bool, error) {
	if c.loadErr != nil || !c.ok {
		return nil, false, c.loadErr
	}
	out := make(map[string]any, len(c.stored))
	for k, v := range c.stored {
		out[k] = v
	}
	return out, true, nil
}

func (c *configRepoStub) Clear(ctx context.Context) error {
	c.clears++
	c.stored, c.ok = nil, false
	return nil
}

type counterStub struct {
	n       int64
	loadErr error
}

func (c *counterStub) LoadCycleCount(ctx context.Context) (int64, error) { return c.n, c.loadErr }
func (c *counterStub) SaveCycleCount(ctx context.Context, n int64) error { c.n = n; return nil }

// rig is a controller on a fake HAL with a manual clock, plus stub repositories.
type rig struct {
	hal     *hal.Fake
	ctrl    *controller.Controller
	repos   *repository.Repository
	events  *fakeEventRepo
	states  *stateRepoStub
	configs *configRepoStub
	counter *counterStub
	now     time.Time
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		hal:     hal.NewFake(70, 40),
		events:  &fakeEventRepo{},
		states:  &stateRepoStub{},
		configs: &configRepoStub{},
		counter: &counterStub{},
		now:     time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	r.repos = &repository.Repository{
		StateRepo:   r.states,
		CounterRepo: r.counter,
		ConfigRepo:  r.configs,
		EventRepo:   r.events,
	}
	r.ctrl = controller.New(r.hal, r.counter, logger.Nop(), controller.WithClock(func() time.Time { return r.now }))
	return r
}
