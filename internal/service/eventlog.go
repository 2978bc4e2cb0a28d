package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

// Journal listings return at most MaxLogLimit entries, DefaultLogLimit when
// the filter leaves Limit at zero.
const (
	DefaultLogLimit = 500
	MaxLogLimit     = 5000
)

// ErrInvalidLogFilter marks a filter rejected before the journal is queried.
var ErrInvalidLogFilter = errors.New("invalid log filter")

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// normalizeFilter converts bounds to UTC, canonicalizes the type and clamps
// the limit.
func normalizeFilter(f LogFilter) (LogFilter, error) {
	out := LogFilter{
		From:  toUTC(f.From),
		To:    toUTC(f.To),
		Type:  strings.ToUpper(strings.TrimSpace(f.Type)),
		Limit: f.Limit,
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidLogFilter,
			out.From.Format(time.RFC3339), out.To.Format(time.RFC3339))
	}
	if !models.IsLogType(out.Type) {
		return LogFilter{}, fmt.Errorf("%w: unknown type %q", ErrInvalidLogFilter, out.Type)
	}
	switch {
	case out.Limit < 0:
		return LogFilter{}, fmt.Errorf("%w: negative limit %d", ErrInvalidLogFilter, out.Limit)
	case out.Limit == 0:
		out.Limit = DefaultLogLimit
	case out.Limit > MaxLogLimit:
		out.Limit = MaxLogLimit
	}
	return out, nil
}

func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// List returns matching journal entries oldest first. When more than Limit
// match, the newest Limit are kept.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.LogEvent, error) {
	nf, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.List(ctx, nf.From, nf.To, nf.Type)
	if err != nil {
		return nil, err
	}
	if len(events) > nf.Limit {
		events = events[len(events)-nf.Limit:]
	}
	return events, nil
}
