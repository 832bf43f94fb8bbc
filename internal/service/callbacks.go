package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/models"
)

const (
	HighPriorityThreshold   = 0.8
	MediumPriorityThreshold = 0.5

	HighPriorityDelay   = time.Hour
	MediumPriorityDelay = 3 * time.Hour
	LowPriorityDelay    = 6 * time.Hour
)

// CallbackDelay is the wait before a callback for the given priority.
// Boundary values belong to the higher tier.
func CallbackDelay(priority float64) time.Duration {
	switch {
	case priority >= HighPriorityThreshold:
		return HighPriorityDelay
	case priority >= MediumPriorityThreshold:
		return MediumPriorityDelay
	default:
		return LowPriorityDelay
	}
}

func callbackTier(d time.Duration) string {
	switch d {
	case HighPriorityDelay:
		return "high"
	case MediumPriorityDelay:
		return "medium"
	default:
		return "low"
	}
}

type CallbackScheduler struct {
	Store     CallbackStore
	Publisher events.Publisher
	Logger    zerolog.Logger
	Clock     Clock
}

// Schedule upserts the complaint's callback at now + CallbackDelay(priority).
// The computed time is returned even when persisting fails so the caller can
// report it and retry.
func (s *CallbackScheduler) Schedule(ctx context.Context, complaintID string, priority float64) (time.Time, error) {
	now := s.Clock.now()
	delay := CallbackDelay(priority)
	at := now.Add(delay)

	err := s.Store.UpsertCallback(ctx, models.Callback{
		ComplaintID:   complaintID,
		ScheduledTime: at,
		Status:        models.CallbackPending,
		UpdatedAt:     now,
	})
	if err != nil {
		return at, fmt.Errorf("schedule callback for %s: %w", complaintID, err)
	}

	metrics.CallbacksScheduledTotal.WithLabelValues(callbackTier(delay)).Inc()
	publish(ctx, s.Publisher, s.Logger, events.New(events.CallbackScheduled, complaintID, map[string]any{
		"scheduled_time": at,
		"priority":       priority,
	}))
	return at, nil
}

func (s *CallbackScheduler) ListPending(ctx context.Context) ([]models.PendingCallback, error) {
	return s.Store.ListPendingCallbacks(ctx)
}

// Complete is idempotent; completing a completed callback is a no-op.
func (s *CallbackScheduler) Complete(ctx context.Context, complaintID string) error {
	cb, err := s.Store.GetCallback(ctx, complaintID)
	if err != nil {
		return err
	}
	if cb.Status == models.CallbackCompleted {
		return nil
	}
	if err := s.Store.CompleteCallback(ctx, complaintID, s.Clock.now()); err != nil {
		return fmt.Errorf("complete callback for %s: %w", complaintID, err)
	}
	publish(ctx, s.Publisher, s.Logger, events.New(events.CallbackCompleted, complaintID, nil))
	return nil
}

func publish(ctx context.Context, p events.Publisher, logger zerolog.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn().Err(err).Str("event", e.Type).Str("complaint_id", e.ComplaintID).Msg("event publish failed")
	}
}
