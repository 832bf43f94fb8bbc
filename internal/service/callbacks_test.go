package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvr/backend/internal/db"
	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/models"
)

func TestCallbackDelayTiers(t *testing.T) {
	cases := []struct {
		priority float64
		want     time.Duration
	}{
		{1.0, time.Hour},
		{0.9, time.Hour},
		{0.8, time.Hour},
		{0.79, 3 * time.Hour},
		{0.65, 3 * time.Hour},
		{0.5, 3 * time.Hour},
		{0.49, 6 * time.Hour},
		{0.3, 6 * time.Hour},
		{0, 6 * time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CallbackDelay(tc.priority), "priority %v", tc.priority)
	}
}

func TestScheduleCallback(t *testing.T) {
	f := newFixture()
	f.complaint(t, "c1", 0.9)

	at, err := f.callbacks.Schedule(context.Background(), "c1", 0.9)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), at)

	cb, err := f.store.GetCallback(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CallbackPending, cb.Status)
	assert.Equal(t, at, cb.ScheduledTime)
	assert.Equal(t, []string{events.CallbackScheduled}, f.events.Types())
}

func TestRescheduleOverwrites(t *testing.T) {
	f := newFixture()
	f.complaint(t, "c1", 0.3)
	ctx := context.Background()

	_, err := f.callbacks.Schedule(ctx, "c1", 0.3)
	require.NoError(t, err)
	at, err := f.callbacks.Schedule(ctx, "c1", 0.65)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(3*time.Hour), at)

	pending, err := f.callbacks.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, at, pending[0].ScheduledTime)
}

func TestScheduleReturnsTimeOnFailure(t *testing.T) {
	store := &failingStore{MemoryStore: db.NewMemoryStore(), failCallback: true}
	s := &CallbackScheduler{Store: store, Logger: zerolog.Nop(), Clock: fixedClock}

	at, err := s.Schedule(context.Background(), "c1", 0.5)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, fixedNow.Add(3*time.Hour), at)
}

func TestListPendingOrderedBySchedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for id, p := range map[string]float64{"low": 0.2, "high": 0.95, "mid": 0.6} {
		f.complaint(t, id, p)
		_, err := f.callbacks.Schedule(ctx, id, p)
		require.NoError(t, err)
	}

	pending, err := f.callbacks.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "high", pending[0].ComplaintID)
	assert.Equal(t, "mid", pending[1].ComplaintID)
	assert.Equal(t, "low", pending[2].ComplaintID)
}

func TestCompleteCallbackIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.complaint(t, "c1", 0.5)
	_, err := f.callbacks.Schedule(ctx, "c1", 0.5)
	require.NoError(t, err)

	require.NoError(t, f.callbacks.Complete(ctx, "c1"))
	require.NoError(t, f.callbacks.Complete(ctx, "c1"))
	assert.Equal(t, []string{events.CallbackScheduled, events.CallbackCompleted}, f.events.Types())

	pending, err := f.callbacks.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, f.callbacks.Complete(ctx, "missing"), models.ErrNotFound)
}
