package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/resolvr/backend/internal/db"
	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/models"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fixture struct {
	store       *db.MemoryStore
	events      *events.Recorder
	callbacks   *CallbackScheduler
	distributor *Distributor
}

func newFixture() *fixture {
	store := db.NewMemoryStore()
	rec := &events.Recorder{}
	return &fixture{
		store:  store,
		events: rec,
		callbacks: &CallbackScheduler{
			Store: store, Publisher: rec, Logger: zerolog.Nop(), Clock: fixedClock,
		},
		distributor: &Distributor{
			Store: store, Publisher: rec, Logger: zerolog.Nop(), Clock: fixedClock,
		},
	}
}

func (f *fixture) agent(t *testing.T, id, status string) {
	t.Helper()
	require.NoError(t, f.store.UpsertAgent(context.Background(), models.Agent{ID: id, Name: "Agent " + id, Status: status}))
}

func (f *fixture) complaint(t *testing.T, id string, priority float64) models.Complaint {
	t.Helper()
	c := models.Complaint{
		ID:            id,
		CustomerName:  "Customer " + id,
		CustomerPhone: "555-0100",
		Description:   "complaint " + id,
		Scores:        models.Scores{Sentiment: 0.5, Urgency: 0.5, Politeness: 0.5, Priority: priority},
		Status:        models.ComplaintPending,
		CreatedAt:     fixedNow,
	}
	require.NoError(t, f.store.CreateComplaint(context.Background(), c))
	return c
}

// holding gives agent n pending complaints with increasing priority.
func (f *fixture) holding(t *testing.T, agentID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%02d", agentID, i)
		f.complaint(t, id, 0.1+float64(i)*0.05)
		ok, err := f.store.AssignComplaint(context.Background(), id, agentID)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func (f *fixture) active(t *testing.T, agentID string) int {
	t.Helper()
	load, err := f.store.GetAgentLoad(context.Background(), agentID, fixedNow)
	require.NoError(t, err)
	return load.ActiveComplaints
}

type fixedScorer struct {
	scores models.Scores
	calls  int
}

func (s *fixedScorer) Score(context.Context, string) models.Scores {
	s.calls++
	return s.scores
}

var errBoom = errors.New("boom")

// failingStore wraps the memory store and fails the selected operations.
type failingStore struct {
	*db.MemoryStore
	failCreate   bool
	failCallback bool
	failLoads    bool
}

func (s *failingStore) CreateComplaint(ctx context.Context, c models.Complaint) error {
	if s.failCreate {
		return errBoom
	}
	return s.MemoryStore.CreateComplaint(ctx, c)
}

func (s *failingStore) UpsertCallback(ctx context.Context, cb models.Callback) error {
	if s.failCallback {
		return errBoom
	}
	return s.MemoryStore.UpsertCallback(ctx, cb)
}

func (s *failingStore) ListAgentLoads(ctx context.Context, day time.Time) ([]models.AgentLoad, error) {
	if s.failLoads {
		return nil, errBoom
	}
	return s.MemoryStore.ListAgentLoads(ctx, day)
}
