package service

import (
	"context"
	"time"

	"github.com/resolvr/backend/internal/models"
)

// ComplaintStore persists complaints. Single-row updates must be atomic.
type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c models.Complaint) error
	GetComplaint(ctx context.Context, id string) (models.Complaint, error)
	ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error)
	// UpdateScores only touches pending complaints and returns
	// models.ErrComplaintResolved otherwise.
	UpdateScores(ctx context.Context, id string, s models.Scores) error
	// ResolveComplaint moves a pending complaint to resolved and stamps the
	// resolution time. The bool reports whether this call made the change.
	ResolveComplaint(ctx context.Context, id string, at time.Time) (models.Complaint, bool, error)
	ComplaintStats(ctx context.Context) (models.ComplaintStats, error)
}

// AgentStore persists agents and the per-agent views the distributor needs.
type AgentStore interface {
	UpsertAgent(ctx context.Context, a models.Agent) error
	SetAgentStatus(ctx context.Context, id string, status string) error
	// ListAgentLoads returns every agent with its pending-complaint count,
	// average pending priority and efficiency for the given day.
	ListAgentLoads(ctx context.Context, day time.Time) ([]models.AgentLoad, error)
	GetAgentLoad(ctx context.Context, id string, day time.Time) (models.AgentLoad, error)
	// ListPendingByAgent orders by priority ascending, then id.
	ListPendingByAgent(ctx context.Context, agentID string) ([]models.Complaint, error)
	// AssignComplaint sets the complaint's agent and adds its priority to the
	// agent's cumulative workload in one transaction. It only writes while the
	// complaint is pending and unassigned and the agent is available; the bool
	// is false when any of that no longer holds.
	AssignComplaint(ctx context.Context, complaintID, agentID string) (bool, error)
	// MoveComplaint reassigns a pending complaint only if it is still held by
	// from, shifting its priority between the two workload counters. The bool
	// is false when the complaint was no longer eligible to move.
	MoveComplaint(ctx context.Context, complaintID, from, to string) (bool, error)
	// SyncWorkloads resets every agent's workload to the sum of the priorities
	// of its pending complaints.
	SyncWorkloads(ctx context.Context) error
	SetEfficiency(ctx context.Context, agentID string, day time.Time, score float64) error
}

type CallbackStore interface {
	UpsertCallback(ctx context.Context, cb models.Callback) error
	GetCallback(ctx context.Context, complaintID string) (models.Callback, error)
	// ListPendingCallbacks orders by scheduled time ascending.
	ListPendingCallbacks(ctx context.Context) ([]models.PendingCallback, error)
	// CompleteCallback returns models.ErrNotFound when no callback exists and
	// succeeds without change when it is already completed.
	CompleteCallback(ctx context.Context, complaintID string, at time.Time) error
}

type CallStore interface {
	InsertCallSummary(ctx context.Context, cs models.CallSummary) error
	ListCallSummaries(ctx context.Context, since time.Time) ([]models.CallSummary, error)
}

type ArticleStore interface {
	InsertArticle(ctx context.Context, a models.Article) error
	// SearchArticles matches case-insensitively on title, content or any tag,
	// bumps usage_count of every hit and returns hits by usage descending.
	SearchArticles(ctx context.Context, query string) ([]models.Article, error)
	PopularArticles(ctx context.Context, limit int) ([]models.Article, error)
}

// Store is everything the triage engine reads and writes.
type Store interface {
	ComplaintStore
	AgentStore
	CallbackStore
	CallStore
	ArticleStore
}

// Clock is swapped out in tests.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
