package models

import (
	"errors"
	"time"
)

const (
	ComplaintPending  = "pending"
	ComplaintResolved = "resolved"

	AgentAvailable   = "available"
	AgentUnavailable = "unavailable"

	CallbackPending   = "pending"
	CallbackCompleted = "completed"

	// NeutralScore stands in for any sub-score the oracle could not produce.
	NeutralScore = 0.5
)

var (
	ErrNotFound          = errors.New("not found")
	ErrComplaintResolved = errors.New("complaint already resolved")
)

type Scores struct {
	Sentiment  float64 `json:"sentiment_score"`
	Urgency    float64 `json:"urgency_score"`
	Politeness float64 `json:"politeness_score"`
	Priority   float64 `json:"priority_score"`
}

type Complaint struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Description   string     `json:"description"`
	Scores
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolutionTime *int64     `json:"resolution_seconds,omitempty"`
	AssignedAgent  *string    `json:"assigned_agent"`
}

type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	CurrentWorkload float64   `json:"current_workload"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AgentLoad is an agent joined with its live pending-complaint statistics
// and today's efficiency. Reads are best-effort, never snapshot-isolated.
type AgentLoad struct {
	Agent
	ActiveComplaints int     `json:"active_complaints"`
	AvgPriority      float64 `json:"avg_priority"`
	Efficiency       float64 `json:"efficiency_score"`
}

type Workload struct {
	AgentID          string  `json:"agent_id"`
	ActiveComplaints int     `json:"active_complaints"`
	AvgPriority      float64 `json:"avg_priority"`
	TodayEfficiency  float64 `json:"efficiency_score"`
}

type Callback struct {
	ComplaintID   string    `json:"complaint_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PendingCallback is a callback joined with the complaint fields an operator
// needs to work the queue.
type PendingCallback struct {
	Callback
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	Description   string  `json:"description"`
	Priority      float64 `json:"priority_score"`
}

type ComplaintFilter struct {
	Status   string
	Priority string
	Query    string
	Limit    int
	Offset   int
}

type CallSummary struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id"`
	ComplaintID      string    `json:"complaint_id"`
	DurationSeconds  int64     `json:"duration_seconds"`
	Satisfaction     float64   `json:"satisfaction_score"`
	Resolved         bool      `json:"resolved"`
	RequiredCallback bool      `json:"required_callback"`
	Summary          string    `json:"summary"`
	CreatedAt        time.Time `json:"created_at"`
}

type TeamMetrics struct {
	TotalCalls           int     `json:"total_calls"`
	AvgResolutionSeconds float64 `json:"avg_resolution_seconds"`
	AvgSatisfaction      float64 `json:"avg_satisfaction"`
	CallbackRate         float64 `json:"callback_rate"`
}

type ComplaintStats struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	AvgPriority float64 `json:"avg_priority"`
}

type Dashboard struct {
	Total           int      `json:"total"`
	Pending         int      `json:"pending"`
	AvgPriority     float64  `json:"avg_priority"`
	AvgSatisfaction float64  `json:"avg_satisfaction"`
	CallbackRate    float64  `json:"callback_rate"`
	Insights        []string `json:"insights"`
}

type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	BandAll    = "all"
	BandLow    = "low"
	BandMedium = "medium"
	BandHigh   = "high"
)

// PriorityBand buckets a priority the way the complaint list filters do:
// low < 0.4 <= medium < 0.7 <= high.
func PriorityBand(priority float64) string {
	switch {
	case priority >= 0.7:
		return BandHigh
	case priority >= 0.4:
		return BandMedium
	default:
		return BandLow
	}
}
