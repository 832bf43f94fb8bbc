package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/models"
)

const (
	TargetResolution   = 24 * time.Hour
	TargetSatisfaction = 0.7
	MaxCallbackRate    = 30.0
)

type Analytics struct {
	Complaints ComplaintStore
	Calls      CallStore
	Agents     AgentStore
	Logger     zerolog.Logger
	Clock      Clock
}

type CallRequest struct {
	AgentID          string  `json:"agent_id" validate:"required"`
	ComplaintID      string  `json:"complaint_id"`
	DurationSeconds  int64   `json:"duration_seconds" validate:"gte=0"`
	Satisfaction     float64 `json:"satisfaction_score" validate:"gte=0,lte=1"`
	Resolved         bool    `json:"resolved"`
	RequiredCallback bool    `json:"required_callback"`
	Summary          string  `json:"summary" validate:"max=10000"`
}

func (a *Analytics) RecordCall(ctx context.Context, req CallRequest) (models.CallSummary, error) {
	cs := models.CallSummary{
		ID:               uuid.NewString(),
		AgentID:          req.AgentID,
		ComplaintID:      req.ComplaintID,
		DurationSeconds:  req.DurationSeconds,
		Satisfaction:     req.Satisfaction,
		Resolved:         req.Resolved,
		RequiredCallback: req.RequiredCallback,
		Summary:          req.Summary,
		CreatedAt:        a.Clock.now(),
	}
	if err := a.Calls.InsertCallSummary(ctx, cs); err != nil {
		return models.CallSummary{}, fmt.Errorf("record call: %w", err)
	}
	return cs, nil
}

// TeamMetrics aggregates every recorded call. CallbackRate is a percentage.
func (a *Analytics) TeamMetrics(ctx context.Context) (models.TeamMetrics, error) {
	calls, err := a.Calls.ListCallSummaries(ctx, time.Time{})
	if err != nil {
		return models.TeamMetrics{}, err
	}
	return teamMetrics(calls), nil
}

func teamMetrics(calls []models.CallSummary) models.TeamMetrics {
	m := models.TeamMetrics{TotalCalls: len(calls)}
	if len(calls) == 0 {
		return m
	}
	var duration int64
	var satisfaction float64
	var callbacks int
	for _, c := range calls {
		duration += c.DurationSeconds
		satisfaction += c.Satisfaction
		if c.RequiredCallback {
			callbacks++
		}
	}
	n := float64(len(calls))
	m.AvgResolutionSeconds = float64(duration) / n
	m.AvgSatisfaction = satisfaction / n
	m.CallbackRate = float64(callbacks) / n * 100
	return m
}

func Insights(m models.TeamMetrics) []string {
	insights := []string{}
	if m.TotalCalls == 0 {
		return insights
	}
	if m.AvgResolutionSeconds > TargetResolution.Seconds() {
		insights = append(insights, "Resolution times are higher than target. Consider additional training.")
	}
	if m.AvgSatisfaction < TargetSatisfaction {
		insights = append(insights, "Customer satisfaction is below target. Review call quality.")
	}
	if m.CallbackRate > MaxCallbackRate {
		insights = append(insights, "High callback rate detected. Evaluate first-call resolution strategies.")
	}
	return insights
}

func (a *Analytics) Dashboard(ctx context.Context) (models.Dashboard, error) {
	stats, err := a.Complaints.ComplaintStats(ctx)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("complaint stats: %w", err)
	}
	team, err := a.TeamMetrics(ctx)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("team metrics: %w", err)
	}
	return models.Dashboard{
		Total:           stats.Total,
		Pending:         stats.Pending,
		AvgPriority:     stats.AvgPriority,
		AvgSatisfaction: team.AvgSatisfaction,
		CallbackRate:    team.CallbackRate,
		Insights:        Insights(team),
	}, nil
}

// RecomputeEfficiency scores each agent with calls on the given day as
// resolution rate times average satisfaction, and stores it as that day's
// efficiency.
func (a *Analytics) RecomputeEfficiency(ctx context.Context, day time.Time) (map[string]float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	calls, err := a.Calls.ListCallSummaries(ctx, start)
	if err != nil {
		return nil, err
	}

	type tally struct {
		n, resolved  int
		satisfaction float64
	}
	byAgent := map[string]*tally{}
	for _, c := range calls {
		if !c.CreatedAt.Before(end) {
			continue
		}
		t, ok := byAgent[c.AgentID]
		if !ok {
			t = &tally{}
			byAgent[c.AgentID] = t
		}
		t.n++
		t.satisfaction += c.Satisfaction
		if c.Resolved {
			t.resolved++
		}
	}

	out := make(map[string]float64, len(byAgent))
	for agentID, t := range byAgent {
		score := float64(t.resolved) / float64(t.n) * (t.satisfaction / float64(t.n))
		if err := a.Agents.SetEfficiency(ctx, agentID, start, score); err != nil {
			return out, fmt.Errorf("set efficiency for %s: %w", agentID, err)
		}
		out[agentID] = score
	}
	a.Logger.Info().Int("agents", len(out)).Time("day", start).Msg("efficiency recomputed")
	return out, nil
}
