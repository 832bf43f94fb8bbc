package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/models"
)

// Distributor assigns complaints to agents and keeps their load balanced.
// Agent state is read without isolation; every decision tolerates data that
// is already stale by the time it is written back.
type Distributor struct {
	Store     AgentStore
	Publisher events.Publisher
	Logger    zerolog.Logger
	Clock     Clock
}

func (d *Distributor) Workload(ctx context.Context, agentID string) (models.Workload, error) {
	load, err := d.Store.GetAgentLoad(ctx, agentID, d.Clock.now())
	if err != nil {
		return models.Workload{}, err
	}
	return models.Workload{
		AgentID:          load.ID,
		ActiveComplaints: load.ActiveComplaints,
		AvgPriority:      load.AvgPriority,
		TodayEfficiency:  load.Efficiency,
	}, nil
}

// BestAgent returns the available agent with the fewest pending complaints,
// preferring higher efficiency and then the lower id. ok is false when no
// agent is available. Priority does not influence the choice; it is accepted
// so callers route every decision through one place.
func (d *Distributor) BestAgent(ctx context.Context, priority float64) (string, bool, error) {
	loads, err := d.Store.ListAgentLoads(ctx, d.Clock.now())
	if err != nil {
		return "", false, fmt.Errorf("list agent loads: %w", err)
	}
	best, ok := PickBestAgent(loads)
	if !ok {
		return "", false, nil
	}
	return best.ID, true, nil
}

// Assign picks the best agent for the complaint and records the assignment,
// which adds the complaint's priority to that agent's workload. ok is false
// when nobody is available or the store refused the write because the
// complaint or agent changed since it was read; neither is an error.
func (d *Distributor) Assign(ctx context.Context, c models.Complaint) (string, bool, error) {
	agentID, ok, err := d.BestAgent(ctx, c.Priority)
	if err != nil {
		return "", false, err
	}
	if !ok {
		d.recordUnassigned(c.ID)
		return "", false, nil
	}
	assigned, err := d.Store.AssignComplaint(ctx, c.ID, agentID)
	if err != nil {
		return "", false, fmt.Errorf("assign %s to %s: %w", c.ID, agentID, err)
	}
	if !assigned {
		d.Logger.Info().Str("complaint_id", c.ID).Str("agent_id", agentID).
			Msg("assignment skipped, complaint or agent changed concurrently")
		return "", false, nil
	}
	publish(ctx, d.Publisher, d.Logger, events.New(events.ComplaintAssigned, c.ID, map[string]any{
		"agent_id": agentID,
		"priority": c.Priority,
	}))
	return agentID, true, nil
}

// RankAgents returns the available agents in assignment order.
func RankAgents(loads []models.AgentLoad) []models.AgentLoad {
	out := make([]models.AgentLoad, 0, len(loads))
	for _, l := range loads {
		if l.Status == models.AgentAvailable {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ActiveComplaints != out[j].ActiveComplaints {
			return out[i].ActiveComplaints < out[j].ActiveComplaints
		}
		if out[i].Efficiency != out[j].Efficiency {
			return out[i].Efficiency > out[j].Efficiency
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func PickBestAgent(loads []models.AgentLoad) (models.AgentLoad, bool) {
	ranked := RankAgents(loads)
	if len(ranked) == 0 {
		return models.AgentLoad{}, false
	}
	return ranked[0], true
}

func (d *Distributor) recordUnassigned(complaintID string) {
	metrics.UnassignedTotal.Inc()
	d.Logger.Info().Str("complaint_id", complaintID).Msg("no agent available, complaint queued unassigned")
}
