package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/models"
)

const (
	// OverloadFactor marks an agent overloaded above this multiple of the mean.
	OverloadFactor = 1.2
	// MaxMovesPerAgent caps how many complaints one pass takes off an agent.
	MaxMovesPerAgent = 2
)

type Move struct {
	ComplaintID string  `json:"complaint_id"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Priority    float64 `json:"priority"`
}

type RebalancePlan struct {
	Mean       float64  `json:"mean"`
	Overloaded []string `json:"overloaded"`
	Moves      []Move   `json:"moves"`
}

type RebalanceReport struct {
	RebalancePlan
	// Skipped counts planned moves that lost a race with a concurrent change.
	Skipped int `json:"skipped"`
}

// MeanActive is the mean pending count over agents holding at least one
// pending complaint. ok is false when nobody holds any.
func MeanActive(loads []models.AgentLoad) (float64, bool) {
	var sum, n int
	for _, l := range loads {
		if l.ActiveComplaints > 0 {
			sum += l.ActiveComplaints
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// Overloaded lists agents whose pending count exceeds OverloadFactor times
// the mean, most loaded first.
func Overloaded(loads []models.AgentLoad) []models.AgentLoad {
	mean, ok := MeanActive(loads)
	if !ok {
		return nil
	}
	var out []models.AgentLoad
	for _, l := range loads {
		if float64(l.ActiveComplaints) > mean*OverloadFactor {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ActiveComplaints != out[j].ActiveComplaints {
			return out[i].ActiveComplaints > out[j].ActiveComplaints
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PlanRebalance moves at most MaxMovesPerAgent of each overloaded agent's
// lowest-priority pending complaints to the least-loaded available agent
// below the mean. pending holds each overloaded agent's complaints in
// ascending priority. Counts are updated as moves are planned so one pass
// never piles everything onto a single target. Repeated passes converge.
func PlanRebalance(loads []models.AgentLoad, pending map[string][]models.Complaint) RebalancePlan {
	mean, ok := MeanActive(loads)
	if !ok {
		return RebalancePlan{}
	}
	plan := RebalancePlan{Mean: mean}

	counts := make(map[string]int, len(loads))
	for _, l := range loads {
		counts[l.ID] = l.ActiveComplaints
	}

	for _, src := range Overloaded(loads) {
		plan.Overloaded = append(plan.Overloaded, src.ID)
		moved := 0
		for _, c := range pending[src.ID] {
			if moved == MaxMovesPerAgent {
				break
			}
			if c.Status != models.ComplaintPending {
				continue
			}
			target, ok := leastLoadedBelow(loads, counts, mean, src.ID)
			if !ok {
				break
			}
			plan.Moves = append(plan.Moves, Move{
				ComplaintID: c.ID,
				From:        src.ID,
				To:          target,
				Priority:    c.Priority,
			})
			counts[src.ID]--
			counts[target]++
			moved++
		}
	}
	return plan
}

func leastLoadedBelow(loads []models.AgentLoad, counts map[string]int, mean float64, exclude string) (string, bool) {
	best := ""
	bestCount := 0
	for _, l := range loads {
		if l.ID == exclude || l.Status != models.AgentAvailable {
			continue
		}
		n := counts[l.ID]
		if float64(n) >= mean {
			continue
		}
		if best == "" || n < bestCount || (n == bestCount && l.ID < best) {
			best, bestCount = l.ID, n
		}
	}
	return best, best != ""
}

// Rebalance runs one corrective pass over current agent state and then
// re-syncs every agent's cumulative workload with its pending complaints,
// which is where resolved work drops out of the counters.
func (d *Distributor) Rebalance(ctx context.Context) (RebalanceReport, error) {
	loads, err := d.Store.ListAgentLoads(ctx, d.Clock.now())
	if err != nil {
		return RebalanceReport{}, fmt.Errorf("list agent loads: %w", err)
	}

	overloaded := Overloaded(loads)
	metrics.RebalanceOverloadedAgents.Set(float64(len(overloaded)))

	pending := make(map[string][]models.Complaint, len(overloaded))
	for _, a := range overloaded {
		cs, err := d.Store.ListPendingByAgent(ctx, a.ID)
		if err != nil {
			return RebalanceReport{}, fmt.Errorf("list pending for %s: %w", a.ID, err)
		}
		pending[a.ID] = cs
	}

	report := RebalanceReport{RebalancePlan: PlanRebalance(loads, pending)}
	applied := report.Moves[:0:0]
	for _, m := range report.Moves {
		moved, err := d.Store.MoveComplaint(ctx, m.ComplaintID, m.From, m.To)
		if err != nil {
			report.Moves = applied
			return report, fmt.Errorf("move %s from %s to %s: %w", m.ComplaintID, m.From, m.To, err)
		}
		if !moved {
			report.Skipped++
			continue
		}
		applied = append(applied, m)
		metrics.RebalanceMovesTotal.Inc()
		publish(ctx, d.Publisher, d.Logger, events.New(events.ComplaintReassigned, m.ComplaintID, map[string]any{
			"from":     m.From,
			"to":       m.To,
			"priority": m.Priority,
		}))
	}
	report.Moves = applied

	if err := d.Store.SyncWorkloads(ctx); err != nil {
		return report, fmt.Errorf("sync workloads: %w", err)
	}

	d.Logger.Info().
		Float64("mean", report.Mean).
		Int("overloaded", len(report.Overloaded)).
		Int("moved", len(report.Moves)).
		Int("skipped", report.Skipped).
		Msg("rebalance pass complete")
	return report, nil
}
