package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/events"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/models"
)

const (
	StepCallback   = "callback"
	StepAssignment = "assignment"

	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var ErrIntakeFailed = errors.New("complaint intake failed")

// Scorer is satisfied by *scoring.Engine.
type Scorer interface {
	Score(ctx context.Context, text string) models.Scores
}

type IntakeRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=10000"`
}

// IntakeResult describes a committed complaint. Missing lists the downstream
// steps that failed after the commit and can be retried on their own; an
// unassigned complaint with nobody available is not missing anything.
type IntakeResult struct {
	Complaint         models.Complaint `json:"complaint"`
	CallbackTime      time.Time        `json:"callback_time"`
	CallbackScheduled bool             `json:"callback_scheduled"`
	Assigned          bool             `json:"assigned"`
	Missing           []string         `json:"missing,omitempty"`
}

func (r IntakeResult) Degraded() bool {
	return len(r.Missing) > 0
}

type Orchestrator struct {
	Complaints  ComplaintStore
	Scorer      Scorer
	Callbacks   *CallbackScheduler
	Distributor *Distributor
	Publisher   events.Publisher
	Logger      zerolog.Logger
	Clock       Clock
}

// Intake runs score, persist, schedule and assign in that order. An error is
// returned only when the complaint could not be persisted, in which case
// nothing downstream ran.
func (o *Orchestrator) Intake(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	scores := o.Scorer.Score(ctx, req.Description)

	c := models.Complaint{
		ID:            uuid.NewString(),
		CustomerName:  req.Name,
		CustomerPhone: req.Phone,
		Description:   req.Description,
		Scores:        scores,
		Status:        models.ComplaintPending,
		CreatedAt:     o.Clock.now(),
	}
	if err := o.Complaints.CreateComplaint(ctx, c); err != nil {
		metrics.IntakesTotal.WithLabelValues(OutcomeFailed).Inc()
		o.Logger.Error().Err(err).Msg("complaint persistence failed, intake aborted")
		return IntakeResult{}, fmt.Errorf("%w: %w", ErrIntakeFailed, err)
	}
	publish(ctx, o.Publisher, o.Logger, events.New(events.ComplaintCreated, c.ID, map[string]any{
		"priority": c.Priority,
	}))

	res := IntakeResult{Complaint: c}
	log := o.Logger.With().Str("complaint_id", c.ID).Float64("priority", c.Priority).Logger()

	at, err := o.Callbacks.Schedule(ctx, c.ID, c.Priority)
	res.CallbackTime = at
	if err != nil {
		log.Error().Err(err).Msg("callback scheduling failed, complaint kept")
		res.Missing = append(res.Missing, StepCallback)
	} else {
		res.CallbackScheduled = true
	}

	agentID, ok, err := o.Distributor.Assign(ctx, c)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("agent assignment failed, complaint kept unassigned")
		res.Missing = append(res.Missing, StepAssignment)
	case ok:
		res.Assigned = true
		res.Complaint.AssignedAgent = &agentID
	}

	outcome := OutcomeOK
	if res.Degraded() {
		outcome = OutcomeDegraded
	}
	metrics.IntakesTotal.WithLabelValues(outcome).Inc()
	log.Info().Bool("assigned", res.Assigned).Strs("missing", res.Missing).Msg("complaint intake complete")
	return res, nil
}

// Resolve marks the complaint resolved and stamps its resolution time. A
// second call returns the complaint unchanged with changed set to false.
func (o *Orchestrator) Resolve(ctx context.Context, complaintID string) (models.Complaint, bool, error) {
	c, changed, err := o.Complaints.ResolveComplaint(ctx, complaintID, o.Clock.now())
	if err != nil {
		return models.Complaint{}, false, err
	}
	if changed {
		data := map[string]any{}
		if c.ResolutionTime != nil {
			data["resolution_seconds"] = *c.ResolutionTime
		}
		publish(ctx, o.Publisher, o.Logger, events.New(events.ComplaintResolved, c.ID, data))
	}
	return c, changed, nil
}

// Rescore re-runs the oracle for a pending complaint. Resolved complaints
// keep their scores.
func (o *Orchestrator) Rescore(ctx context.Context, complaintID string) (models.Complaint, error) {
	c, err := o.Complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		return models.Complaint{}, err
	}
	if c.Status == models.ComplaintResolved {
		return c, models.ErrComplaintResolved
	}
	scores := o.Scorer.Score(ctx, c.Description)
	if err := o.Complaints.UpdateScores(ctx, c.ID, scores); err != nil {
		return c, err
	}
	c.Scores = scores
	return c, nil
}

// AssignPending retries only the assignment step. Already assigned
// complaints are returned as they are.
func (o *Orchestrator) AssignPending(ctx context.Context, complaintID string) (models.Complaint, bool, error) {
	c, err := o.Complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		return models.Complaint{}, false, err
	}
	if c.Status == models.ComplaintResolved {
		return c, false, models.ErrComplaintResolved
	}
	if c.AssignedAgent != nil {
		return c, true, nil
	}
	agentID, ok, err := o.Distributor.Assign(ctx, c)
	if err != nil {
		return c, false, err
	}
	if !ok {
		// Another writer may have assigned or resolved it since the read.
		latest, err := o.Complaints.GetComplaint(ctx, complaintID)
		if err != nil {
			return c, false, err
		}
		if latest.Status == models.ComplaintResolved {
			return latest, false, models.ErrComplaintResolved
		}
		return latest, latest.AssignedAgent != nil, nil
	}
	c.AssignedAgent = &agentID
	return c, true, nil
}

// ScheduleCallback (re)schedules from the complaint's stored priority,
// overwriting any earlier time.
func (o *Orchestrator) ScheduleCallback(ctx context.Context, complaintID string) (time.Time, error) {
	c, err := o.Complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		return time.Time{}, err
	}
	if c.Status == models.ComplaintResolved {
		return time.Time{}, models.ErrComplaintResolved
	}
	return o.Callbacks.Schedule(ctx, c.ID, c.Priority)
}
