// Package scoring turns complaint text into sentiment, urgency and politeness
// scores through the oracle and folds them into a single priority.
//
// Polarity is fixed for every axis: 0 is negative, not urgent or rude and 1
// is positive, urgent or polite. Priority is
//
//	urgency*0.5 + (1-sentiment)*0.3 + (1-politeness)*0.2
//
// clamped to [0,1] and rounded to two decimals.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/resolvr/backend/internal/ai"
	"github.com/resolvr/backend/internal/metrics"
	"github.com/resolvr/backend/internal/models"
)

const (
	UrgencyWeight    = 0.5
	SentimentWeight  = 0.3
	PolitenessWeight = 0.2
)

type Engine struct {
	Oracle ai.Oracle
	Logger zerolog.Logger
	// CallTimeout bounds each oracle call; zero leaves it to the caller's context.
	CallTimeout time.Duration
}

// Score never fails: any axis the oracle cannot answer becomes
// models.NeutralScore and the others are still used.
func (e *Engine) Score(ctx context.Context, text string) models.Scores {
	axes := []ai.Axis{ai.AxisSentiment, ai.AxisUrgency, ai.AxisPoliteness}
	results := make([]float64, len(axes))

	var g errgroup.Group
	for i, axis := range axes {
		i, axis := i, axis
		g.Go(func() error {
			results[i] = e.scoreAxis(ctx, axis, text)
			return nil
		})
	}
	_ = g.Wait()

	s := models.Scores{
		Sentiment:  results[0],
		Urgency:    results[1],
		Politeness: results[2],
	}
	s.Priority = Priority(s.Sentiment, s.Urgency, s.Politeness)
	return s
}

func (e *Engine) scoreAxis(ctx context.Context, axis ai.Axis, text string) float64 {
	if e.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := e.Oracle.Classify(ctx, text, ai.Rubric(axis))
	metrics.OracleDurationSeconds.WithLabelValues(string(axis)).Observe(time.Since(start).Seconds())
	if err == nil {
		var v float64
		if v, err = ParseScore(reply); err == nil {
			return v
		}
	}

	metrics.OracleFallbacksTotal.WithLabelValues(string(axis)).Inc()
	e.Logger.Warn().Err(err).Str("axis", string(axis)).Msg("oracle score unavailable, using neutral default")
	return models.NeutralScore
}

// Priority combines the three sub-scores. Inputs outside [0,1] are clamped
// first so a misbehaving oracle cannot push the result out of range.
func Priority(sentiment, urgency, politeness float64) float64 {
	sentiment = clamp01(sentiment)
	urgency = clamp01(urgency)
	politeness = clamp01(politeness)

	p := urgency*UrgencyWeight +
		(1-sentiment)*SentimentWeight +
		(1-politeness)*PolitenessWeight
	return Round2(clamp01(p))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return models.NeutralScore
	}
	return math.Max(0, math.Min(1, v))
}
