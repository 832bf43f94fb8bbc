package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/resolvr/backend/internal/ai"
	"github.com/resolvr/backend/internal/models"
)

type fakeOracle struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   int
}

func (f *fakeOracle) Classify(_ context.Context, _ string, rubric string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[rubric]; ok {
		return "", err
	}
	return f.replies[rubric], nil
}

func newEngine(o ai.Oracle) *Engine {
	return &Engine{Oracle: o, Logger: zerolog.Nop()}
}

func TestScoreEndToEnd(t *testing.T) {
	o := &fakeOracle{replies: map[string]string{
		ai.SentimentRubric:  "0.1",
		ai.UrgencyRubric:    "0.9",
		ai.PolitenessRubric: "0.3",
	}}

	s := newEngine(o).Score(context.Background(), "This is unacceptable, I've been waiting a week!")

	assert.Equal(t, 0.1, s.Sentiment)
	assert.Equal(t, 0.9, s.Urgency)
	assert.Equal(t, 0.3, s.Politeness)
	assert.Equal(t, 0.86, s.Priority)
	assert.Equal(t, 3, o.calls)
}

func TestScoreFallsBackPerAxis(t *testing.T) {
	o := &fakeOracle{
		replies: map[string]string{
			ai.SentimentRubric: "0.1",
			ai.UrgencyRubric:   "0.9",
		},
		errs: map[string]error{ai.PolitenessRubric: errors.New("connection reset")},
	}

	s := newEngine(o).Score(context.Background(), "where is my refund")

	assert.Equal(t, 0.1, s.Sentiment)
	assert.Equal(t, 0.9, s.Urgency)
	assert.Equal(t, models.NeutralScore, s.Politeness)
	// 0.45 + 0.27 + 0.10
	assert.Equal(t, 0.82, s.Priority)
}

func TestScoreMalformedReplyFallsBack(t *testing.T) {
	o := &fakeOracle{replies: map[string]string{
		ai.SentimentRubric:  "I'd say fairly negative",
		ai.UrgencyRubric:    "",
		ai.PolitenessRubric: "3",
	}}

	s := newEngine(o).Score(context.Background(), "text")

	assert.Equal(t, models.Scores{Sentiment: 0.5, Urgency: 0.5, Politeness: 0.5, Priority: 0.5}, s)
}

func TestScoreRateLimitedOracle(t *testing.T) {
	o := &fakeOracle{errs: map[string]error{
		ai.SentimentRubric:  ai.RateLimitError{},
		ai.UrgencyRubric:    ai.RateLimitError{},
		ai.PolitenessRubric: ai.RateLimitError{},
	}}

	s := newEngine(o).Score(context.Background(), "text")
	assert.Equal(t, 0.5, s.Priority)
}

func TestPriorityBounds(t *testing.T) {
	steps := []float64{-0.5, 0, 0.13, 0.25, 0.5, 0.77, 1, 1.5}
	for _, sen := range steps {
		for _, urg := range steps {
			for _, pol := range steps {
				p := Priority(sen, urg, pol)
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				assert.Equal(t, p, Round2(p), "rounding must be idempotent")
			}
		}
	}
}

func TestPriorityExtremes(t *testing.T) {
	assert.Equal(t, 1.0, Priority(0, 1, 0))
	assert.Equal(t, 0.0, Priority(1, 0, 1))
	assert.Equal(t, 0.5, Priority(0.5, 0.5, 0.5))
}

func TestPriorityUrgencyDominates(t *testing.T) {
	calm := Priority(0.5, 0.2, 0.5)
	urgent := Priority(0.5, 0.8, 0.5)
	assert.Greater(t, urgent, calm)
	assert.InDelta(t, 0.3, urgent-calm, 1e-9)
}
