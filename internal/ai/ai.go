package ai

import (
	"context"
	"fmt"
	"time"
)

// Oracle classifies complaint text against a rubric and answers in free text.
type Oracle interface {
	Classify(ctx context.Context, text string, rubric string) (string, error)
}

type Axis string

const (
	AxisSentiment  Axis = "sentiment"
	AxisUrgency    Axis = "urgency"
	AxisPoliteness Axis = "politeness"
)

// Sentiment polarity: 0 is extremely negative, 1 is positive.
const SentimentRubric = `You are a sentiment analyzer for customer complaints.
Rate the sentiment on a scale of 0 to 1, where:
0 = extremely negative
0.5 = neutral
1 = positive
Return only the numeric score.`

const UrgencyRubric = `You are an urgency evaluator for customer complaints.
Rate the urgency on a scale of 0 to 1, where:
0 = not urgent at all
0.5 = moderately urgent
1 = extremely urgent
Consider time sensitivity, potential impact and the customer's expressed urgency.
Return only the numeric score.`

const PolitenessRubric = `You are a politeness assessor for customer complaints.
Rate the politeness on a scale of 0 to 1, where:
0 = extremely rude
0.5 = neutral
1 = very polite
Consider the language used, the tone and the respect shown.
Return only the numeric score.`

func Rubric(axis Axis) string {
	switch axis {
	case AxisSentiment:
		return SentimentRubric
	case AxisUrgency:
		return UrgencyRubric
	case AxisPoliteness:
		return PolitenessRubric
	default:
		return ""
	}
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("oracle rate limited, retry after %s", r.RetryAfter)
	}
	return "oracle rate limited"
}
