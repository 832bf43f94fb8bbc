package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreAccepts(t *testing.T) {
	tests := map[string]struct {
		reply string
		want  float64
	}{
		"plain":              {"0.85", 0.85},
		"zero":               {"0", 0},
		"one":                {"1", 1},
		"one with dot":       {"1.", 1},
		"bare fraction":      {".5", 0.5},
		"explicit plus":      {"+0.4", 0.4},
		"surrounding spaces": {"  0.3 \n", 0.3},
		"quoted":             {`"0.6"`, 0.6},
		"backticks":          {"`0.2`", 0.2},
		"trailing period":    {"0.7.", 0.7},
		"trailing comment":   {"0.9 (very urgent)", 0.9},
		"trailing newline":   {"0.1\nThe customer is upset.", 0.1},
		"trailing comma":     {"0.4, neutral", 0.4},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseScore(tc.reply)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestParseScoreRejects(t *testing.T) {
	tests := map[string]struct {
		reply string
		want  error
	}{
		"empty":           {"", ErrEmptyReply},
		"whitespace":      {"   \n\t", ErrEmptyReply},
		"empty quotes":    {`""`, ErrEmptyReply},
		"words only":      {"negative", ErrNoScore},
		"prefixed":        {"Score: 0.8", ErrNoScore},
		"nan":             {"NaN", ErrNoScore},
		"glued letters":   {"0.8abc", ErrNoScore},
		"exponent":        {"1e-1", ErrNoScore},
		"percent":         {"85%", ErrNoScore},
		"decimal comma":   {"0,8", ErrNoScore},
		"above one":       {"1.5", ErrOutOfRange},
		"negative":        {"-0.2", ErrOutOfRange},
		"large integer":   {"7", ErrOutOfRange},
		"out of range 10": {"10 out of 10", ErrOutOfRange},
		"lone sign":       {"-", ErrNoScore},
		"lone dot":        {".", ErrNoScore},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScore(tc.reply)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
