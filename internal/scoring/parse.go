package scoring

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrEmptyReply   = errors.New("empty oracle reply")
	ErrNoScore      = errors.New("oracle reply has no leading score")
	ErrOutOfRange   = errors.New("oracle score outside [0,1]")
	leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)
)

// ParseScore extracts the leading numeric token from an oracle reply and
// checks it lies in [0,1]. Surrounding whitespace, quotes and backticks are
// ignored; anything else before the number is a parse failure.
func ParseScore(reply string) (float64, error) {
	s := strings.TrimSpace(reply)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyReply
	}

	token := leadingNumberRe.FindString(s)
	if token == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoScore, truncate(s, 40))
	}
	if rest := s[len(token):]; rest != "" {
		runes := []rune(rest)
		r := runes[0]
		decimalComma := r == ',' && len(runes) > 1 && unicode.IsDigit(runes[1])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%' || decimalComma {
			return 0, fmt.Errorf("%w: %q", ErrNoScore, truncate(s, 40))
		}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoScore, err)
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return v, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
