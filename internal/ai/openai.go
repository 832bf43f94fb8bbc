package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OpenAIOracle talks to any OpenAI-compatible /chat/completions endpoint.
// The rubric goes in as the system message and the complaint as the user message.
type OpenAIOracle struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
	Client    *http.Client
	CacheTTL  time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value string
	exp   time.Time
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIOracle) Classify(ctx context.Context, text string, rubric string) (string, error) {
	if strings.TrimSpace(o.BaseURL) == "" {
		return "", fmt.Errorf("ORACLE_BASE_URL is not set")
	}
	if strings.TrimSpace(o.Model) == "" {
		return "", fmt.Errorf("ORACLE_MODEL is not set")
	}

	key := rubric + "\x00" + text
	if v, ok := o.cacheGet(key); ok {
		return v, nil
	}

	payload := chatRequest{
		Model:     o.Model,
		MaxTokens: o.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: rubric},
			{Role: "user", Content: text},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(o.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(o.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.httpClient(ctx).Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("oracle request timed out: %w", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", fmt.Errorf("oracle request timed out: %w", err)
		}
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"), errBody)}
		}
		return "", fmt.Errorf("oracle http error: %s: %v", resp.Status, errBody)
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode oracle response: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("empty oracle response")
	}
	answer := res.Choices[0].Message.Content
	o.cacheSet(key, answer)
	return answer, nil
}

func (o *OpenAIOracle) httpClient(ctx context.Context) *http.Client {
	if o.Client != nil {
		return o.Client
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	return &http.Client{Timeout: timeout}
}

func (o *OpenAIOracle) cacheGet(key string) (string, bool) {
	if o.CacheTTL <= 0 {
		return "", false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.cache[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(o.cache, key)
	}
	return "", false
}

func (o *OpenAIOracle) cacheSet(key, value string) {
	if o.CacheTTL <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cache == nil {
		o.cache = map[string]cacheEntry{}
	}
	o.cache[key] = cacheEntry{value: value, exp: time.Now().Add(o.CacheTTL)}
}

// retryAfter prefers the Retry-After header and falls back to a RetryInfo
// detail in the error body.
func retryAfter(header string, errBody map[string]any) time.Duration {
	if header = strings.TrimSpace(header); header != "" {
		if d, err := time.ParseDuration(header + "s"); err == nil {
			return d
		}
	}
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}
