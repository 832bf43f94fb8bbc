package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, hits *int32, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestOpenAIOracleSendsRubricAndText(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits, func(w http.ResponseWriter, req chatRequest) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, UrgencyRubric, req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "my line is down", req.Messages[1].Content)
		assert.Equal(t, "test-model", req.Model)
		reply(w, "0.9")
	})

	o := &OpenAIOracle{BaseURL: srv.URL + "/", Model: "test-model"}
	got, err := o.Classify(context.Background(), "my line is down", UrgencyRubric)
	require.NoError(t, err)
	assert.Equal(t, "0.9", got)
}

func TestOpenAIOracleRateLimited(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits, func(w http.ResponseWriter, _ chatRequest) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	o := &OpenAIOracle{BaseURL: srv.URL, Model: "m"}
	_, err := o.Classify(context.Background(), "text", SentimentRubric)
	var rl RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestOpenAIOracleServerError(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits, func(w http.ResponseWriter, _ chatRequest) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	o := &OpenAIOracle{BaseURL: srv.URL, Model: "m"}
	_, err := o.Classify(context.Background(), "text", SentimentRubric)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle http error")
}

func TestOpenAIOracleEmptyChoices(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits, func(w http.ResponseWriter, _ chatRequest) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	o := &OpenAIOracle{BaseURL: srv.URL, Model: "m"}
	_, err := o.Classify(context.Background(), "text", SentimentRubric)
	require.EqualError(t, err, "empty oracle response")
}

func TestOpenAIOracleCache(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits, func(w http.ResponseWriter, _ chatRequest) {
		reply(w, "0.4")
	})

	o := &OpenAIOracle{BaseURL: srv.URL, Model: "m", CacheTTL: time.Minute}
	for i := 0; i < 3; i++ {
		got, err := o.Classify(context.Background(), "same text", PolitenessRubric)
		require.NoError(t, err)
		assert.Equal(t, "0.4", got)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	_, err := o.Classify(context.Background(), "same text", UrgencyRubric)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestOpenAIOracleRequiresConfig(t *testing.T) {
	o := &OpenAIOracle{}
	_, err := o.Classify(context.Background(), "text", SentimentRubric)
	require.Error(t, err)
}

func TestRetryAfterFromBody(t *testing.T) {
	body := map[string]any{
		"error": map[string]any{
			"details": []any{
				map[string]any{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "12s"},
			},
		},
	}
	assert.Equal(t, 12*time.Second, retryAfter("", body))
	assert.Equal(t, time.Duration(0), retryAfter("", nil))
}

func TestMockOracleDeterministic(t *testing.T) {
	m := MockOracle{}
	a, err := m.Classify(context.Background(), "hello", SentimentRubric)
	require.NoError(t, err)
	b, err := m.Classify(context.Background(), "hello", SentimentRubric)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, []string{"0.1", "0.3", "0.5", "0.7", "0.9"}, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Classify(ctx, "hello", SentimentRubric)
	require.ErrorIs(t, err, context.Canceled)
}
