package extract

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

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL, MaxAttempts: 3})
	require.NoError(t, err)
	c.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestOpenAIClient_SendsResponsesPayload(t *testing.T) {
	var got map[string]any
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"output_text":"  hello  "}`))
	})

	out, err := c.Complete(context.Background(), Request{
		Instructions:    "be brief",
		Input:           "hi",
		MaxOutputTokens: 50,
		Temperature:     Deterministic(),
		JSON:            true,
		Verbosity:       "low",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "gpt-test", got["model"])
	assert.Equal(t, false, got["store"])
	assert.EqualValues(t, 50, got["max_output_tokens"])
	assert.EqualValues(t, 0, got["temperature"])
	text := got["text"].(map[string]any)
	assert.Equal(t, "low", text["verbosity"])
	assert.Equal(t, "json_object", text["format"].(map[string]any)["type"])
}

func TestExtractOutputText_NestedContent(t *testing.T) {
	body := `{"output":[
		{"type":"reasoning","content":[{"type":"output_text","text":"skip"}]},
		{"type":"message","content":[{"type":"output_text","text":"a"},{"type":"refusal","text":"x"}]},
		{"type":"message","content":[{"type":"output_text","text":"b"}]}
	]}`
	out, err := ExtractOutputText([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)
}

func TestOpenAIClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	var slept []time.Duration
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"output_text":"ok"}`))
	})
	c.retry.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	out, err := c.Complete(context.Background(), Request{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
}

func TestOpenAIClient_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Complete(context.Background(), Request{Input: "x"})
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, http.StatusBadGateway, retryErr.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAIClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
	})
	_, err := c.Complete(context.Background(), Request{Input: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIOptions{})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestNewAnthropicClient_MissingKey(t *testing.T) {
	_, err := NewAnthropicClient(AnthropicOptions{APIKey: "  "})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}
