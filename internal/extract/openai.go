package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/recgest/internal/logger"
)

const providerOpenAI = "openai"

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	stats      *LLMStats
	log        *logger.Logger
}

// OpenAIOptions configures an OpenAIClient. Zero values take defaults.
type OpenAIOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Stats       *LLMStats
	Log         *logger.Logger
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &OpenAIClient{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		retry:      RetryPolicy{MaxAttempts: opts.MaxAttempts},
		stats:      opts.Stats,
		log:        opts.Log.With("component", "openai"),
	}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

type responsesRequest struct {
	Model           string              `json:"model"`
	Instructions    string              `json:"instructions,omitempty"`
	Input           string              `json:"input"`
	MaxOutputTokens int                 `json:"max_output_tokens,omitempty"`
	Temperature     *float64            `json:"temperature,omitempty"`
	Store           bool                `json:"store"`
	Text            *responsesText      `json:"text,omitempty"`
	Reasoning       *responsesReasoning `json:"reasoning,omitempty"`
}

type responsesText struct {
	Verbosity string           `json:"verbosity,omitempty"`
	Format    *responsesFormat `json:"format,omitempty"`
}

type responsesFormat struct {
	Type string `json:"type"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req, retrying transient failures.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	return c.retry.Do(ctx, c.log, func(ctx context.Context) (string, error) {
		start := time.Now()
		out, err := c.send(ctx, req)
		observe(c.stats, providerOpenAI, time.Since(start), err)
		return out, err
	})
}

func (c *OpenAIClient) send(ctx context.Context, req Request) (string, error) {
	payload := responsesRequest{
		Model:           c.model,
		Instructions:    req.Instructions,
		Input:           req.Input,
		MaxOutputTokens: req.MaxOutputTokens,
		Temperature:     req.Temperature,
	}
	if req.Verbosity != "" || req.JSON {
		payload.Text = &responsesText{Verbosity: req.Verbosity}
		if req.JSON {
			payload.Text.Format = &responsesFormat{Type: "json_object"}
		}
	}
	if req.ReasoningEffort != "" {
		payload.Reasoning = &responsesReasoning{Effort: req.ReasoningEffort}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return ExtractOutputText(respBody)
}

// ExtractOutputText pulls the output text out of a Responses API body. It
// prefers the top-level output_text field and otherwise joins the
// output_text parts of every message item.
func ExtractOutputText(body []byte) (string, error) {
	var r responsesResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("openai error: %s: %s", r.Error.Type, r.Error.Message)
	}
	if s := strings.TrimSpace(r.OutputText); s != "" {
		return s, nil
	}
	var parts []string
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// parseRetryAfter reads a delay-seconds Retry-After header.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
