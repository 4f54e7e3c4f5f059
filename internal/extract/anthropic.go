package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dgallion1/recgest/internal/logger"
)

const (
	providerAnthropic       = "anthropic"
	defaultAnthropicTokens  = 4096
	jsonOnlyInstructionTail = "\n\nRespond with a single JSON object and nothing else."
)

// AnthropicClient calls the Anthropic Messages API through the official SDK.
// SDK-level retries are disabled so RetryPolicy owns the backoff.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	retry  RetryPolicy
	stats  *LLMStats
	log    *logger.Logger
}

// AnthropicOptions configures an AnthropicClient. Zero values take defaults.
type AnthropicOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Stats       *LLMStats
	Log         *logger.Logger
}

func NewAnthropicClient(opts AnthropicOptions) (*AnthropicClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.Timeout),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		model:  opts.Model,
		retry:  RetryPolicy{MaxAttempts: opts.MaxAttempts},
		stats:  opts.Stats,
		log:    opts.Log.With("component", "anthropic"),
	}, nil
}

func (c *AnthropicClient) Model() string { return c.model }

// Complete sends req, retrying transient failures.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	return c.retry.Do(ctx, c.log, func(ctx context.Context) (string, error) {
		start := time.Now()
		out, err := c.send(ctx, req)
		observe(c.stats, providerAnthropic, time.Since(start), err)
		return out, err
	})
}

func (c *AnthropicClient) send(ctx context.Context, req Request) (string, error) {
	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
		},
	}
	system := req.Instructions
	if req.JSON {
		system += jsonOnlyInstructionTail
	}
	if s := strings.TrimSpace(system); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	c.log.Debug("anthropic response",
		"tokens_in", message.Usage.InputTokens,
		"tokens_out", message.Usage.OutputTokens,
	)
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// classifyAnthropicError maps SDK errors onto RetryableError and APIError.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic api: %w", err)
	}
	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
		var retryAfter time.Duration
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error(), RetryAfter: retryAfter}
	}
	return &APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
}
