package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"deskchat/pkg/config"
	"deskchat/pkg/metrics"
)

// Turn is one prior exchange handed to the completion backend.
type Turn struct {
	// Role is "user" or "assistant".
	Role    string
	Content string
}

// Completer produces a reply given a system prompt and prior turns.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// CompletionError wraps any failure talking to the completion backend.
// Callers treat it as retriable and fall back to a canned reply.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return "completion failed: " + e.Err.Error() }
func (e *CompletionError) Unwrap() error { return e.Err }

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	llm         *openai.LLM
	timeout     time.Duration
	maxTokens   int
	temperature float64
}

// New builds a completion client from the llm config section.
func New(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key not configured")
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	l, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	return &Client{
		llm:         l,
		timeout:     cfg.Timeout.Duration(),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the system prompt plus the prior turns and returns the
// model reply. Failures are normalized to *CompletionError.
func (c *Client) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(turns)+1)
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, t := range turns {
		role := llms.ChatMessageTypeHuman
		if t.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, t.Content))
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(c.temperature),
	)
	metrics.CompletionSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &CompletionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &CompletionError{Err: errors.New("empty completion response")}
	}
	out := strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", &CompletionError{Err: errors.New("blank completion")}
	}
	return out, nil
}
