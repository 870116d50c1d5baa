package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/example/wordace/internal/logger"
)

const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// Anthropic generates examples with the Anthropic messages API
type Anthropic struct {
	client   *anthropic.Client
	model    string
	attempts int
	backoff  time.Duration
	log      *logger.Logger
}

// NewAnthropic creates a client. Extra options are passed to the SDK.
func NewAnthropic(apiKey, model string, log *logger.Logger, opts ...option.RequestOption) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if log == nil {
		log = logger.Nop()
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &Anthropic{
		client:   &client,
		model:    model,
		attempts: 2,
		backoff:  time.Second,
		log:      log.With("provider", "anthropic"),
	}
}

// Complete generates an example sentence for the term
func (c *Anthropic) Complete(ctx context.Context, term, definition string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 100,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(term, definition))),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	example := clean(text)
	if example == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return example, nil
}

func (c *Anthropic) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff << uint(attempt-1)
			c.log.Warn("retrying messages call", "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("messages call failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
