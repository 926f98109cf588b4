package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	. "github.com/roelfdiedericks/lilybear/internal/metrics"
)

// AnthropicProvider implements Provider for Anthropic's Messages API.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	baseURL   string
}

// NewAnthropicProvider creates a new Anthropic provider. Retries are
// disabled; a failed call surfaces immediately.
func NewAnthropicProvider(cfg ProviderConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errs.NotConfigured("anthropic API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "(default)"
	}
	L_debug("anthropic provider created", "baseURL", baseURL, "model", model, "maxTokens", maxTokens)

	return &AnthropicProvider{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   cfg.BaseURL,
	}, nil
}

// Name returns the provider name
func (c *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the model name
func (c *AnthropicProvider) Model() string {
	return c.model
}

// SimpleMessage sends a simple user message and returns the concatenated
// text blocks of the reply.
func (c *AnthropicProvider) SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error) {
	startTime := time.Now()
	L_debug("llm: request started", "provider", "anthropic", "model", c.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		MetricFailWithReason("llm/anthropic", "chat", string(ClassifyError(err.Error())))
		L_error("llm: request failed", "provider", "anthropic", "model", c.model, "error", err)
		return "", errs.Provider("anthropic", "chat", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	MetricSuccess("llm/anthropic", "chat")
	MetricDuration("llm/anthropic", "chat", time.Since(startTime))
	L_debug("llm: request completed", "provider", "anthropic", "duration", time.Since(startTime).Round(time.Millisecond),
		"inputTokens", msg.Usage.InputTokens, "outputTokens", msg.Usage.OutputTokens, "stopReason", msg.StopReason)

	return sb.String(), nil
}
