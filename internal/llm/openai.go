package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	. "github.com/roelfdiedericks/lilybear/internal/metrics"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions API.
// The "gemini" driver is this provider pointed at GeminiBaseURL.
type OpenAIProvider struct {
	name      string
	client    *openai.Client
	model     string
	maxTokens int
	baseURL   string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible API.
// name selects defaults: "gemini" uses GeminiBaseURL and DefaultGeminiModel.
func NewOpenAIProvider(name string, cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errs.NotConfigured("%s API key", name)
	}

	baseURL := cfg.BaseURL
	model := cfg.Model
	if name == "gemini" {
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		if model == "" {
			model = DefaultGeminiModel
		}
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	displayURL := baseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("openai provider created", "name", name, "baseURL", displayURL, "model", model)

	return &OpenAIProvider{
		name:      name,
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: maxTokens,
		baseURL:   config.BaseURL,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the model name
func (p *OpenAIProvider) Model() string {
	return p.model
}

// SimpleMessage sends a simple user message and returns the response text.
func (p *OpenAIProvider) SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error) {
	startTime := time.Now()
	L_debug("llm: request started", "provider", p.name, "model", p.model)

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		MetricFailWithReason("llm/"+p.name, "chat", string(ClassifyError(err.Error())))
		L_error("llm: request failed", "provider", p.name, "model", p.model, "error", err)
		return "", errs.Provider(p.name, "chat", err)
	}
	if len(resp.Choices) == 0 {
		MetricFailWithReason("llm/"+p.name, "chat", "empty")
		return "", errs.Provider(p.name, "chat", errors.New("response has no choices"))
	}

	MetricSuccess("llm/"+p.name, "chat")
	MetricDuration("llm/"+p.name, "chat", time.Since(startTime))
	L_debug("llm: request completed", "provider", p.name, "duration", time.Since(startTime).Round(time.Millisecond),
		"inputTokens", resp.Usage.PromptTokens, "outputTokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
