// Package llm provides the chat-completion backends used for sentiment.
package llm

import "context"

// Provider is the unified interface for all LLM backends.
// Implementations: OpenAIProvider (openai, gemini), AnthropicProvider
type Provider interface {
	Name() string  // Provider name (e.g., "gemini", "anthropic")
	Model() string // Model in use

	// SimpleMessage sends a single user turn (with optional system prompt)
	// and returns the response text. No tools, no streaming.
	SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error)
}

// ProviderConfig holds the settings for one backend.
type ProviderConfig struct {
	Driver    string `json:"driver" toml:"driver" yaml:"driver"` // "gemini", "openai", "anthropic"
	APIKey    string `json:"apiKey" toml:"api_key" yaml:"api_key"`
	Model     string `json:"model" toml:"model" yaml:"model"`
	BaseURL   string `json:"baseURL" toml:"base_url" yaml:"base_url"`
	MaxTokens int    `json:"maxTokens" toml:"max_tokens" yaml:"max_tokens"`
}

const (
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	defaultMaxTokens = 256
)
