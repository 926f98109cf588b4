// Package llm - Provider factory
package llm

import "github.com/roelfdiedericks/lilybear/internal/errs"

// NewProvider creates a provider instance from config.
// Dispatches to the appropriate constructor based on cfg.Driver; an empty
// driver means gemini.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Driver {
	case "", "gemini":
		return NewOpenAIProvider("gemini", cfg)
	case "openai":
		return NewOpenAIProvider("openai", cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	default:
		return nil, errs.NotConfigured("unknown llm driver %q", cfg.Driver)
	}
}
