package stt

import (
	"context"

	"google.golang.org/api/option"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	"github.com/roelfdiedericks/lilybear/internal/logging"
)

// DefaultLanguage is the recognition language when none is configured.
const DefaultLanguage = "en-US"

// Config holds STT configuration.
type Config struct {
	Provider string       `json:"provider" toml:"provider" yaml:"provider"` // "google" (default), "openai"
	Google   GoogleConfig `json:"google" toml:"google" yaml:"google"`
	OpenAI   OpenAIConfig `json:"openai" toml:"openai" yaml:"openai"`
}

// GoogleConfig holds Google Cloud STT configuration.
type GoogleConfig struct {
	APIKey          string `json:"apiKey" toml:"api_key" yaml:"api_key"`
	CredentialsFile string `json:"credentialsFile" toml:"credentials_file" yaml:"credentials_file"` // service account JSON
	LanguageCode    string `json:"languageCode" toml:"language_code" yaml:"language_code"`          // e.g., "en-US", "en-ZA"
}

// OpenAIConfig holds OpenAI Whisper configuration.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey" toml:"api_key" yaml:"api_key"`
	Model   string `json:"model" toml:"model" yaml:"model"` // "whisper-1"
	BaseURL string `json:"baseURL" toml:"base_url" yaml:"base_url"`
}

// NewProvider builds the configured provider. An empty driver means google.
// Google client options are only used by the google driver.
func NewProvider(ctx context.Context, cfg Config, opts ...option.ClientOption) (Provider, error) {
	driver := cfg.Provider
	if driver == "" {
		driver = "google"
	}

	logging.L_debug("stt: creating provider", "driver", driver)

	switch driver {
	case "google":
		if cfg.Google.LanguageCode == "" {
			cfg.Google.LanguageCode = DefaultLanguage
		}
		return NewGoogleProvider(ctx, cfg.Google, opts...)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	default:
		return nil, errs.NotConfigured("unknown stt provider %q", driver)
	}
}
