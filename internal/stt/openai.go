package stt

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	"github.com/roelfdiedericks/lilybear/internal/logging"
)

// OpenAIProvider implements STT using OpenAI's Whisper API.
type OpenAIProvider struct {
	config OpenAIConfig
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI Whisper STT provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errs.NotConfigured("openai API key")
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	logging.L_info("stt: openai provider initialized", "model", model)

	return &OpenAIProvider{
		config: OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   model,
			BaseURL: clientCfg.BaseURL,
		},
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Transcribe uploads the file to the transcription endpoint.
func (o *OpenAIProvider) Transcribe(ctx context.Context, filePath string) (string, error) {
	if err := checkFile(filePath); err != nil {
		return "", err
	}

	logging.L_debug("stt: openai transcribing", "file", filePath, "model", o.config.Model)

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.config.Model,
		FilePath: filePath,
	})
	if err != nil {
		logging.L_error("stt: openai request failed", "error", err)
		return "", errs.Provider("openai-whisper", "transcribe", err)
	}

	result := strings.TrimSpace(resp.Text)
	logging.L_debug("stt: openai transcription complete", "length", len(result))

	return result, nil
}

// Name returns the provider name.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Close releases any resources (none for HTTP client).
func (o *OpenAIProvider) Close() error {
	return nil
}
