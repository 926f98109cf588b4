package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	"github.com/roelfdiedericks/lilybear/internal/logging"
)

const googleEncoding = "LINEAR16"

// GoogleProvider implements STT using Google Cloud Speech-to-Text.
type GoogleProvider struct {
	config GoogleConfig
	svc    *speech.Service
}

// NewGoogleProvider creates a Google Cloud STT provider. Authentication is
// the API key when set, else the service-account file, else Application
// Default Credentials. Extra options are applied last (tests use them to
// point at a stub endpoint).
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (*GoogleProvider, error) {
	lang := cfg.LanguageCode
	if lang == "" {
		lang = DefaultLanguage
	}

	var clientOpts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errs.NotConfigured("google speech client: %v", err)
	}

	logging.L_info("stt: google provider initialized", "language", lang)

	return &GoogleProvider{
		config: GoogleConfig{
			APIKey:          cfg.APIKey,
			CredentialsFile: cfg.CredentialsFile,
			LanguageCode:    lang,
		},
		svc: svc,
	}, nil
}

// Transcribe sends the whole file as LINEAR16 audio in one synchronous
// recognize call.
func (g *GoogleProvider) Transcribe(ctx context.Context, filePath string) (string, error) {
	if err := checkFile(filePath); err != nil {
		return "", err
	}

	logging.L_debug("stt: google transcribing", "file", filePath)

	audioData, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:     googleEncoding,
			LanguageCode: g.config.LanguageCode,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audioData),
		},
	}

	logging.L_debug("stt: sending to google", "encoding", googleEncoding, "language", g.config.LanguageCode, "bytes", len(audioData))

	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		logging.L_error("stt: google request failed", "error", err)
		return "", errs.Provider("google-speech", "recognize", err)
	}

	transcript := joinTranscripts(resp)
	logging.L_debug("stt: google transcription complete", "results", len(resp.Results), "length", len(transcript))

	return transcript, nil
}

// joinTranscripts concatenates the top alternative of each result with a
// single space. Results without alternatives are skipped.
func joinTranscripts(resp *speech.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.Join(parts, " ")
}

// Name returns the provider name.
func (g *GoogleProvider) Name() string {
	return "google"
}

// Close releases any resources (none for the REST client).
func (g *GoogleProvider) Close() error {
	return nil
}
