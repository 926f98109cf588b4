// Package config loads Lilybear settings. Precedence, lowest first:
// built-in defaults, config file, .env, process environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roelfdiedericks/lilybear/internal/drive"
	"github.com/roelfdiedericks/lilybear/internal/journal"
	"github.com/roelfdiedericks/lilybear/internal/llm"
	"github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/paths"
	"github.com/roelfdiedericks/lilybear/internal/store"
	"github.com/roelfdiedericks/lilybear/internal/stt"
)

// Config represents the merged Lilybear configuration
type Config struct {
	Listen          string `json:"listen" toml:"listen" yaml:"listen"`
	EntriesDir      string `json:"entriesDir" toml:"entries_dir" yaml:"entries_dir"`
	TokenPath       string `json:"tokenPath" toml:"token_path" yaml:"token_path"`
	CredentialsPath string `json:"credentialsPath" toml:"credentials_path" yaml:"credentials_path"`
	StagingDir      string `json:"stagingDir" toml:"staging_dir" yaml:"staging_dir"` // empty = OS temp dir
	MaxUploadBytes  int64  `json:"maxUploadBytes" toml:"max_upload_bytes" yaml:"max_upload_bytes"`

	APIKeys   APIKeys            `json:"apiKeys" toml:"api_keys" yaml:"api_keys"`
	Sentiment SentimentConfig    `json:"sentiment" toml:"sentiment" yaml:"sentiment"`
	STT       stt.Config         `json:"stt" toml:"stt" yaml:"stt"`
	Drive     drive.UploadConfig `json:"drive" toml:"drive" yaml:"drive"`
	Timeouts  journal.Timeouts   `json:"timeouts" toml:"timeouts" yaml:"timeouts"`
	Log       LogConfig          `json:"log" toml:"log" yaml:"log"`

	// Source is the config file that was read, if any.
	Source string `json:"-" toml:"-" yaml:"-"`
}

// APIKeys are shared by the sentiment and transcription backends.
type APIKeys struct {
	Gemini    string `json:"gemini" toml:"gemini" yaml:"gemini"`
	OpenAI    string `json:"openai" toml:"openai" yaml:"openai"`
	Anthropic string `json:"anthropic" toml:"anthropic" yaml:"anthropic"`
}

// SentimentConfig selects the sentiment backend.
type SentimentConfig struct {
	Provider  string `json:"provider" toml:"provider" yaml:"provider"` // "gemini", "openai", "anthropic"
	Model     string `json:"model" toml:"model" yaml:"model"`
	BaseURL   string `json:"baseURL" toml:"base_url" yaml:"base_url"`
	MaxTokens int    `json:"maxTokens" toml:"max_tokens" yaml:"max_tokens"`
	Fallback  string `json:"fallback" toml:"fallback" yaml:"fallback"` // label used when the provider fails; empty = fail
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" toml:"level" yaml:"level"` // trace|debug|info|warn|error
	File  string `json:"file" toml:"file" yaml:"file"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:          ":8000",
		EntriesDir:      store.DefaultDir,
		TokenPath:       drive.DefaultTokenPath,
		CredentialsPath: drive.DefaultCredentialsPath,
		MaxUploadBytes:  32 << 20,
		Sentiment: SentimentConfig{
			Provider: "gemini",
		},
		STT: stt.Config{
			Provider: "google",
			Google:   stt.GoogleConfig{LanguageCode: stt.DefaultLanguage},
		},
		Timeouts: journal.DefaultTimeouts(),
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads configuration. path may be empty, in which case ./lilybear.toml
// and then ~/.lilybear/lilybear.toml are tried; having no file is fine.
// .env in the working directory is loaded without overriding variables
// that are already set.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.Source = path
		logging.L_debug("config: loaded file", "path", path)
	}

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given env files. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
		logging.L_debug("config: loaded env file", "path", f)
	}
	return nil
}

// decodeFile picks the decoder by extension.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setFromEnv(dst *string, key string) {
	if v, ok := getEnv(key); ok {
		*dst = v
	}
}

// applyEnv overrides file and default values with set environment variables.
func applyEnv(c *Config) error {
	setFromEnv(&c.Listen, "LILYBEAR_LISTEN")
	setFromEnv(&c.EntriesDir, "ENTRIES_DIR")
	setFromEnv(&c.TokenPath, "TOKEN_PATH")
	setFromEnv(&c.CredentialsPath, "CREDENTIALS_PATH")
	setFromEnv(&c.StagingDir, "STAGING_DIR")

	setFromEnv(&c.APIKeys.Gemini, "GEMINI_API_KEY")
	setFromEnv(&c.APIKeys.OpenAI, "OPENAI_API_KEY")
	setFromEnv(&c.APIKeys.Anthropic, "ANTHROPIC_API_KEY")

	setFromEnv(&c.Sentiment.Provider, "SENTIMENT_PROVIDER")
	setFromEnv(&c.Sentiment.Model, "SENTIMENT_MODEL")
	setFromEnv(&c.Sentiment.Fallback, "SENTIMENT_FALLBACK")

	setFromEnv(&c.STT.Provider, "STT_PROVIDER")
	setFromEnv(&c.STT.Google.LanguageCode, "STT_LANGUAGE")
	setFromEnv(&c.STT.Google.APIKey, "GOOGLE_SPEECH_API_KEY")
	setFromEnv(&c.STT.Google.CredentialsFile, "GOOGLE_SPEECH_CREDENTIALS")

	setFromEnv(&c.Drive.FolderID, "DRIVE_FOLDER_ID")

	setFromEnv(&c.Log.Level, "LOG_LEVEL")
	setFromEnv(&c.Log.File, "LOG_FILE")

	if v, ok := getEnv("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}

	// whisper shares the OpenAI key unless one is set for it
	if c.STT.OpenAI.APIKey == "" {
		c.STT.OpenAI.APIKey = c.APIKeys.OpenAI
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.EntriesDir, &c.TokenPath, &c.CredentialsPath, &c.StagingDir, &c.Log.File, &c.STT.Google.CredentialsFile} {
		expanded, err := paths.ExpandTilde(*p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is empty")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: listen address %q: %w", c.Listen, err)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.Timeouts.Transcribe < 0 || c.Timeouts.Analyze < 0 || c.Timeouts.Authenticate < 0 || c.Timeouts.Upload < 0 {
		return errors.New("config: timeouts must not be negative")
	}

	switch c.Sentiment.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown sentiment provider %q", c.Sentiment.Provider)
	}
	switch c.STT.Provider {
	case "google", "openai":
	default:
		return fmt.Errorf("config: unknown stt provider %q", c.STT.Provider)
	}
	return nil
}

// LLMProvider returns the backend settings for the sentiment client, with
// the API key matching the chosen provider.
func (c *Config) LLMProvider() llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Driver:    c.Sentiment.Provider,
		Model:     c.Sentiment.Model,
		BaseURL:   c.Sentiment.BaseURL,
		MaxTokens: c.Sentiment.MaxTokens,
	}
	switch c.Sentiment.Provider {
	case "openai":
		pc.APIKey = c.APIKeys.OpenAI
	case "anthropic":
		pc.APIKey = c.APIKeys.Anthropic
	default:
		pc.APIKey = c.APIKeys.Gemini
	}
	return pc
}

// LogLevel maps Log.Level to a logging level constant.
func (c *Config) LogLevel() int {
	return logging.ParseLevel(c.Log.Level)
}
