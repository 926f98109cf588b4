// Package sentiment asks an LLM for a one-word mood label for a transcript.
package sentiment

import (
	"context"
	"strings"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	"github.com/roelfdiedericks/lilybear/internal/llm"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
)

// PromptPrefix precedes the transcript in every request.
const PromptPrefix = "Provide a one-word sentiment (positive, negative, neutral) for: "

// Client classifies transcripts through an llm.Provider.
type Client struct {
	provider llm.Provider
	fallback string
}

// Option configures a Client.
type Option func(*Client)

// WithFallback makes Analyze return label instead of an error when the
// provider fails. An empty label keeps failures as errors.
func WithFallback(label string) Option {
	return func(c *Client) {
		c.fallback = strings.TrimSpace(label)
	}
}

// New returns a Client. provider must be non-nil.
func New(provider llm.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errs.NotConfigured("sentiment provider")
	}
	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Prompt builds the request text for a transcript.
func Prompt(text string) string {
	return PromptPrefix + text
}

// Analyze returns the provider's label with surrounding whitespace removed.
// The label is not checked against positive/negative/neutral.
func (c *Client) Analyze(ctx context.Context, text string) (string, error) {
	resp, err := c.provider.SimpleMessage(ctx, Prompt(text), "")
	if err != nil {
		if c.fallback != "" {
			L_warn("sentiment: provider failed, using fallback", "provider", c.provider.Name(), "fallback", c.fallback, "error", err)
			return c.fallback, nil
		}
		return "", err
	}

	label := strings.TrimSpace(resp)
	L_debug("sentiment: analyzed", "provider", c.provider.Name(), "model", c.provider.Model(), "label", label)
	return label, nil
}
