// Package entry holds the journal entry model and its markdown rendering.
package entry

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used in headings and file names.
const DateLayout = "2006-01-02"

// Entry is one journaling session. Transcript and Sentiment are optional;
// an empty string means the section is left out of the rendering.
type Entry struct {
	Mindset    string `json:"mindset"`
	Heartset   string `json:"heartset"`
	Energy     string `json:"energy"`
	Intentions string `json:"intentions"`

	Transcript string `json:"transcript,omitempty"`
	Sentiment  string `json:"sentiment,omitempty"`
}

// Markdown renders e for the given day. The output depends only on the
// fields and date; user content is written as-is.
func (e *Entry) Markdown(date time.Time) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(date.Format(DateLayout))
	b.WriteString("\n\n")

	b.WriteString("- \U0001F9E0 Mindset: " + e.Mindset + "\n")
	b.WriteString("- \U0001FA60 Heartset: " + e.Heartset + "\n")
	b.WriteString("- \U0001F321\uFE0F Energy: " + e.Energy + "\n")
	b.WriteString("- \U0001F3AF Intentions: " + e.Intentions + "\n")

	if e.Transcript != "" {
		b.WriteString("\n**Transcript**:\n" + e.Transcript + "\n")
	}
	if e.Sentiment != "" {
		b.WriteString("\n**Sentiment**: " + e.Sentiment + "\n")
	}

	return b.String()
}
