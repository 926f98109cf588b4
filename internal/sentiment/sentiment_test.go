package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/roelfdiedericks/lilybear/internal/errs"
)

type fakeProvider struct {
	reply   string
	err     error
	gotUser string
	gotSys  string
	calls   int
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) SimpleMessage(_ context.Context, user, system string) (string, error) {
	f.calls++
	f.gotUser = user
	f.gotSys = system
	return f.reply, f.err
}

func TestAnalyzeTrimsAndPrompts(t *testing.T) {
	fp := &fakeProvider{reply: "  Positive\n"}
	c, err := New(fp)
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Analyze(context.Background(), "I had a lovely walk")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Positive" {
		t.Errorf("label = %q, want %q", got, "Positive")
	}
	want := "Provide a one-word sentiment (positive, negative, neutral) for: I had a lovely walk"
	if fp.gotUser != want {
		t.Errorf("prompt = %q, want %q", fp.gotUser, want)
	}
	if fp.gotSys != "" {
		t.Errorf("unexpected system prompt %q", fp.gotSys)
	}
}

func TestAnalyzeNoClosedSetValidation(t *testing.T) {
	c, _ := New(&fakeProvider{reply: "Bittersweet, mostly."})
	got, err := c.Analyze(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Bittersweet, mostly." {
		t.Errorf("label = %q", got)
	}
}

func TestAnalyzeErrorWithoutFallback(t *testing.T) {
	boom := errs.Provider("fake", "chat", errors.New("503"))
	c, _ := New(&fakeProvider{err: boom})

	_, err := c.Analyze(context.Background(), "text")
	if !errors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestAnalyzeFallback(t *testing.T) {
	fp := &fakeProvider{err: errors.New("timeout")}
	c, _ := New(fp, WithFallback(" neutral "))

	got, err := c.Analyze(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if got != "neutral" {
		t.Errorf("label = %q, want neutral", got)
	}
	if fp.calls != 1 {
		t.Errorf("expected one call, got %d", fp.calls)
	}
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, errs.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
