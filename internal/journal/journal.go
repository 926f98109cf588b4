// Package journal runs the create-entry sequence: validate, stage,
// transcribe, analyze, save, authenticate, upload.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roelfdiedericks/lilybear/internal/drive"
	"github.com/roelfdiedericks/lilybear/internal/entry"
	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/media"
	. "github.com/roelfdiedericks/lilybear/internal/metrics"
)

// Validation failures. Both match errs.ErrInvalidInput.
var (
	ErrInvalidAudioType = fmt.Errorf("%w: invalid audio type", errs.ErrInvalidInput)
	ErrEmptyAudio       = fmt.Errorf("%w: empty audio file", errs.ErrInvalidInput)
)

// Step names, also used as metric function names.
const (
	StepStage        = "stage"
	StepTranscribe   = "transcribe"
	StepAnalyze      = "analyze"
	StepSave         = "save"
	StepAuthenticate = "authenticate"
	StepUpload       = "upload"
)

// Transcriber turns a staged audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// Analyzer labels a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// EntryStore persists rendered entries by date.
type EntryStore interface {
	Save(e *entry.Entry) (string, error)
	Load(dateKey string) ([]byte, error)
}

// Authenticator yields the Drive credential.
type Authenticator interface {
	AcquireCredential(ctx context.Context) (*drive.Credential, error)
}

// Uploader sends a local file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, filePath string, cred *drive.Credential) (string, error)
}

// Upload is one create-entry request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte

	// Optional mood fields; empty when the caller did not send them.
	Mindset    string
	Heartset   string
	Energy     string
	Intentions string
}

// Result is what a successful create-entry returns.
type Result struct {
	FileID    string `json:"file_id"`
	Sentiment string `json:"sentiment"`
	Path      string `json:"-"`
}

// StepError reports which step of the sequence failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Timeouts bound each external call. Zero or negative fields take the
// DefaultTimeouts value; every step is always bounded.
type Timeouts struct {
	Transcribe   time.Duration `json:"transcribe" toml:"transcribe" yaml:"transcribe"`
	Analyze      time.Duration `json:"analyze" toml:"analyze" yaml:"analyze"`
	Authenticate time.Duration `json:"authenticate" toml:"authenticate" yaml:"authenticate"`
	Upload       time.Duration `json:"upload" toml:"upload" yaml:"upload"`
}

// DefaultTimeouts returns the per-step bounds used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Transcribe:   2 * time.Minute,
		Analyze:      1 * time.Minute,
		Authenticate: 5 * time.Minute,
		Upload:       2 * time.Minute,
	}
}

// Options holds the non-client settings of a Service.
type Options struct {
	StagingDir string // empty = OS temp dir
	Timeouts   Timeouts
}

// Service orchestrates the journal clients.
type Service struct {
	transcriber Transcriber
	analyzer    Analyzer
	store       EntryStore
	auth        Authenticator
	uploader    Uploader

	stagingDir string
	timeouts   Timeouts
}

// NewService wires the clients. Every client is required.
func NewService(t Transcriber, a Analyzer, s EntryStore, auth Authenticator, up Uploader, opts Options) (*Service, error) {
	switch {
	case t == nil:
		return nil, errs.NotConfigured("journal: transcriber")
	case a == nil:
		return nil, errs.NotConfigured("journal: analyzer")
	case s == nil:
		return nil, errs.NotConfigured("journal: entry store")
	case auth == nil:
		return nil, errs.NotConfigured("journal: authenticator")
	case up == nil:
		return nil, errs.NotConfigured("journal: uploader")
	}
	return &Service{
		transcriber: t,
		analyzer:    a,
		store:       s,
		auth:        auth,
		uploader:    up,
		stagingDir:  opts.StagingDir,
		timeouts:    opts.Timeouts.withDefaults(),
	}, nil
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	for _, f := range []struct{ v, def *time.Duration }{
		{&t.Transcribe, &d.Transcribe},
		{&t.Analyze, &d.Analyze},
		{&t.Authenticate, &d.Authenticate},
		{&t.Upload, &d.Upload},
	} {
		if *f.v <= 0 {
			*f.v = *f.def
		}
	}
	return t
}

// Validate checks the declared type and the payload size.
func Validate(u Upload) error {
	if !media.IsAudio(u.ContentType) {
		return ErrInvalidAudioType
	}
	if len(u.Data) == 0 {
		return ErrEmptyAudio
	}
	return nil
}

// CreateEntry runs the whole sequence. Validation failures match
// errs.ErrInvalidInput; any later failure is a *StepError. The staged file
// is removed on every path. A failed upload leaves the saved entry file in
// place.
func (s *Service) CreateEntry(ctx context.Context, u Upload) (*Result, error) {
	if err := Validate(u); err != nil {
		MetricFailWithReason("journal", "create", "invalid")
		return nil, err
	}

	start := time.Now()
	MetricInc("journal", "create")
	L_info("journal: create entry", "filename", u.Filename, "contentType", u.ContentType, "bytes", len(u.Data))

	var staged string
	err := s.step(ctx, StepStage, 0, func(context.Context) error {
		var err error
		staged, err = media.Stage(s.stagingDir, u.Data, media.ExtensionFor(u.Filename, u.ContentType))
		return err
	})
	if err != nil {
		return nil, err
	}
	defer media.Remove(staged)

	var transcript string
	err = s.step(ctx, StepTranscribe, s.timeouts.Transcribe, func(ctx context.Context) error {
		var err error
		transcript, err = s.transcriber.Transcribe(ctx, staged)
		return err
	})
	if err != nil {
		return nil, err
	}

	var label string
	err = s.step(ctx, StepAnalyze, s.timeouts.Analyze, func(ctx context.Context) error {
		var err error
		label, err = s.analyzer.Analyze(ctx, transcript)
		return err
	})
	if err != nil {
		return nil, err
	}

	e := &entry.Entry{
		Mindset:    u.Mindset,
		Heartset:   u.Heartset,
		Energy:     u.Energy,
		Intentions: u.Intentions,
		Transcript: transcript,
		Sentiment:  label,
	}

	var path string
	err = s.step(ctx, StepSave, 0, func(context.Context) error {
		var err error
		path, err = s.store.Save(e)
		return err
	})
	if err != nil {
		return nil, err
	}

	var cred *drive.Credential
	err = s.step(ctx, StepAuthenticate, s.timeouts.Authenticate, func(ctx context.Context) error {
		var err error
		cred, err = s.auth.AcquireCredential(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var fileID string
	err = s.step(ctx, StepUpload, s.timeouts.Upload, func(ctx context.Context) error {
		var err error
		fileID, err = s.uploader.Upload(ctx, path, cred)
		return err
	})
	if err != nil {
		L_warn("journal: entry saved locally but not uploaded", "path", path)
		return nil, err
	}

	MetricSuccess("journal", "create")
	MetricDuration("journal", "create", time.Since(start))
	L_elapsed(start, "journal: entry created", "path", path, "fileID", fileID, "sentiment", label)

	return &Result{FileID: fileID, Sentiment: label, Path: path}, nil
}

// GetEntry returns the stored markdown for dateKey verbatim.
func (s *Service) GetEntry(ctx context.Context, dateKey string) ([]byte, error) {
	data, err := s.store.Load(dateKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			MetricFailWithReason("journal", "get", "not_found")
		} else {
			MetricFailWithReason("journal", "get", "io")
		}
		return nil, err
	}
	MetricSuccess("journal", "get")
	return data, nil
}

// step runs fn detached from the caller's cancellation, bounded by timeout,
// and records metrics for it.
func (s *Service) step(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()

	// local steps pass 0 and run unbounded
	stepCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, timeout)
		defer cancel()
	}

	err := fn(stepCtx)
	MetricDuration("journal", name, time.Since(start))
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errs.IsProvider(err):
			reason = "provider"
		}
		// reason only; the error text stays in the log
		MetricFailWithReason("journal", name, reason)
		L_error("journal: step failed", "step", name, "elapsed", time.Since(start).Round(time.Millisecond), "error", err)
		return &StepError{Step: name, Err: err}
	}

	MetricSuccess("journal", name)
	L_debug("journal: step done", "step", name, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
