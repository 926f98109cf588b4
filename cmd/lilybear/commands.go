package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roelfdiedericks/lilybear/internal/config"
	"github.com/roelfdiedericks/lilybear/internal/drive"
	lbhttp "github.com/roelfdiedericks/lilybear/internal/http"
	"github.com/roelfdiedericks/lilybear/internal/journal"
	"github.com/roelfdiedericks/lilybear/internal/llm"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/sentiment"
	"github.com/roelfdiedericks/lilybear/internal/store"
	"github.com/roelfdiedericks/lilybear/internal/stt"
)

// ServeCmd runs the HTTP server until SIGINT or SIGTERM.
type ServeCmd struct {
	Listen string `help:"Listen address, overrides config." placeholder:"ADDR"`
}

func (c *ServeCmd) Run(app *Context) error {
	cfg := app.Config
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := buildJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	srv, err := lbhttp.NewServer(&lbhttp.ServerConfig{
		Listen:         cfg.Listen,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, svc)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	L_info("lilybear ready", "version", version, "addr", srv.Addr(), "entries", cfg.EntriesDir)

	<-ctx.Done()
	L_info("lilybear: shutting down")
	SetShuttingDown()
	return srv.Stop()
}

// AuthCmd runs the credential flow once so the first upload does not
// block on a browser.
type AuthCmd struct{}

func (c *AuthCmd) Run(app *Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth, err := newAuthenticator(app.Config)
	if err != nil {
		return err
	}
	cred, err := auth.AcquireCredential(ctx)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	L_info("drive: authorized", "token", app.Config.TokenPath, "expiry", cred.Token().Expiry)
	return nil
}

func newAuthenticator(cfg *config.Config) (*drive.Authenticator, error) {
	return drive.NewAuthenticator(cfg.CredentialsPath, drive.NewTokenStore(cfg.TokenPath), nil)
}

// buildJournal constructs every client up front so a missing key or
// secrets file fails at startup. The returned func releases them.
func buildJournal(ctx context.Context, cfg *config.Config) (*journal.Service, func(), error) {
	transcriber, err := stt.NewProvider(ctx, cfg.STT)
	if err != nil {
		return nil, nil, fmt.Errorf("transcription: %w", err)
	}
	closeFn := func() {
		if err := transcriber.Close(); err != nil {
			L_warn("stt: close failed", "error", err)
		}
	}

	provider, err := llm.NewProvider(cfg.LLMProvider())
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("sentiment: %w", err)
	}

	var opts []sentiment.Option
	if cfg.Sentiment.Fallback != "" {
		opts = append(opts, sentiment.WithFallback(cfg.Sentiment.Fallback))
	}
	analyzer, err := sentiment.New(provider, opts...)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("sentiment: %w", err)
	}

	auth, err := newAuthenticator(cfg)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("drive: %w", err)
	}

	svc, err := journal.NewService(
		transcriber,
		analyzer,
		store.New(cfg.EntriesDir),
		auth,
		drive.NewUploader(cfg.Drive),
		journal.Options{StagingDir: cfg.StagingDir, Timeouts: cfg.Timeouts},
	)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	L_debug("journal: clients ready",
		"stt", transcriber.Name(),
		"sentiment", provider.Name(),
		"model", provider.Model())
	return svc, closeFn, nil
}
