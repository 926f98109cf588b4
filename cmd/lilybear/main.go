// lilybear serves the audio journal API.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/lilybear/internal/config"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
)

const version = "0.1.0"

// Context is passed to every command's Run.
type Context struct {
	Config *config.Config
	Debug  bool
}

var CLI struct {
	Version kong.VersionFlag `help:"Print version and exit."`
	Config  string           `help:"Config file (.toml, .yaml, .json). Default ./lilybear.toml or ~/.lilybear/lilybear.toml." type:"path"`
	Debug   bool             `help:"Debug logging." short:"d"`

	Serve ServeCmd `cmd:"" help:"Run the journal HTTP server." default:"1"`
	Auth  AuthCmd  `cmd:"" help:"Authorize Google Drive access and store the token."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lilybear"),
		kong.Description("Audio journal: transcribe, score, store and back up voice notes."),
		kong.UsageOnError(),
		kong.Vars{"version": "lilybear " + version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logCfg := DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	if CLI.Debug {
		logCfg.Level = LevelDebug
	}
	logCfg.File = cfg.Log.File
	Init(logCfg)

	if cfg.Source != "" {
		L_info("config loaded", "path", cfg.Source)
	}

	if err := ctx.Run(&Context{Config: cfg, Debug: CLI.Debug}); err != nil {
		L_errorf("lilybear: %v", err)
		os.Exit(1)
	}
}
