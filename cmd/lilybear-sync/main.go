// lilybear-sync posts a local audio file to a lilybear server and prints
// the reply.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/lilybear/internal/client"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
)

var CLI struct {
	Audio  string `help:"Audio file to upload." type:"existingfile" required:""`
	APIURL string `name:"api-url" help:"Journal server base URL." default:"${api_url}"`
	Debug  bool   `help:"Debug logging." short:"d"`

	Mindset    string `help:"Mindset note."`
	Heartset   string `help:"Heartset note."`
	Energy     string `help:"Energy level."`
	Intentions string `help:"Intentions for the day."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("lilybear-sync"),
		kong.Description("Upload an audio note to the lilybear journal."),
		kong.UsageOnError(),
		kong.Vars{"api_url": client.DefaultAPIURL},
	)

	logCfg := DefaultConfig()
	logCfg.Level = LevelWarn
	if CLI.Debug {
		logCfg.Level = LevelDebug
	}
	Init(logCfg)

	resp, err := client.New(CLI.APIURL, nil).PostEntry(context.Background(), CLI.Audio, client.Fields{
		Mindset:    CLI.Mindset,
		Heartset:   CLI.Heartset,
		Energy:     CLI.Energy,
		Intentions: CLI.Intentions,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(resp.Body)
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Println()
	}
	if !resp.OK() {
		os.Exit(1)
	}
}
