package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	DB        string `help:"Path to the snapshot database (defaults to the XDG state dir)"`
	LogLevel  string `default:"warn" help:"Log level"`
	QuietLogs bool   `help:"Write logs to the state log file instead of stderr"`

	Submit  SubmitCmd  `cmd:"" help:"Create a submission from a sequence file"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a recorded step-event stream and print the timeline"`
	History HistoryCmd `cmd:"" help:"List persisted conversations"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chatfold"),
		kong.Description("Structure-prediction chat client core"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
