package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// replayCmd holds the flags for the 'replay' subcommand.
type replayCmd struct {
	date string
	last bool
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "rebuild holdings, cost basis and weights from the ledger" }
func (*replayCmd) Usage() string {
	return `rebal replay [-d <date>] [-last]

  Replays the ledger and displays the portfolio after each trade date, up to
  the given date.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "last date to display, today by default")
	f.BoolVar(&c.last, "last", false, "only display the portfolio in effect on the date")
}

func (c *replayCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return failure("loading configuration", err)
	}
	states, err := a.Replay()
	if err != nil {
		return failure("loading ledger", err)
	}

	var shown []rebalance.PortfolioState
	for _, s := range states {
		if s.AsOf.After(on) {
			break
		}
		shown = append(shown, s)
	}
	if c.last && len(shown) > 0 {
		shown = shown[len(shown)-1:]
	}
	printMarkdown(renderer.RenderReplay(renderer.NewHistory(shown)))
	return subcommands.ExitSuccess
}
