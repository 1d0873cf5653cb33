package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// estimateCmd holds the flags for the 'estimate' subcommand.
type estimateCmd struct {
	date      string
	candidate bool
}

func (*estimateCmd) Name() string { return "estimate" }
func (*estimateCmd) Synopsis() string {
	return "display the expected return of the implemented portfolio"
}
func (*estimateCmd) Usage() string {
	return `rebal estimate [-d <date>] [-with-candidate]

  Displays the value-weighted expected return of the portfolio held on a given
  date, with the snapshot and current price used for each holding.
`
}

func (c *estimateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "date of the estimate, today by default")
	f.BoolVar(&c.candidate, "with-candidate", false, "also display the expected return of the candidate allocation")
}

func (c *estimateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return failure("loading configuration", err)
	}
	state, err := a.StateAsOf(on)
	if err != nil {
		return failure("loading ledger", err)
	}
	idx, err := a.DecodeSnapshots(on)
	if err != nil {
		return failure("loading snapshots", err)
	}
	est := a.Estimator(idx)

	md := renderer.RenderEstimate(renderer.NewEstimate("Implemented Portfolio", on, est.StateReturn(state, on)))
	if c.candidate {
		candidate, err := a.DecodeCandidate()
		if err != nil {
			return failure("loading candidate", err)
		}
		md += "\n" + renderer.RenderEstimate(renderer.NewEstimate("Candidate Portfolio", on, est.CandidateReturn(candidate, on)))
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
