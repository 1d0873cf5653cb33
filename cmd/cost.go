package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/google/subcommands"
)

// costCmd holds the flags for the 'cost' subcommand.
type costCmd struct {
	date string
	rate optionalFloat
}

func (*costCmd) Name() string { return "cost" }
func (*costCmd) Synopsis() string {
	return "display the turnover and cost of moving to the candidate allocation"
}
func (*costCmd) Usage() string {
	return `rebal cost [-d <date>] [-rate <pct>]

  Compares the weights of the portfolio held on a given date with the candidate
  allocation, and displays the turnover and its transition cost.
`
}

func (c *costCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "date of the implemented portfolio, today by default")
	f.Var(&c.rate, "rate", "cost rate in percent, overrides the configuration")
}

func (c *costCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return failure("loading configuration", err)
	}
	p := a.cfg.Params()
	c.rate.apply(&p.CostRatePct)
	if err := p.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	state, err := a.StateAsOf(on)
	if err != nil {
		return failure("loading ledger", err)
	}
	candidate, err := a.DecodeCandidate()
	if err != nil {
		return failure("loading candidate", err)
	}
	if err := candidate.Validate(); err != nil {
		return failure("checking candidate", err)
	}

	turnover := rebalance.Turnover(state.Weights, candidate.Weights)
	var b strings.Builder
	fmt.Fprintf(&b, "# Transition Cost on %s\n\n", on)
	b.WriteString("| Metric | Value |\n|:---|---:|\n")
	fmt.Fprintf(&b, "| Turnover | %s |\n", rebalance.Percent(100*turnover))
	fmt.Fprintf(&b, "| Cost Rate | %s |\n", rebalance.Percent(p.CostRatePct))
	fmt.Fprintf(&b, "| Transition Cost | %s |\n", rebalance.TransitionCost(state.Weights, candidate.Weights, p.CostRatePct))
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
