package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// optionalFloat is a float flag that remembers whether it was set.
type optionalFloat struct {
	value float64
	set   bool
}

func (o *optionalFloat) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatFloat(o.value, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

// apply overrides dst when the flag was set.
func (o *optionalFloat) apply(dst *float64) {
	if o.set {
		*dst = o.value
	}
}

// overrides are the decision parameters that can be set on the command line.
type overrides struct {
	rate, threshold, additional optionalFloat
}

func (o *overrides) SetFlags(f *flag.FlagSet) {
	f.Var(&o.rate, "rate", "cost rate in percent, overrides the configuration")
	f.Var(&o.threshold, "threshold", "minimum net gain in percent, overrides the configuration")
	f.Var(&o.additional, "invest", "additional investment amount, overrides the configuration")
}

// params returns the configured parameters with the overrides applied.
func (o *overrides) params(cfg *rebalance.Config) rebalance.Params {
	p := cfg.Params()
	o.rate.apply(&p.CostRatePct)
	o.threshold.apply(&p.MinGainThresholdPct)
	o.additional.apply(&p.AdditionalInvestment)
	return p
}

// Recommend loads every input and evaluates the candidate on a given day.
func (a *app) Recommend(on date.Date, p rebalance.Params) (rebalance.Recommendation, error) {
	state, err := a.StateAsOf(on)
	if err != nil {
		return rebalance.Recommendation{}, fmt.Errorf("loading ledger: %w", err)
	}
	idx, err := a.DecodeSnapshots(on)
	if err != nil {
		return rebalance.Recommendation{}, fmt.Errorf("loading snapshots: %w", err)
	}
	candidate, err := a.DecodeCandidate()
	if err != nil {
		// a missing candidate is a decision outcome, not a failure.
		a.log.Warn().Err(err).Msg("no candidate")
	}
	return rebalance.NewEngine(a.Estimator(idx), a.log).Decide(state, candidate, on, p), nil
}

// decideCmd holds the flags for the 'decide' subcommand.
type decideCmd struct {
	date   string
	json   bool
	params overrides
}

func (*decideCmd) Name() string { return "decide" }
func (*decideCmd) Synopsis() string {
	return "decide whether to rebalance to the candidate allocation"
}
func (*decideCmd) Usage() string {
	return `rebal decide [-d <date>] [-rate <pct>] [-threshold <pct>] [-invest <amount>] [-json]

  Compares the expected return of the implemented portfolio with the candidate
  allocation, net of the transition cost, and recommends REBALANCE, HOLD or
  UNKNOWN. When rebalancing, the orders to place are listed.
`
}

func (c *decideCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "date of the decision, today by default")
	f.BoolVar(&c.json, "json", false, "print the recommendation as json")
	c.params.SetFlags(f)
}

func (c *decideCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return failure("loading configuration", err)
	}
	rec, err := a.Recommend(on, c.params.params(a.cfg))
	if err != nil {
		return failure("deciding", err)
	}

	view := renderer.NewRecommendation(rec)
	if c.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return failure("encoding recommendation", err)
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderRecommendation(view))
	return subcommands.ExitSuccess
}
