package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// explainCmd asks a Gemini model to explain a recommendation.
type explainCmd struct {
	date        string
	model       string
	interactive bool
	params      overrides
}

func (*explainCmd) Name() string     { return "explain" }
func (*explainCmd) Synopsis() string { return "explain a recommendation with the AI assistant" }
func (*explainCmd) Usage() string {
	return `rebal explain [-d <date>] [-i] [<question>...]

  Computes the recommendation like 'decide' and asks the AI assistant to
  explain it. With -i, follow-up questions are read from the terminal.
  The Gemini client reads its key from GEMINI_API_KEY or GOOGLE_API_KEY.
`
}

func (c *explainCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "date of the decision, today by default")
	f.StringVar(&c.model, "model", agent.DefaultModel, "Gemini model name")
	f.BoolVar(&c.interactive, "i", false, "start an interactive session after the explanation")
	c.params.SetFlags(f)
}

func (c *explainCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return failure("initializing Gemini's client", err)
	}
	advisor := agent.NewAdvisor(rec, a.resolver, a.log, stdout, os.Stdin)
	advisor.Expert.ModelName = c.model

	question := strings.Join(f.Args(), " ")
	if c.interactive {
		err = advisor.Run(ctx, client, question)
	} else {
		err = advisor.Explain(ctx, client, question)
	}
	if err != nil {
		return failure("explaining", err)
	}
	return subcommands.ExitSuccess
}
