// Package agent explains rebalance recommendations with a Gemini model.
//
// The model is given the recommendation report and tools bound to the
// engine, so that what-if questions are answered with the engine's own
// arithmetic rather than the model's.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/logger"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used by the advisor.
const DefaultModel = "gemini-2.5-pro"

const instruction = `
You are a portfolio advisor explaining a rebalance recommendation to its owner.

The recommendation compares the implemented portfolio, rebuilt from the
owner's trades, with a candidate allocation. Expected returns come from
analyst target prices. Transition cost is turnover times the cost rate.

Always read the recommendation report first. Never compute a transition cost
or a decision yourself: use the tools, they implement the engine's exact
rules. Say clearly when an expected return is unknown or partially covered.
Answer in the language of the question.
`

// Advisor is the AI assistant that explains a recommendation.
type Advisor struct {
	w      io.Writer
	r      *bufio.Reader
	Expert *Expert
}

// NewAdvisor creates an Advisor for rec. Answers are written to w and, in
// interactive mode, questions are read from r.
func NewAdvisor(rec rebalance.Recommendation, resolver *rebalance.Resolver, log zerolog.Logger, w io.Writer, r io.Reader) *Advisor {
	tools := []Function{Report(rec), TransitionCost(resolver), ClassifyGain()}
	return &Advisor{
		w: w,
		r: bufio.NewReader(r),
		Expert: &Expert{
			Name:      "Advisor",
			ModelName: DefaultModel,
			Config: &genai.GenerateContentConfig{
				Tools: []*genai.Tool{
					{FunctionDeclarations: NewDeclaration(tools)},
				},
				SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
			},
			Library: NewLibrary(tools),
			Log:     logger.Component(log, "advisor"),
		},
	}
}

// Explain asks for an explanation of the recommendation and prints it.
func (a *Advisor) Explain(ctx context.Context, client *genai.Client, question string) error {
	if a.Expert.chat == nil {
		if err := a.Expert.Start(ctx, client); err != nil {
			return err
		}
	}
	if strings.TrimSpace(question) == "" {
		question = "Explain this recommendation and what drives it."
	}
	answer, err := a.Expert.Ask(ctx, &genai.Part{Text: question})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.w, answer)
	return nil
}

const prompt = "explain> "

// Run starts the interactive REPL session, after an initial explanation.
func (a *Advisor) Run(ctx context.Context, client *genai.Client, question string) error {
	if err := a.Explain(ctx, client, question); err != nil {
		return err
	}
	fmt.Fprintln(a.w, "Ask a follow-up question. Type 'bye' to exit.")
	for {
		fmt.Fprint(a.w, prompt)
		input, err := a.r.ReadString('\n')
		if err == io.EOF {
			return nil // Clean exit on Ctrl+D
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "bye":
			return nil
		}
		if err := a.Explain(ctx, client, input); err != nil {
			return err
		}
	}
}
