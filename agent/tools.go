package agent

import (
	"context"
	"fmt"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"google.golang.org/genai"
)

// weightsSchema describes an allocation as a list of id/weight pairs.
var weightsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":     {Type: genai.TypeString, Description: "Instrument symbol or broker name."},
			"weight": {Type: genai.TypeNumber, Description: "Fraction of the portfolio, between 0 and 1."},
		},
		Required: []string{"id", "weight"},
	},
}

// TransitionCost prices the move between two allocations.
func TransitionCost(r *rebalance.Resolver) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "transition_cost",
			Description: "Computes the cost, in percentage points, of moving a portfolio from one allocation to another. The cost is half the sum of absolute weight changes times the cost rate.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"from":          weightsSchema,
					"to":            weightsSchema,
					"cost_rate_pct": {Type: genai.TypeNumber, Description: "Combined fee and spread rate applied to turnover, in percent."},
				},
				Required: []string{"from", "to", "cost_rate_pct"},
			},
		},
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			from, err := weightsArg(args, "from", r)
			if err != nil {
				return nil, err
			}
			to, err := weightsArg(args, "to", r)
			if err != nil {
				return nil, err
			}
			rate, err := numberArg(args, "cost_rate_pct")
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"turnover":            rebalance.Turnover(from, to),
				"transition_cost_pct": float64(rebalance.TransitionCost(from, to, rate)),
			}, nil
		},
	}
}

// ClassifyGain applies the decision rule to a net gain.
func ClassifyGain() *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "classify_gain",
			Description: "Applies the rebalance decision rule to a net gain: REBALANCE when it reaches the threshold, otherwise HOLD with the reason.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"net_gain_pct":  {Type: genai.TypeNumber, Description: "Candidate return minus implemented return minus transition cost, in percent."},
					"threshold_pct": {Type: genai.TypeNumber, Description: "Minimum net gain required to rebalance, in percent."},
				},
				Required: []string{"net_gain_pct", "threshold_pct"},
			},
		},
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			net, err := numberArg(args, "net_gain_pct")
			if err != nil {
				return nil, err
			}
			threshold, err := numberArg(args, "threshold_pct")
			if err != nil {
				return nil, err
			}
			d, reason := rebalance.Classify(rebalance.Percent(net), rebalance.Percent(threshold))
			return map[string]any{"decision": d.String(), "reason": reason.String()}, nil
		},
	}
}

// Report returns the markdown report of the recommendation being explained.
func Report(rec rebalance.Recommendation) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "recommendation_report",
			Description: "Returns the full markdown report of the recommendation: returns, cost, net gain, orders and per instrument contributions.",
		},
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return renderer.RenderRecommendation(renderer.NewRecommendation(rec)), nil
		},
	}
}

func numberArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("argument %q is missing", name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("argument %q is not a number but %T", name, v)
	}
}

func weightsArg(args map[string]any, name string, r *rebalance.Resolver) (rebalance.Weights, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("argument %q is missing", name)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a list but %T", name, v)
	}
	var pairs []rebalance.WeightPair
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an object but %T", name, i, item)
		}
		id, _ := m["id"].(string)
		w, err := numberArg(m, "weight")
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		pairs = append(pairs, rebalance.WeightPair{ID: id, Weight: w})
	}
	return rebalance.NewCandidate(pairs, r).Weights, nil
}
