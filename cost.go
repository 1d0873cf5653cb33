package rebalance

import "gonum.org/v1/gonum/floats"

// Turnover returns the fraction of the portfolio that changes hands when
// moving from one allocation to another: half the L1 distance between the
// two weight vectors, because moving weight out of one instrument and into
// another is one unit of turnover, not two. Missing entries count as zero.
//
// Differences are summed in id order so that Turnover(a, b) == Turnover(b, a)
// holds exactly.
func Turnover(from, to Weights) float64 {
	ids := union(from, to)
	diffs := make([]float64, len(ids))
	for i, id := range ids {
		diffs[i] = to[id] - from[id]
	}
	if len(diffs) == 0 {
		return 0
	}
	return floats.Norm(diffs, 1) / 2
}

// TransitionCost prices the move between two allocations, in the same
// percentage units as costRatePct (the combined fee and spread rate applied
// to turnover).
func TransitionCost(from, to Weights, costRatePct float64) Percent {
	return Percent(Turnover(from, to) * costRatePct)
}
