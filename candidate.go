package rebalance

import "fmt"

// WeightPair is one (instrument, weight) entry of an externally supplied
// allocation.
type WeightPair struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Candidate is an externally supplied target allocation, evaluated as a
// rebalance alternative to the ledger-derived portfolio.
type Candidate struct {
	Weights Weights
}

// NewCandidate resolves the instruments of pairs through r. Pairs resolving to
// the same instrument are summed. The result is not validated, see Validate.
func NewCandidate(pairs []WeightPair, r *Resolver) Candidate {
	w := make(Weights, len(pairs))
	for _, p := range pairs {
		w[r.Resolve(p.ID)] += p.Weight
	}
	return Candidate{Weights: w}
}

// Validate checks that the candidate weights are a proper allocation.
func (c Candidate) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid candidate portfolio: %w", err)
	}
	if _, ok := c.Weights[""]; ok {
		return fmt.Errorf("invalid candidate portfolio: an instrument has no letters or digits")
	}
	return nil
}

// Positions returns the candidate positions in id order.
func (c Candidate) Positions() []Position {
	positions := make([]Position, 0, len(c.Weights))
	for _, id := range c.Weights.IDs() {
		positions = append(positions, Position{ID: id, Weight: c.Weights[id]})
	}
	return positions
}
