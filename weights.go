package rebalance

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// WeightTolerance is the tolerance used when checking that weights sum to one.
const WeightTolerance = 1e-9

// Weights maps instruments to their fraction of a portfolio.
type Weights map[CanonicalID]float64

// IDs returns the instruments in sorted order.
func (w Weights) IDs() []CanonicalID {
	ids := make([]CanonicalID, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// values returns the weights in IDs order, so sums are reproducible.
func (w Weights) values() []float64 {
	v := make([]float64, 0, len(w))
	for _, id := range w.IDs() {
		v = append(v, w[id])
	}
	return v
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return floats.Sum(w.values())
}

// Validate checks that weights are finite, non-negative and sum to one.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("no weights")
	}
	for _, id := range w.IDs() {
		if v := w[id]; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid weight %v for %q", v, id)
		}
	}
	if sum := w.Sum(); !scalar.EqualWithinAbs(sum, 1, WeightTolerance) {
		return fmt.Errorf("weights sum to %v, want 1", sum)
	}
	return nil
}

// union returns the sorted union of the instruments of a and b.
func union(a, b Weights) []CanonicalID {
	ids := a.IDs()
	for id := range b {
		if _, ok := a[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
