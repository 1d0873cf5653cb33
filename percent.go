package rebalance

import (
	"fmt"
	"math"
)

// Percent is a value expressed in percentage points, 25 meaning 25%.
type Percent float64

// Equal compares two percentages with a precision of 1e-4 points.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	return math.Abs(float64(p-q)) < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// SignedString returns the percentage with an explicit sign, 0 being "-".
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
