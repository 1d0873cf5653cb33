package rebalance

import (
	"testing"

	"github.com/etnz/rebalance/date"
)

func BRL(v float64) Money { return M(v, "BRL") }

func day(s string) date.Date { return date.MustParse(s) }

func buy(on, name string, qty, price float64) Transaction {
	return Transaction{Date: day(on), RawName: name, Side: Buy, Quantity: Q(qty), UnitPrice: BRL(price)}
}

func sell(on, name string, qty, price float64) Transaction {
	return Transaction{Date: day(on), RawName: name, Side: Sell, Quantity: Q(qty), UnitPrice: BRL(price)}
}

func snap(on, id string, current, target float64) Snapshot {
	return Snapshot{Date: day(on), ID: CanonicalID(id), CurrentPrice: current, TargetPrice: target}
}

// lastState returns the final state of a replay, failing when there is none.
func lastState(t *testing.T, states []PortfolioState) PortfolioState {
	t.Helper()
	if len(states) == 0 {
		t.Fatal("Replay() returned no state")
	}
	return states[len(states)-1]
}
