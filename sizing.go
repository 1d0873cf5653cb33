package rebalance

import (
	"math"

	"github.com/etnz/rebalance/date"
)

// orders lists the instruments whose weight differs between implemented and
// candidate, in id order, and sizes them.
//
// The portfolio value is the market value of the holdings plus
// p.AdditionalInvestment. Each order targets floor(value×target/price) shares.
// The action follows the weight change while shares follow the market value,
// so when both disagree (an instrument whose price rose above its cost basis
// share) the order keeps its action with zero shares.
func (e *Engine) orders(implemented PortfolioState, candidate Candidate, on date.Date, p Params) []Order {
	type priced struct {
		price  float64
		source PriceSource
	}
	prices := make(map[CanonicalID]priced)
	var value float64
	for _, h := range implemented.Holdings {
		price, src := e.est.CurrentPrice(h.ID, on, h.AverageCost().Float())
		prices[h.ID] = priced{price, src}
		value += h.Quantity.Float() * price
	}
	value += p.AdditionalInvestment

	var orders []Order
	for _, id := range union(implemented.Weights, candidate.Weights) {
		current, target := implemented.Weights[id], candidate.Weights[id]
		if math.Abs(target-current) <= WeightTolerance {
			continue
		}
		o := Order{ID: id, CurrentWeight: current, TargetWeight: target, Action: Sell}
		if target > current {
			o.Action = Buy
		}
		pr, ok := prices[id]
		if !ok {
			pr.price, pr.source = e.est.CurrentPrice(id, on, 0)
		}
		o.Price, o.Source = pr.price, pr.source

		var held float64
		if h, ok := implemented.Holding(id); ok {
			held = h.Quantity.Float()
		}
		if o.Price > 0 && value > 0 {
			delta := math.Floor(value*target/o.Price) - held
			if o.Action == Sell {
				delta = -delta
			}
			o.Shares = Q(math.Max(delta, 0))
		}
		orders = append(orders, o)
	}
	return orders
}
