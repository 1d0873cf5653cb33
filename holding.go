package rebalance

// Holding is the position held in one instrument under the average-cost
// method. Quantity and CostBasis are never negative and move together.
type Holding struct {
	ID        CanonicalID
	Quantity  Quantity
	CostBasis Money
}

// AverageCost returns the average unit cost of the position, or zero for an
// empty position.
func (h Holding) AverageCost() Money {
	if !h.Quantity.IsPositive() {
		return M(0, h.CostBasis.Currency())
	}
	return h.CostBasis.Div(h.Quantity)
}

// buy adds quantity and its gross value to the position.
func (h *Holding) buy(q Quantity, gross Money) {
	h.Quantity = h.Quantity.Add(q)
	h.CostBasis = h.CostBasis.Add(gross)
}

// sell removes q units at the position's average unit cost.
//
// The removed cost is CostBasis×q/Quantity, multiplying first to keep the
// decimal exact when the average cost is periodic. Selling from an empty
// position is a no-op. Overselling clamps the position to zero: a holding
// never goes short.
func (h *Holding) sell(q Quantity) {
	if !h.Quantity.IsPositive() {
		h.Quantity, h.CostBasis = Q(0), M(0, h.CostBasis.Currency())
		return
	}
	removed := h.CostBasis.Mul(q).Div(h.Quantity)
	h.Quantity = h.Quantity.Sub(q)
	h.CostBasis = h.CostBasis.Sub(removed)
	if !h.Quantity.IsPositive() {
		h.Quantity, h.CostBasis = Q(0), M(0, h.CostBasis.Currency())
	}
	if h.CostBasis.IsNegative() {
		h.CostBasis = M(0, h.CostBasis.Currency())
	}
}
