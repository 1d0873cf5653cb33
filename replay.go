package rebalance

import (
	"cmp"
	"slices"

	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/logger"
	"github.com/rs/zerolog"
)

// PortfolioState is the portfolio reconstructed at the end of a trade date.
type PortfolioState struct {
	AsOf date.Date
	// Holdings lists the open positions (quantity > 0), sorted by id.
	Holdings []Holding
	// Weights maps each open position to its fraction of the total cost
	// basis. It is nil when the total cost basis is zero.
	Weights Weights
}

// TotalCostBasis returns the sum of the cost basis of all holdings.
func (s PortfolioState) TotalCostBasis() Money {
	var total Money
	for _, h := range s.Holdings {
		total = total.Add(h.CostBasis)
	}
	return total
}

// Holding returns the open position in id, if any.
func (s PortfolioState) Holding(id CanonicalID) (Holding, bool) {
	i, found := slices.BinarySearchFunc(s.Holdings, id, func(h Holding, id CanonicalID) int {
		return cmp.Compare(h.ID, id)
	})
	if !found {
		return Holding{}, false
	}
	return s.Holdings[i], true
}

// Positions returns the weighted positions of the state, in id order. It is
// empty when weights are undefined.
func (s PortfolioState) Positions() []Position {
	if s.Weights == nil {
		return nil
	}
	positions := make([]Position, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		positions = append(positions, Position{
			ID:          h.ID,
			Weight:      s.Weights[h.ID],
			AverageCost: h.AverageCost().Float(),
		})
	}
	return positions
}

// Replayer rebuilds the historical portfolio from a trade ledger.
type Replayer struct {
	resolver *Resolver
	log      zerolog.Logger
}

// NewReplayer creates a Replayer resolving instrument names with r.
func NewReplayer(r *Resolver, log zerolog.Logger) *Replayer {
	return &Replayer{
		resolver: r,
		log:      logger.Component(log, "replayer"),
	}
}

// Replay applies transactions in date order and returns one PortfolioState
// per distinct date with at least one valid transaction. Transactions of the same date are applied in input
// order. Invalid transactions are logged and skipped.
//
// States are not emitted for dates without trades: consumers carry the last
// state forward, see StateAsOf.
func (rp *Replayer) Replay(txs []Transaction) []PortfolioState {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b Transaction) int { return a.Date.Compare(b.Date) })

	holdings := make(map[CanonicalID]*Holding)
	var states []PortfolioState

	for i := 0; i < len(sorted); {
		on := sorted[i].Date
		j, applied := i, false
		for ; j < len(sorted) && sorted[j].Date == on; j++ {
			if rp.apply(holdings, sorted[j]) {
				applied = true
			}
		}
		i = j
		if !applied {
			// every row of that day was skipped, there is no trade to report.
			continue
		}
		states = append(states, newState(on, holdings))
	}
	return states
}

// apply replays a single transaction into holdings. It returns false when
// the transaction is malformed and was skipped.
func (rp *Replayer) apply(holdings map[CanonicalID]*Holding, tx Transaction) bool {
	if err := tx.Validate(); err != nil {
		rp.log.Warn().Err(err).Stringer("tx", tx).Msg("skipping malformed transaction")
		return false
	}
	id := rp.resolver.Resolve(tx.RawName)
	h, ok := holdings[id]
	if !ok {
		if tx.Side == Sell {
			rp.log.Debug().Str("id", string(id)).Stringer("date", tx.Date).Msg("sell without a prior holding is ignored")
			return true
		}
		h = &Holding{ID: id, CostBasis: M(0, tx.Gross().Currency())}
		holdings[id] = h
	}
	switch tx.Side {
	case Buy:
		h.buy(tx.Quantity, tx.Gross())
	case Sell:
		if tx.Quantity.GreaterThan(h.Quantity) {
			rp.log.Warn().Str("id", string(id)).Stringer("held", h.Quantity).Stringer("sold", tx.Quantity).Msg("oversell clamped to zero")
		}
		h.sell(tx.Quantity)
	}
	return true
}

// newState snapshots the open holdings and computes their cost-basis weights.
func newState(on date.Date, holdings map[CanonicalID]*Holding) PortfolioState {
	s := PortfolioState{AsOf: on}
	for _, h := range holdings {
		if h.Quantity.IsPositive() {
			s.Holdings = append(s.Holdings, *h)
		}
	}
	slices.SortFunc(s.Holdings, func(a, b Holding) int { return cmp.Compare(a.ID, b.ID) })

	total := s.TotalCostBasis()
	if !total.IsPositive() {
		return s
	}
	s.Weights = make(Weights, len(s.Holdings))
	for _, h := range s.Holdings {
		s.Weights[h.ID] = h.CostBasis.Ratio(total)
	}
	return s
}

// Replay is a convenience for NewReplayer(r, zerolog.Nop()).Replay(txs).
func Replay(txs []Transaction, r *Resolver) []PortfolioState {
	return NewReplayer(r, zerolog.Nop()).Replay(txs)
}

// StateAsOf returns the state in effect on a given day: the last state dated
// on or before on. states must be in chronological order, as returned by
// Replay.
func StateAsOf(states []PortfolioState, on date.Date) (PortfolioState, bool) {
	i, found := slices.BinarySearchFunc(states, on, func(s PortfolioState, on date.Date) int {
		return s.AsOf.Compare(on)
	})
	if found {
		return states[i], true
	}
	if i == 0 {
		return PortfolioState{}, false
	}
	return states[i-1], true
}
