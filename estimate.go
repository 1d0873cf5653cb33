package rebalance

import (
	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/logger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Position is what the estimator needs to know about one instrument of a
// portfolio: its weight and, for ledger-derived portfolios, its average cost.
type Position struct {
	ID          CanonicalID
	Weight      float64
	AverageCost float64 // zero when unknown
}

// LivePrices holds currently known live prices, used when a snapshot carries
// no current price.
type LivePrices map[CanonicalID]float64

// PriceSource tells where a current price came from.
type PriceSource int

const (
	NoPrice PriceSource = iota
	SnapshotPrice
	LivePrice
	AverageCostPrice
)

func (s PriceSource) String() string {
	switch s {
	case SnapshotPrice:
		return "snapshot"
	case LivePrice:
		return "live"
	case AverageCostPrice:
		return "average cost"
	default:
		return "none"
	}
}

// Contribution details how one position contributed to an estimate.
type Contribution struct {
	ID           CanonicalID
	Weight       float64
	Snapshot     Snapshot // zero when not found
	CurrentPrice float64
	Source       PriceSource
	UpsidePct    Percent
	Covered      bool // a snapshot with a target price and a current price resolved
}

// Estimate is the value-weighted expected return of a portfolio.
//
// Known is false when no position could be resolved: ReturnPct is then
// meaningless and must not be reported as 0%.
type Estimate struct {
	ReturnPct     Percent
	Known         bool
	Covered       int     // number of positions with a usable snapshot
	Total         int     // number of positions
	CoveredWeight float64 // sum of the weights of covered positions
	Contributions []Contribution
}

// Estimator computes expected returns from the snapshot index.
type Estimator struct {
	Index *SnapshotIndex
	Live  LivePrices
	log   zerolog.Logger
}

// NewEstimator creates an Estimator over idx, using live as the first
// fallback for missing current prices.
func NewEstimator(idx *SnapshotIndex, live LivePrices, log zerolog.Logger) *Estimator {
	return &Estimator{
		Index: idx,
		Live:  live,
		log:   logger.Component(log, "estimator"),
	}
}

// CurrentPrice resolves the current price of id on a given day.
//
// The chain is: the snapshot current price, then the live price, then
// averageCost as a last-resort proxy. Note that the last two may come from a
// different date than the snapshot's target price, so an estimate built on
// them mixes vintages: it is an approximation.
func (e *Estimator) CurrentPrice(id CanonicalID, on date.Date, averageCost float64) (float64, PriceSource) {
	if s, ok := e.Index.LatestAtOrBefore(id, on); ok && s.CurrentPrice > 0 {
		return s.CurrentPrice, SnapshotPrice
	}
	return e.fallbackPrice(id, averageCost)
}

func (e *Estimator) fallbackPrice(id CanonicalID, averageCost float64) (float64, PriceSource) {
	if p := e.Live[id]; p > 0 {
		return p, LivePrice
	}
	if averageCost > 0 {
		return averageCost, AverageCostPrice
	}
	return 0, NoPrice
}

// Estimate computes Σ weight × upside over positions with a resolvable
// snapshot. Positions without one contribute nothing, the result is a
// partial-coverage estimate and Covered tells how partial it is.
func (e *Estimator) Estimate(positions []Position, on date.Date) Estimate {
	est := Estimate{Total: len(positions)}
	var terms, covered []float64
	for _, p := range positions {
		c := Contribution{ID: p.ID, Weight: p.Weight}
		if s, ok := e.Index.LatestAtOrBefore(p.ID, on); ok {
			c.Snapshot = s
			if s.CurrentPrice > 0 {
				c.CurrentPrice, c.Source = s.CurrentPrice, SnapshotPrice
			} else {
				c.CurrentPrice, c.Source = e.fallbackPrice(p.ID, p.AverageCost)
			}
			if upside, ok := upsidePct(c.CurrentPrice, s.TargetPrice); ok {
				c.UpsidePct, c.Covered = upside, true
				terms = append(terms, p.Weight*float64(upside))
				covered = append(covered, p.Weight)
			}
		}
		if !c.Covered {
			e.log.Debug().Str("id", string(p.ID)).Stringer("on", on).Msg("no usable snapshot")
		}
		est.Contributions = append(est.Contributions, c)
	}
	est.Covered = len(covered)
	est.Known = est.Covered > 0
	if est.Known {
		est.ReturnPct = Percent(floats.Sum(terms))
		est.CoveredWeight = floats.Sum(covered)
	}
	return est
}

// StateReturn estimates the expected return of a ledger-derived state.
func (e *Estimator) StateReturn(s PortfolioState, on date.Date) Estimate {
	return e.Estimate(s.Positions(), on)
}

// CandidateReturn estimates the expected return of a candidate allocation.
// Candidates carry no average cost, the price chain stops at live prices.
func (e *Estimator) CandidateReturn(c Candidate, on date.Date) Estimate {
	return e.Estimate(c.Positions(), on)
}

// ExpectedReturn returns the value-weighted expected return of state on a
// given day, or false when no holding has a resolvable snapshot.
func ExpectedReturn(state PortfolioState, idx *SnapshotIndex, on date.Date) (Percent, bool) {
	est := NewEstimator(idx, nil, zerolog.Nop()).StateReturn(state, on)
	return est.ReturnPct, est.Known
}
