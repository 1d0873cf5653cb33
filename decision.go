package rebalance

import (
	"errors"
	"fmt"
	"math"

	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/logger"
	"github.com/rs/zerolog"
)

// Decision is the outcome of a rebalance evaluation.
type Decision int

const (
	// Unknown means the inputs were not sufficient to decide.
	Unknown Decision = iota
	// Hold means keeping the implemented portfolio.
	Hold
	// Rebalance means moving to the candidate portfolio.
	Rebalance
)

func (d Decision) String() string {
	switch d {
	case Hold:
		return "HOLD"
	case Rebalance:
		return "REBALANCE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Reason explains a Decision. Each reason has a distinct verdict text.
type Reason int

const (
	NoReason Reason = iota
	// InsufficientData: no expected return could be estimated.
	InsufficientData
	// MissingCandidate: the candidate allocation is absent or invalid.
	MissingCandidate
	// InvalidParameters: the decision parameters are negative or not numbers.
	InvalidParameters
	// CostExceedsGain: the net gain is negative.
	CostExceedsGain
	// MarginalGain: the net gain is positive but below the threshold.
	MarginalGain
	// GainAboveThreshold: the net gain reaches the threshold.
	GainAboveThreshold
)

func (r Reason) String() string {
	switch r {
	case InsufficientData:
		return "insufficient data"
	case MissingCandidate:
		return "no valid candidate portfolio"
	case InvalidParameters:
		return "invalid parameters"
	case CostExceedsGain:
		return "transition cost exceeds expected gain"
	case MarginalGain:
		return "marginal gain below threshold"
	case GainAboveThreshold:
		return "net gain reaches threshold"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Params are the knobs of a rebalance evaluation.
type Params struct {
	// CostRatePct is the combined fee and spread rate applied to turnover.
	CostRatePct float64
	// MinGainThresholdPct is the minimum net gain required to rebalance. It
	// may be negative to accept a loss.
	MinGainThresholdPct float64
	// AdditionalInvestment is extra capital added to the portfolio value
	// before sizing orders. It does not affect the decision.
	AdditionalInvestment float64
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{CostRatePct: 0.5, MinGainThresholdPct: 1}
}

// Validate rejects parameters that are not finite, and a negative cost rate
// or additional investment. The threshold can be any finite number.
func (p Params) Validate() error {
	finite := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a number, got %v", name, v)
		}
		return nil
	}
	nonNegative := func(name string, v float64) error {
		if err := finite(name, v); err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
		return nil
	}
	return errors.Join(
		nonNegative("cost rate", p.CostRatePct),
		finite("minimum gain threshold", p.MinGainThresholdPct),
		nonNegative("additional investment", p.AdditionalInvestment),
	)
}

// gainTolerance absorbs floating point noise: a net gain within it of the
// threshold reaches the threshold, and within it of zero is not a loss.
const gainTolerance = 1e-9

// Classify applies the decision rule to a net gain. The threshold is
// inclusive.
func Classify(netGainPct, thresholdPct Percent) (Decision, Reason) {
	switch {
	case netGainPct >= thresholdPct-gainTolerance:
		return Rebalance, GainAboveThreshold
	case netGainPct < -gainTolerance:
		return Hold, CostExceedsGain
	default:
		return Hold, MarginalGain
	}
}

// Order is one instrument to trade when rebalancing.
type Order struct {
	ID            CanonicalID
	Action        Side
	CurrentWeight float64
	TargetWeight  float64
	// Price and Shares size the order. Shares is zero when no price resolves.
	Price  float64
	Source PriceSource
	Shares Quantity
}

// Recommendation is the result of a rebalance evaluation.
//
// Return fields are only meaningful when the matching estimate is Known.
type Recommendation struct {
	AsOf                 date.Date
	Decision             Decision
	Reason               Reason
	Params               Params
	ImplementedReturnPct Percent
	CandidateReturnPct   Percent
	TransitionCostPct    Percent
	NetGainPct           Percent
	Implemented          Estimate
	Candidate            Estimate
	Transactions         []Order
}

// Verdict returns the human readable verdict, e.g. "HOLD: marginal gain below threshold".
func (r Recommendation) Verdict() string {
	return r.Decision.String() + ": " + r.Reason.String()
}

// Engine compares the implemented portfolio against a candidate.
//
// Engine holds no mutable state: Decide is a pure function of its inputs and
// can be called concurrently.
type Engine struct {
	est *Estimator
	log zerolog.Logger
}

// NewEngine creates an Engine estimating returns with est.
func NewEngine(est *Estimator, log zerolog.Logger) *Engine {
	return &Engine{
		est: est,
		log: logger.Component(log, "engine"),
	}
}

// Decide evaluates whether moving from implemented to candidate is worth its
// transition cost on a given day. Missing inputs degrade to Unknown.
func (e *Engine) Decide(implemented PortfolioState, candidate Candidate, on date.Date, p Params) Recommendation {
	rec := Recommendation{AsOf: on, Params: p}

	if err := p.Validate(); err != nil {
		e.log.Error().Err(err).Msg("cannot decide")
		rec.Reason = InvalidParameters
		return rec
	}

	rec.Implemented = e.est.StateReturn(implemented, on)
	if !rec.Implemented.Known {
		e.log.Warn().Stringer("on", on).Int("holdings", len(implemented.Holdings)).Msg("implemented portfolio has no usable snapshot")
		rec.Reason = InsufficientData
		return rec
	}
	rec.ImplementedReturnPct = rec.Implemented.ReturnPct

	if err := candidate.Validate(); err != nil {
		e.log.Warn().Err(err).Msg("cannot decide")
		rec.Reason = MissingCandidate
		return rec
	}
	rec.Candidate = e.est.CandidateReturn(candidate, on)
	if !rec.Candidate.Known {
		e.log.Warn().Stringer("on", on).Msg("candidate portfolio has no usable snapshot")
		rec.Reason = InsufficientData
		return rec
	}
	rec.CandidateReturnPct = rec.Candidate.ReturnPct

	rec.TransitionCostPct = TransitionCost(implemented.Weights, candidate.Weights, p.CostRatePct)
	rec.NetGainPct = rec.CandidateReturnPct - rec.ImplementedReturnPct - rec.TransitionCostPct
	rec.Decision, rec.Reason = Classify(rec.NetGainPct, Percent(p.MinGainThresholdPct))

	if rec.Decision == Rebalance {
		rec.Transactions = e.orders(implemented, candidate, on, p)
	}
	e.log.Debug().
		Stringer("decision", rec.Decision).
		Float64("net_gain_pct", float64(rec.NetGainPct)).
		Int("orders", len(rec.Transactions)).
		Msg("decided")
	return rec
}

// Decide evaluates a candidate allocation against state on the state's date,
// with no live prices and no logging.
func Decide(state PortfolioState, candidateWeights Weights, idx *SnapshotIndex, p Params) Recommendation {
	engine := NewEngine(NewEstimator(idx, nil, zerolog.Nop()), zerolog.Nop())
	return engine.Decide(state, Candidate{Weights: candidateWeights}, state.AsOf, p)
}
