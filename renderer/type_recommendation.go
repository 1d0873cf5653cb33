package renderer

import (
	"strconv"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/date"
)

// notAvailable is displayed for values that could not be computed.
const notAvailable = "n/a"

// Recommendation is a struct to represent a rebalance recommendation for rendering.
type Recommendation struct {
	AsOf           string    `json:"asOf"`
	Decision       string    `json:"decision"`
	Verdict        string    `json:"verdict"`
	Decided        bool      `json:"decided"`
	TransitionCost string    `json:"transitionCost"`
	NetGain        string    `json:"netGain"`
	Threshold      string    `json:"threshold"`
	CostRate       string    `json:"costRate"`
	Additional     string    `json:"additionalInvestment,omitempty"`
	Implemented    *Estimate `json:"implemented"`
	Candidate      *Estimate `json:"candidate"`
	Orders         []Order   `json:"orders"`
}

// Order is one line of the orders table.
type Order struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	CurrentWeight string `json:"currentWeight"`
	TargetWeight  string `json:"targetWeight"`
	Price         string `json:"price"`
	Shares        string `json:"shares"`
}

// Estimate is a struct to represent an expected return estimate for rendering.
type Estimate struct {
	Title         string         `json:"title"`
	AsOf          string         `json:"asOf"`
	Known         bool           `json:"known"`
	Return        string         `json:"return"`
	Covered       int            `json:"covered"`
	Total         int            `json:"total"`
	CoveredWeight string         `json:"coveredWeight"`
	Lines         []Contribution `json:"lines"`
}

// Contribution is one line of the contributions table.
type Contribution struct {
	ID           string `json:"id"`
	Weight       string `json:"weight"`
	Date         string `json:"date"`
	CurrentPrice string `json:"currentPrice"`
	Source       string `json:"source"`
	TargetPrice  string `json:"targetPrice"`
	Upside       string `json:"upside"`
}

// weight renders a fraction as a percentage.
func weight(w float64) string { return rebalance.Percent(100 * w).String() }

func price(p float64) string {
	if p <= 0 {
		return notAvailable
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// NewRecommendation prepares a recommendation for rendering.
func NewRecommendation(rec rebalance.Recommendation) *Recommendation {
	r := &Recommendation{
		AsOf:           rec.AsOf.String(),
		Decision:       rec.Decision.String(),
		Verdict:        rec.Verdict(),
		Decided:        rec.Decision != rebalance.Unknown,
		TransitionCost: notAvailable,
		NetGain:        notAvailable,
		Threshold:      rebalance.Percent(rec.Params.MinGainThresholdPct).String(),
		CostRate:       rebalance.Percent(rec.Params.CostRatePct).String(),
		Implemented:    NewEstimate("Implemented Portfolio", rec.AsOf, rec.Implemented),
		Candidate:      NewEstimate("Candidate Portfolio", rec.AsOf, rec.Candidate),
	}
	if rec.Params.AdditionalInvestment > 0 {
		r.Additional = strconv.FormatFloat(rec.Params.AdditionalInvestment, 'f', 2, 64)
	}
	if r.Decided {
		r.TransitionCost = rec.TransitionCostPct.String()
		r.NetGain = rec.NetGainPct.SignedString()
	}
	for _, o := range rec.Transactions {
		shares := o.Shares.String()
		if o.Price <= 0 {
			shares = notAvailable
		}
		r.Orders = append(r.Orders, Order{
			ID:            o.ID.String(),
			Action:        o.Action.String(),
			CurrentWeight: weight(o.CurrentWeight),
			TargetWeight:  weight(o.TargetWeight),
			Price:         price(o.Price),
			Shares:        shares,
		})
	}
	return r
}

// NewEstimate prepares an estimate for rendering.
func NewEstimate(title string, on date.Date, est rebalance.Estimate) *Estimate {
	e := &Estimate{
		Title:         title,
		AsOf:          on.String(),
		Known:         est.Known,
		Return:        notAvailable,
		Covered:       est.Covered,
		Total:         est.Total,
		CoveredWeight: weight(est.CoveredWeight),
	}
	if est.Known {
		e.Return = est.ReturnPct.String()
	}
	for _, c := range est.Contributions {
		line := Contribution{
			ID:           c.ID.String(),
			Weight:       weight(c.Weight),
			Date:         notAvailable,
			CurrentPrice: price(c.CurrentPrice),
			Source:       c.Source.String(),
			TargetPrice:  price(c.Snapshot.TargetPrice),
			Upside:       notAvailable,
		}
		if !c.Snapshot.Date.IsZero() {
			line.Date = c.Snapshot.Date.String()
		}
		if c.Covered {
			line.Upside = c.UpsidePct.SignedString()
		}
		e.Lines = append(e.Lines, line)
	}
	return e
}
