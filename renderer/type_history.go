package renderer

import "github.com/etnz/rebalance"

// History is a struct to represent replayed portfolio states for rendering.
type History struct {
	States []State `json:"states"`
}

// State is the portfolio at the end of one trade date.
type State struct {
	AsOf     string         `json:"asOf"`
	Total    string         `json:"total"`
	Holdings []HoldingState `json:"holdings"`
}

// HoldingState is one line of a state table.
type HoldingState struct {
	ID          string `json:"id"`
	Quantity    string `json:"quantity"`
	CostBasis   string `json:"costBasis"`
	AverageCost string `json:"averageCost"`
	Weight      string `json:"weight"`
}

// NewHistory prepares replayed states for rendering.
func NewHistory(states []rebalance.PortfolioState) *History {
	h := &History{}
	for _, s := range states {
		st := State{
			AsOf:  s.AsOf.String(),
			Total: s.TotalCostBasis().String(),
		}
		for _, hd := range s.Holdings {
			w := notAvailable
			if s.Weights != nil {
				w = weight(s.Weights[hd.ID])
			}
			st.Holdings = append(st.Holdings, HoldingState{
				ID:          hd.ID.String(),
				Quantity:    hd.Quantity.String(),
				CostBasis:   hd.CostBasis.String(),
				AverageCost: hd.AverageCost().String(),
				Weight:      w,
			})
		}
		h.States = append(h.States, st)
	}
	return h
}

// Identity is one line of the identity resolution table.
type Identity struct {
	Input      string   `json:"input"`
	ID         string   `json:"id"`
	Aliased    bool     `json:"aliased"`
	Alternates []string `json:"alternates"`
}

// NewIdentity resolves raw through r for rendering.
func NewIdentity(r *rebalance.Resolver, raw string) Identity {
	id := r.Resolve(raw)
	var alts []string
	for _, a := range r.Alternates(id) {
		alts = append(alts, a.String())
	}
	return Identity{Input: raw, ID: id.String(), Aliased: r.Aliased(raw), Alternates: alts}
}
