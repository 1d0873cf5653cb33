package renderer

import (
	"slices"
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/date"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// outline is the structure of a rendered markdown document.
type outline struct {
	headings []string
	// rows counts the body rows of each table.
	rows []int
}

func parseOutline(t *testing.T, md string) outline {
	t.Helper()
	source := []byte(md)
	parser := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	root := parser.Parse(text.NewReader(source))

	var o outline
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			var b strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				b.Write(line.Value(source))
			}
			o.headings = append(o.headings, b.String())
		case *extast.Table:
			rows := 0
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if c.Kind() == extast.KindTableRow {
					rows++
				}
			}
			o.rows = append(o.rows, rows)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("failed to walk markdown: %v", err)
	}
	return o
}

func day(s string) date.Date { return date.MustParse(s) }

// recommendation builds a real recommendation from a small ledger.
func recommendation(t *testing.T, threshold float64) rebalance.Recommendation {
	t.Helper()
	states := rebalance.Replay([]rebalance.Transaction{{
		Date:      day("2025-01-01"),
		RawName:   "A",
		Side:      rebalance.Buy,
		Quantity:  rebalance.Q(10),
		UnitPrice: rebalance.M(100, "BRL"),
	}}, nil)
	if len(states) != 1 {
		t.Fatalf("Replay() returned %d states, want 1", len(states))
	}
	idx := rebalance.NewSnapshotIndex([]rebalance.Snapshot{
		{Date: day("2025-01-01"), ID: "A", CurrentPrice: 100, TargetPrice: 104},
		{Date: day("2025-01-01"), ID: "B", CurrentPrice: 100, TargetPrice: 109},
	}, nil)
	return rebalance.Decide(states[0], rebalance.Weights{"B": 1}, idx, rebalance.Params{CostRatePct: 2, MinGainThresholdPct: threshold})
}

func TestRenderRecommendation(t *testing.T) {
	md := RenderRecommendation(NewRecommendation(recommendation(t, 3)))

	o := parseOutline(t, md)
	wantHeadings := []string{"Rebalance Recommendation on 2025-01-01", "Summary", "Orders", "Implemented Portfolio", "Candidate Portfolio"}
	if !slices.Equal(o.headings, wantHeadings) {
		t.Errorf("headings = %q, want %q", o.headings, wantHeadings)
	}
	// summary, orders, implemented and candidate contributions.
	if want := []int{6, 2, 1, 1}; !slices.Equal(o.rows, want) {
		t.Errorf("table rows = %v, want %v\n%s", o.rows, want, md)
	}
	for _, want := range []string{"**REBALANCE: net gain reaches threshold**", "| Net Gain | +3.00% |", "| B | BUY | 0.00% | 100.00% | 100.00 | 10 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("recommendation does not contain %q:\n%s", want, md)
		}
	}
}

func TestRenderRecommendation_Hold(t *testing.T) {
	md := RenderRecommendation(NewRecommendation(recommendation(t, 3.01)))

	o := parseOutline(t, md)
	if slices.Contains(o.headings, "Orders") {
		t.Errorf("a HOLD has no orders section:\n%s", md)
	}
	if !strings.Contains(md, "**HOLD: marginal gain below threshold**") {
		t.Errorf("missing verdict:\n%s", md)
	}
}

func TestRenderRecommendation_Unknown(t *testing.T) {
	rec := rebalance.Decide(rebalance.PortfolioState{AsOf: day("2025-01-01")}, rebalance.Weights{"B": 1}, rebalance.NewSnapshotIndex(nil, nil), rebalance.DefaultParams())
	md := RenderRecommendation(NewRecommendation(rec))

	for _, want := range []string{"**UNKNOWN: insufficient data**", "| Implemented Expected Return | n/a |", "| Net Gain | n/a |"} {
		if !strings.Contains(md, want) {
			t.Errorf("recommendation does not contain %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "0.00%\n") {
		t.Errorf("unknown values must not render as zero:\n%s", md)
	}
}

func TestRenderEstimate(t *testing.T) {
	idx := rebalance.NewSnapshotIndex([]rebalance.Snapshot{
		{Date: day("2025-01-01"), ID: "A", CurrentPrice: 20, TargetPrice: 25},
	}, nil)
	est := rebalance.NewEstimator(idx, nil, zerolog.Nop()).CandidateReturn(rebalance.Candidate{Weights: rebalance.Weights{"A": 0.5, "Z": 0.5}}, day("2025-01-02"))
	md := RenderEstimate(NewEstimate("Candidate Portfolio", day("2025-01-02"), est))

	o := parseOutline(t, md)
	if want := []string{"Expected Return on 2025-01-02", "Candidate Portfolio"}; !slices.Equal(o.headings, want) {
		t.Errorf("headings = %q, want %q", o.headings, want)
	}
	for _, want := range []string{"**12.50%**", "1 of 2 positions covered, 50.00% of the weight.", "| A | 50.00% | 2025-01-01 | 20.00 | snapshot | 25.00 | +25.00% |", "| Z | 50.00% | n/a | n/a | none | n/a | n/a |"} {
		if !strings.Contains(md, want) {
			t.Errorf("estimate does not contain %q:\n%s", want, md)
		}
	}
}

func TestRenderReplay(t *testing.T) {
	on := day("2025-01-01")
	states := rebalance.Replay([]rebalance.Transaction{
		{Date: on, RawName: "A", Side: rebalance.Buy, Quantity: rebalance.Q(10), UnitPrice: rebalance.M(30, "BRL")},
		{Date: on, RawName: "B", Side: rebalance.Buy, Quantity: rebalance.Q(10), UnitPrice: rebalance.M(10, "BRL")},
		{Date: on.Add(1), RawName: "A", Side: rebalance.Sell, Quantity: rebalance.Q(10), UnitPrice: rebalance.M(30, "BRL")},
		{Date: on.Add(1), RawName: "B", Side: rebalance.Sell, Quantity: rebalance.Q(10), UnitPrice: rebalance.M(30, "BRL")},
	}, nil)
	md := RenderReplay(NewHistory(states))

	o := parseOutline(t, md)
	if want := []string{"Portfolio History", "2025-01-01", "2025-01-02"}; !slices.Equal(o.headings, want) {
		t.Errorf("headings = %q, want %q", o.headings, want)
	}
	// two holdings and the total.
	if want := []int{3}; !slices.Equal(o.rows, want) {
		t.Errorf("table rows = %v, want %v\n%s", o.rows, want, md)
	}
	for _, want := range []string{"| 75.00% |", "| 25.00% |", "No open position."} {
		if !strings.Contains(md, want) {
			t.Errorf("replay does not contain %q:\n%s", want, md)
		}
	}
}

func TestRenderIdentities(t *testing.T) {
	r := rebalance.MustResolver(rebalance.DefaultAliases())
	md := RenderIdentities([]Identity{NewIdentity(r, "Petrobras PN N2"), NewIdentity(r, "bova11")})

	for _, want := range []string{"| Petrobras PN N2 | PETR4 | X | PETR3, PETR5, PETR6, PETR11 |", "| bova11 | BOVA11 |  | BOVA3, BOVA4, BOVA5, BOVA6 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("identities do not contain %q:\n%s", want, md)
		}
	}
}

// Every embedded template must at least parse on its own.
func TestTemplatesParse(t *testing.T) {
	files, err := templates.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to read embedded templates: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no embedded template")
	}
	for _, f := range files {
		content, err := templates.ReadFile(f.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name(), err)
		}
		if _, err := template.New(f.Name()).Parse(string(content)); err != nil {
			t.Errorf("template %s: %v", f.Name(), err)
		}
	}
}
