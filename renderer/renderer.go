// Package renderer turns engine results into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed *.md
var templates embed.FS

// RenderRecommendation renders a rebalance recommendation to a markdown string.
func RenderRecommendation(r *Recommendation) string {
	partials := map[string]string{
		"recommendation_title":   "recommendation_title.md",
		"recommendation_summary": "recommendation_summary.md",
		"recommendation_orders":  "recommendation_orders.md",
		// the same partial renders both sides.
		"implemented_contributions": "estimate_contributions.md",
		"candidate_contributions":   "estimate_contributions.md",
	}
	return renderTemplate("recommendation", "recommendation.md", partials, r)
}

// RenderEstimate renders the details of an expected return estimate.
func RenderEstimate(e *Estimate) string {
	partials := map[string]string{
		"estimate_contributions": "estimate_contributions.md",
	}
	return renderTemplate("estimate", "estimate.md", partials, e)
}

// RenderReplay renders the portfolio states rebuilt from a ledger.
func RenderReplay(h *History) string {
	partials := map[string]string{
		"replay_state": "replay_state.md",
	}
	return renderTemplate("replay", "replay.md", partials, h)
}

// RenderIdentities renders how raw instrument names resolve.
func RenderIdentities(ids []Identity) string {
	return renderTemplate("resolve", "resolve.md", nil, ids)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
