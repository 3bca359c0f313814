// Package render formats performance reports as markdown and renders them
// for the terminal.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

const reportTemplate = `# Portfolio Performance ({{ .Lens }})

As of {{ .AsOf.Format "2006-01-02" }}

| Group | Value | Cost Basis | Unrealized | Realized | Income | Fees | Net Gain | Return | IRR | Weight |
|---|--:|--:|--:|--:|--:|--:|--:|--:|--:|--:|
{{- range .Groups }}
| {{ .Label }} | {{ money .CurrentValue }} | {{ money .CostBasis }} | {{ money .UnrealizedGain }} | {{ money .RealizedGain }} | {{ money .Income }} | {{ money .Fees }} | {{ money .NetGain }} | {{ pct .TotalReturnPct }} | {{ irr .AnnualizedIRRPct }} | {{ pct .WeightPct }} |
{{- end }}
| **Total** | {{ money .Total.CurrentValue }} | {{ money .Total.CostBasis }} | {{ money .Total.UnrealizedGain }} | {{ money .Total.RealizedGain }} | {{ money .Total.Income }} | {{ money .Total.Fees }} | {{ money .Total.NetGain }} | {{ pct .Total.TotalReturnPct }} | {{ irr .Total.AnnualizedIRRPct }} | {{ pct .Total.WeightPct }} |
{{- if missing . }}

Missing prices (valued at zero): {{ missing . }}
{{- end }}
`

const lotsTemplate = `# Tax Lots

| Lot | Account | Asset | Purchased | Quantity | Remaining | Basis/Unit | Status |
|---|---|---|---|--:|--:|--:|---|
{{- range . }}
| {{ .ID }} | {{ .AccountID }} | {{ .AssetID }} | {{ .PurchaseDate.Format "2006-01-02" }} | {{ .Quantity }} | {{ .RemainingQuantity }} | {{ .CostBasisPerUnit }} | {{ if .Open }}open{{ else }}closed{{ end }} |
{{- end }}
`

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"irr": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f%%", *v)
	},
	"missing": func(r *models.PerformanceReport) string {
		seen := make(map[string]bool)
		var tickers []string
		collect := func(snap models.PerformanceSnapshot) {
			for _, t := range snap.MissingPrices {
				if !seen[t] {
					seen[t] = true
					tickers = append(tickers, t)
				}
			}
		}
		for _, g := range r.Groups {
			collect(g)
		}
		collect(r.Total)
		return strings.Join(tickers, ", ")
	},
}

// ReportMarkdown renders a performance report as a markdown document.
func ReportMarkdown(report *models.PerformanceReport) (string, error) {
	return execute("report", reportTemplate, report)
}

// LotsMarkdown renders a lot listing as a markdown document.
func LotsMarkdown(lots []models.TaxLot) (string, error) {
	// Templates need pointers to reach the pointer-receiver methods.
	ptrs := make([]*models.TaxLot, len(lots))
	for i := range lots {
		ptrs[i] = &lots[i]
	}
	return execute("lots", lotsTemplate, ptrs)
}

func execute(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

// Terminal renders markdown with terminal styling. Plain mode returns the
// markdown untouched for piping.
func Terminal(markdown string, plain bool) (string, error) {
	if plain {
		return markdown, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(160),
	)
	if err != nil {
		return markdown, nil
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown, nil
	}
	return out, nil
}
