// Package report renders bootstrap run summaries as markdown and HTML.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"

	"causalboot/domain/causal"
	"causalboot/internal/weights"
)

// Builder assembles an analysis report
type Builder struct {
	DatasetName string
	Generated   time.Time
}

// NewBuilder creates a report builder for the named dataset
func NewBuilder(datasetName string) *Builder {
	return &Builder{DatasetName: datasetName, Generated: time.Now().UTC()}
}

// Markdown renders the run summary as a markdown document.
func (b *Builder) Markdown(result *causal.BootstrapResult, diag weights.Diagnostics) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Causal effect estimate: %s\n\n", b.DatasetName)
	fmt.Fprintf(&sb, "Run `%s`, generated %s\n\n", result.RunID, b.Generated.Format(time.RFC3339))

	fmt.Fprintf(&sb, "## Estimate\n\n")
	fmt.Fprintf(&sb, "| Quantity | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Point estimate (%s) | %.4f |\n", result.PointMode, result.PointEstimate)
	fmt.Fprintf(&sb, "| %.0f%% interval (%s) | [%.4f, %.4f] |\n",
		(1-result.Alpha)*100, result.Method, result.Lower, result.Upper)
	fmt.Fprintf(&sb, "| Apparent-sample estimate | %.4f |\n", result.ApparentEstimate)
	fmt.Fprintf(&sb, "| Replicates used | %d |\n", result.NUsed)
	fmt.Fprintf(&sb, "| Replicates failed | %d |\n\n", result.NFailed)

	fmt.Fprintf(&sb, "## Weight diagnostics\n\n")
	fmt.Fprintf(&sb, "| Quantity | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Mean weight | %.4f |\n", diag.Mean)
	fmt.Fprintf(&sb, "| Weight std dev | %.4f |\n", diag.StdDev)
	fmt.Fprintf(&sb, "| Min / max weight | %.4f / %.4f |\n", diag.Min, diag.Max)
	fmt.Fprintf(&sb, "| Effective sample size | %.1f |\n\n", diag.EffectiveSampleSize)

	if result.NFailed > 0 {
		fmt.Fprintf(&sb, "## Replicate failures\n\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&sb, "- replicate %d: %s\n", f.Replicate, f.Cause)
		}
		fmt.Fprintf(&sb, "\n")
	}

	return sb.String()
}

// HTML renders the run summary as an HTML fragment.
func (b *Builder) HTML(result *causal.BootstrapResult, diag weights.Diagnostics) []byte {
	md := b.Markdown(result, diag)
	return markdown.ToHTML([]byte(md), nil, nil)
}
