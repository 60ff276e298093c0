package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/internal/weights"
)

func sampleResult() *causal.BootstrapResult {
	return &causal.BootstrapResult{
		RunID:            core.RunID("run-1"),
		PointEstimate:    0.0123,
		Lower:            -0.15,
		Upper:            0.18,
		Alpha:            0.05,
		Method:           causal.MethodStudentized,
		PointMode:        causal.PointApparent,
		ApparentEstimate: 0.0123,
		NUsed:            97,
		NFailed:          3,
		Failures: []causal.ReplicateFailure{
			{Replicate: 12, Cause: "estimation failed: rank-deficient design matrix"},
		},
	}
}

func TestMarkdownContainsRunSummary(t *testing.T) {
	md := NewBuilder("nhefs.csv").Markdown(sampleResult(), weights.Diagnostics{
		Mean: 1.01, StdDev: 0.4, Min: 0.2, Max: 4.1, EffectiveSampleSize: 812.5,
	})

	assert.True(t, strings.Contains(md, "nhefs.csv"))
	assert.True(t, strings.Contains(md, "95% interval"))
	assert.True(t, strings.Contains(md, "0.0123"))
	assert.True(t, strings.Contains(md, "Replicate failures"))
	assert.True(t, strings.Contains(md, "replicate 12"))
}

func TestHTMLRendersMarkdown(t *testing.T) {
	html := string(NewBuilder("demo").HTML(sampleResult(), weights.Diagnostics{}))
	assert.True(t, strings.Contains(html, "<h1"))
	assert.True(t, strings.Contains(html, "<table"))
}
