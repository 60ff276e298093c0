package testkit

import (
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryDesignIsDeterministic(t *testing.T) {
	cfg := DefaultBinaryDesign()
	first, err := GenerateBinaryDesign(cfg)
	require.NoError(t, err)
	second, err := GenerateBinaryDesign(cfg)
	require.NoError(t, err)

	a, _ := first.Column(ColOutcome)
	b, _ := second.Column(ColOutcome)
	assert.Equal(t, a, b)
}

func TestBinaryDesignMatchesConfiguredPropensities(t *testing.T) {
	cfg := DefaultBinaryDesign()
	cfg.Rows = 20000
	table, err := GenerateBinaryDesign(cfg)
	require.NoError(t, err)

	confounder, _ := table.Column(ColConfounder)
	exposure, _ := table.Column(ColExposure)

	var lowExposed, lowTotal, highExposed, highTotal float64
	for i := range confounder {
		if confounder[i] == 0 {
			lowTotal++
			lowExposed += exposure[i]
		} else {
			highTotal++
			highExposed += exposure[i]
		}
	}

	assert.InDelta(t, cfg.PExposedLow, lowExposed/lowTotal, 0.02)
	assert.InDelta(t, cfg.PExposedHigh, highExposed/highTotal, 0.02)
}

func TestContinuousDesignConfounding(t *testing.T) {
	table, err := GenerateContinuousDesign(DefaultContinuousDesign())
	require.NoError(t, err)

	confounder, _ := table.Column(ColConfounder)
	exposure, _ := table.Column(ColExposure)

	// Exposure inherits the confounder, so they correlate strongly.
	r, err := stats.Correlation(confounder, exposure)
	require.NoError(t, err)
	assert.Greater(t, r, 0.5)
}
