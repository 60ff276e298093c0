// Package testkit generates deterministic synthetic observational datasets
// with known confounding structure, for tests and demo runs.
package testkit

import (
	"math/rand"

	"causalboot/domain/core"
	"causalboot/domain/dataset"
)

// Column names used by every generated table
const (
	ColConfounder core.ColumnKey = "confounder"
	ColExposure   core.ColumnKey = "exposure"
	ColOutcome    core.ColumnKey = "outcome"
)

// BinaryDesignConfig configures a binary-exposure confounded design. The
// true exposure effect on the outcome is zero: the outcome depends only on
// the confounder, so an unconfounded estimator should recover ~0.
type BinaryDesignConfig struct {
	Rows int `json:"rows"`
	// PExposedLow and PExposedHigh are P(exposure=1) given confounder 0 / 1.
	PExposedLow  float64 `json:"p_exposed_low"`
	PExposedHigh float64 `json:"p_exposed_high"`
	PConfounder  float64 `json:"p_confounder"`
	OutcomeNoise float64 `json:"outcome_noise"`
	Seed         int64   `json:"seed"`
}

// DefaultBinaryDesign returns the canonical workshop design: n=1000,
// exposure probability 0.25/0.75 conditional on a binary confounder,
// outcome = confounder + noise.
func DefaultBinaryDesign() BinaryDesignConfig {
	return BinaryDesignConfig{
		Rows:         1000,
		PExposedLow:  0.25,
		PExposedHigh: 0.75,
		PConfounder:  0.5,
		OutcomeNoise: 1.0,
		Seed:         42,
	}
}

// GenerateBinaryDesign builds the confounded table for the config.
func GenerateBinaryDesign(cfg BinaryDesignConfig) (*dataset.Table, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	confounder := make([]float64, cfg.Rows)
	exposure := make([]float64, cfg.Rows)
	out := make([]float64, cfg.Rows)
	for i := 0; i < cfg.Rows; i++ {
		l := 0.0
		if rng.Float64() < cfg.PConfounder {
			l = 1.0
		}
		p := cfg.PExposedLow
		if l == 1.0 {
			p = cfg.PExposedHigh
		}
		a := 0.0
		if rng.Float64() < p {
			a = 1.0
		}
		confounder[i] = l
		exposure[i] = a
		out[i] = l + cfg.OutcomeNoise*rng.NormFloat64()
	}

	return dataset.NewTable(map[core.ColumnKey][]float64{
		ColConfounder: confounder,
		ColExposure:   exposure,
		ColOutcome:    out,
	})
}

// ContinuousDesignConfig configures a continuous-exposure confounded design:
// exposure = confounder + noise, outcome = confounder + noise. The true
// exposure effect is again zero.
type ContinuousDesignConfig struct {
	Rows          int     `json:"rows"`
	ExposureNoise float64 `json:"exposure_noise"`
	OutcomeNoise  float64 `json:"outcome_noise"`
	Seed          int64   `json:"seed"`
}

// DefaultContinuousDesign returns the workshop's continuous design.
func DefaultContinuousDesign() ContinuousDesignConfig {
	return ContinuousDesignConfig{
		Rows:          1000,
		ExposureNoise: 1.0,
		OutcomeNoise:  1.0,
		Seed:          42,
	}
}

// GenerateContinuousDesign builds the continuous-exposure table.
func GenerateContinuousDesign(cfg ContinuousDesignConfig) (*dataset.Table, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	confounder := make([]float64, cfg.Rows)
	exposure := make([]float64, cfg.Rows)
	out := make([]float64, cfg.Rows)
	for i := 0; i < cfg.Rows; i++ {
		l := rng.NormFloat64()
		confounder[i] = l
		exposure[i] = l + cfg.ExposureNoise*rng.NormFloat64()
		out[i] = l + cfg.OutcomeNoise*rng.NormFloat64()
	}

	return dataset.NewTable(map[core.ColumnKey][]float64{
		ColConfounder: confounder,
		ColExposure:   exposure,
		ColOutcome:    out,
	})
}
