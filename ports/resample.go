package ports

import (
	"math/rand"

	"causalboot/domain/dataset"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for one bootstrap replicate.
	// Streams are independent across replicates but reproducible across runs
	// with the same base seed, regardless of worker scheduling.
	Stream(replicate int) *rand.Rand
}

// ResamplerPort produces bootstrap resamples of an observation table
type ResamplerPort interface {
	// Resample draws a with-replacement resample of the same size as the
	// input table, using the supplied stream.
	Resample(table *dataset.Table, rng *rand.Rand) (*dataset.Table, error)

	// Apparent returns the identity replicate: the original table unchanged.
	Apparent(table *dataset.Table) *dataset.Table
}
