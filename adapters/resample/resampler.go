// Package resample provides seeded bootstrap resampling. Randomness is never
// ambient: every replicate draws from its own stream derived from the base
// seed, so a run reproduces bit-for-bit under the same seed no matter how
// replicates are scheduled across workers.
package resample

import (
	"math/rand"

	"causalboot/domain/dataset"
)

// splitmix64-style increment used to decorrelate per-replicate seeds.
const seedMix = 0x9E3779B97F4A7C15

// StreamFactory derives independent deterministic RNG streams from one base seed
type StreamFactory struct {
	baseSeed int64
}

// NewStreamFactory creates a factory for the given base seed
func NewStreamFactory(baseSeed int64) *StreamFactory {
	return &StreamFactory{baseSeed: baseSeed}
}

// Stream returns the deterministic stream for one replicate. Replicate 0 is
// reserved for the apparent sample and never draws, but gets a stream anyway
// so callers need no special case.
func (f *StreamFactory) Stream(replicate int) *rand.Rand {
	seed := f.baseSeed ^ int64(uint64(replicate+1)*seedMix)
	return rand.New(rand.NewSource(seed))
}

// Resampler draws with-replacement resamples of observation tables
type Resampler struct{}

// NewResampler creates a resampler
func NewResampler() *Resampler {
	return &Resampler{}
}

// Resample draws a same-size with-replacement resample using the stream.
func (r *Resampler) Resample(table *dataset.Table, rng *rand.Rand) (*dataset.Table, error) {
	n := table.NumRows()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = rng.Intn(n)
	}
	return table.Select(rows)
}

// Apparent returns the identity replicate: the original table itself.
// Tables are immutable, so sharing the value is safe.
func (r *Resampler) Apparent(table *dataset.Table) *dataset.Table {
	return table
}
