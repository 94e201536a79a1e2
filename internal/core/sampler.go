package core

import (
	"math/rand/v2"
)

// Sampler draws tracks from a WeightTable with probability proportional to weight.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler backed by rng. A nil rng uses the runtime's
// randomly seeded global source.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Sample picks one track. Zero-weight tracks are never picked. Repeats across
// calls are expected.
func (s *Sampler) Sample(table *WeightTable) (Track, error) {
	if table == nil || table.total <= 0 {
		return Track{}, ErrEmptyTable
	}

	target := s.intN(table.total)
	for _, e := range table.entries {
		if target < e.Weight {
			return e.Track, nil
		}
		target -= e.Weight
	}

	// unreachable while total matches the entries
	return Track{}, ErrEmptyTable
}

func (s *Sampler) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n) //nolint:gosec // Track selection doesn't require crypto-secure randomness
	}
	return s.rng.IntN(n)
}
