package rng

import (
	"math/rand/v2"
)

// Seeded is a deterministic Source. It is not safe for concurrent use;
// give each goroutine its own instance.
type Seeded struct {
	r *rand.Rand
}

// NewSeeded returns a PCG-backed source. Equal seeds yield equal streams.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{r: rand.New(rand.NewPCG(seed, SplitMix64(seed)))}
}

// IntN returns a value in [0, n), or 0 when n <= 0.
func (s *Seeded) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// SplitMix64 scrambles x. Used to derive independent stream seeds from a
// base seed and a stream index.
func SplitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Derive returns the seed for stream i of base.
func Derive(base uint64, i int) uint64 {
	return SplitMix64(base ^ SplitMix64(uint64(i)+1))
}
