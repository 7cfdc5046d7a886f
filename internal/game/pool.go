package game

import (
	"sort"

	"github.com/alexbotov/slotsrv/internal/rng"
)

// WeightedSymbol pairs a symbol with its draw weight on one reel.
type WeightedSymbol struct {
	Symbol *Symbol
	Weight int
}

// WeightedPool draws symbols with probability weight/total using a
// cumulative table and binary search.
type WeightedPool struct {
	symbols    []*Symbol
	cumulative []int
	total      int
}

// NewWeightedPool builds a pool from entries in order. Zero weights are
// skipped; a negative weight or an empty total is a ConfigurationError.
func NewWeightedPool(entries []WeightedSymbol) (*WeightedPool, error) {
	p := &WeightedPool{
		symbols:    make([]*Symbol, 0, len(entries)),
		cumulative: make([]int, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Symbol == nil {
			return nil, configErrorf("nil symbol in weighted pool")
		}
		if e.Weight < 0 {
			return nil, configErrorf("symbol %q has negative weight %d", e.Symbol.Name, e.Weight)
		}
		if e.Weight == 0 {
			continue
		}
		p.total += e.Weight
		p.symbols = append(p.symbols, e.Symbol)
		p.cumulative = append(p.cumulative, p.total)
	}
	if p.total <= 0 {
		return nil, configErrorf("weighted pool has zero total weight")
	}
	return p, nil
}

// Draw returns one symbol.
func (p *WeightedPool) Draw(src rng.Source) *Symbol {
	r := src.IntN(p.total)
	// first cumulative bound strictly above r
	i := sort.Search(len(p.cumulative), func(i int) bool { return p.cumulative[i] > r })
	return p.symbols[i]
}

// Total returns the sum of weights.
func (p *WeightedPool) Total() int { return p.total }

// Entries returns the non-zero entries in draw order.
func (p *WeightedPool) Entries() []WeightedSymbol {
	out := make([]WeightedSymbol, len(p.symbols))
	prev := 0
	for i, s := range p.symbols {
		out[i] = WeightedSymbol{Symbol: s, Weight: p.cumulative[i] - prev}
		prev = p.cumulative[i]
	}
	return out
}

// Probability returns the chance of drawing a symbol with the given name.
func (p *WeightedPool) Probability(name string) float64 {
	var w int
	for _, e := range p.Entries() {
		if e.Symbol.Name == name {
			w += e.Weight
		}
	}
	return float64(w) / float64(p.total)
}
