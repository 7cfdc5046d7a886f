package game

import (
	"errors"
	"math"
	"testing"

	"github.com/alexbotov/slotsrv/internal/rng"
)

func sym(id int64, name string, t SymbolType, payouts Payouts) *Symbol {
	return &Symbol{ID: id, Name: name, Type: t, Payouts: payouts}
}

var (
	cherry  = sym(1, "Cherry", SymbolNormal, Payouts{3: 10, 4: 20, 5: 50})
	lemon   = sym(2, "Lemon", SymbolNormal, Payouts{3: 5, 4: 10, 5: 25})
	orange  = sym(3, "Orange", SymbolNormal, Payouts{3: 4})
	wild    = sym(4, "Wild", SymbolWild, nil)
	scatter = sym(5, "Scatter", SymbolScatter, nil)
)

func TestWeightedPool(t *testing.T) {
	a := sym(1, "A", SymbolNormal, nil)
	b := sym(2, "B", SymbolNormal, nil)

	t.Run("Distribution", func(t *testing.T) {
		pool, err := NewWeightedPool([]WeightedSymbol{{a, 1}, {b, 3}})
		if err != nil {
			t.Fatalf("Failed to build pool: %v", err)
		}
		src := rng.NewSeeded(1)
		const draws = 100000
		countA := 0
		for i := 0; i < draws; i++ {
			if pool.Draw(src) == a {
				countA++
			}
		}
		freq := float64(countA) / draws
		if math.Abs(freq-0.25) > 0.02 {
			t.Errorf("Expected A frequency 0.25 ± 0.02, got %f", freq)
		}
	})

	t.Run("BoundariesMapToCorrectSymbol", func(t *testing.T) {
		pool, _ := NewWeightedPool([]WeightedSymbol{{a, 1}, {b, 3}})
		want := []*Symbol{a, b, b, b}
		for r, w := range want {
			if got := pool.Draw(fixed(r)); got != w {
				t.Errorf("Draw(%d): expected %s, got %s", r, w.Name, got.Name)
			}
		}
	})

	t.Run("ZeroWeightsSkipped", func(t *testing.T) {
		pool, err := NewWeightedPool([]WeightedSymbol{{a, 0}, {b, 2}})
		if err != nil {
			t.Fatalf("Failed to build pool: %v", err)
		}
		if pool.Total() != 2 || len(pool.Entries()) != 1 {
			t.Errorf("Expected only B in pool, got total %d entries %d", pool.Total(), len(pool.Entries()))
		}
	})

	t.Run("EmptyIsConfigurationError", func(t *testing.T) {
		_, err := NewWeightedPool(nil)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("Expected configuration error, got %v", err)
		}
		_, err = NewWeightedPool([]WeightedSymbol{{a, 0}})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("Expected configuration error for all-zero weights, got %v", err)
		}
	})

	t.Run("NegativeWeightRejected", func(t *testing.T) {
		_, err := NewWeightedPool([]WeightedSymbol{{a, -1}, {b, 2}})
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("Expected *ConfigurationError, got %v", err)
		}
	})
}

// fixed always returns v (clamped into range).
type fixed int

func (f fixed) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return int(f) % n
}

func TestLineEvaluator(t *testing.T) {
	standard := LineEvaluator{WildEnabled: true}
	noWilds := LineEvaluator{}
	megaway := LineEvaluator{WildEnabled: true, Megaway: true}

	testCases := []struct {
		name     string
		ev       LineEvaluator
		line     []*Symbol
		wantRun  int
		wantMult int64
		wantWin  bool
	}{
		{"ThreeCherries", standard, []*Symbol{cherry, cherry, cherry, lemon, orange}, 3, 10, true},
		{"FiveCherries", standard, []*Symbol{cherry, cherry, cherry, cherry, cherry}, 5, 50, true},
		{"TwoIsNoWin", standard, []*Symbol{cherry, cherry, lemon, lemon, lemon}, 2, 0, false},
		{"TooShort", standard, []*Symbol{cherry, cherry}, 2, 0, false},
		{"WildInRunDoubles", standard, []*Symbol{cherry, wild, cherry, lemon, orange}, 3, 20, true},
		{"LeadingWildAbsorbsAll", standard, []*Symbol{wild, cherry, cherry, orange, lemon}, 5, 50, true},
		{"LeadingWildAloneDoesNotDouble", standard, []*Symbol{wild, lemon, lemon, orange}, 4, 10, true},
		{"LeadingWildWithLaterWildDoubles", standard, []*Symbol{wild, cherry, wild, orange, lemon}, 5, 100, true},
		{"LeadingWildBaseHasNoEntry", standard, []*Symbol{wild, orange, cherry, lemon}, 4, 0, false},
		{"AllWildsNoBase", standard, []*Symbol{wild, wild, wild}, 3, 0, false},
		{"MegawayNeverDoubles", megaway, []*Symbol{cherry, wild, cherry, lemon}, 3, 10, true},
		{"MegawayLeadingWild", megaway, []*Symbol{wild, lemon, cherry}, 3, 5, true},
		{"WildsDisabledBreakRun", noWilds, []*Symbol{cherry, wild, cherry}, 1, 0, false},
		{"WildsDisabledWildRunUsesLaterBase", noWilds, []*Symbol{wild, wild, wild, lemon}, 3, 5, true},
		{"NoInterpolation", standard, []*Symbol{orange, orange, orange, orange}, 4, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run, _ := tc.ev.Run(tc.line)
			if run != tc.wantRun {
				t.Errorf("Expected run %d, got %d", tc.wantRun, run)
			}
			mult, ok := tc.ev.Evaluate(tc.line)
			if ok != tc.wantWin {
				t.Fatalf("Expected win=%v, got %v", tc.wantWin, ok)
			}
			if mult != tc.wantMult {
				t.Errorf("Expected multiplier %d, got %d", tc.wantMult, mult)
			}
		})
	}
}

func TestFreeSpins(t *testing.T) {
	testCases := []struct {
		scatters int
		want     int
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 10}, {4, 15}, {5, 20}, {6, 25}, {7, 25}, {40, 25},
	}
	for _, tc := range testCases {
		if got := FreeSpins(tc.scatters); got != tc.want {
			t.Errorf("FreeSpins(%d): expected %d, got %d", tc.scatters, tc.want, got)
		}
	}
}

func TestTotalWin(t *testing.T) {
	lines := []WinningLine{{Multiplier: 10}, {Multiplier: 4}}
	if total := TotalWin(lines, 3); total != 42 {
		t.Errorf("Expected total 42, got %d", total)
	}
	if lines[0].Win != 30 || lines[1].Win != 12 {
		t.Errorf("Expected line wins 30 and 12, got %d and %d", lines[0].Win, lines[1].Win)
	}
	if TotalWin(nil, 5) != 0 {
		t.Error("Expected zero total for no lines")
	}
}

func TestCountScatters(t *testing.T) {
	grid := Grid{
		{scatter, cherry},
		{lemon, scatter, scatter},
		{orange},
	}
	if n := CountScatters(grid); n != 3 {
		t.Errorf("Expected 3 scatters, got %d", n)
	}
}
