package game

import (
	"fmt"

	"github.com/alexbotov/slotsrv/internal/rng"
)

// Legacy machine geometry.
const (
	LegacyReels = 3
	LegacyRows  = 3
)

// Legacy symbol names.
const (
	Cherry  = "Cherry"
	Lemon   = "Lemon"
	Orange  = "Orange"
	Plum    = "Plum"
	Bell    = "Bell"
	Bar     = "Bar"
	Seven   = "Seven"
	Diamond = "Diamond"
)

// WinType classifies a legacy line win.
type WinType string

const (
	WinThreeOfKind   WinType = "three_of_kind"
	WinThreeSevens   WinType = "three_sevens"
	WinThreeDiamonds WinType = "three_diamonds"
	WinMixedBars     WinType = "mixed_bars"
)

// LineType names a legacy evaluation line.
type LineType string

const (
	LineHorizontal   LineType = "horizontal"
	LineDiagonalDown LineType = "diagonal_down"
	LineDiagonalUp   LineType = "diagonal_up"
)

// LegacyPaytable holds the fixed legacy multipliers.
type LegacyPaytable struct {
	ThreeOfKind   int64 `json:"three_of_kind" yaml:"three_of_kind"`
	ThreeSevens   int64 `json:"three_sevens" yaml:"three_sevens"`
	ThreeDiamonds int64 `json:"three_diamonds" yaml:"three_diamonds"`
	MixedBars     int64 `json:"mixed_bars" yaml:"mixed_bars"`
}

// DefaultLegacyPaytable returns the standard legacy multipliers.
func DefaultLegacyPaytable() LegacyPaytable {
	return LegacyPaytable{
		ThreeOfKind:   6,
		ThreeSevens:   45,
		ThreeDiamonds: 90,
		MixedBars:     5,
	}
}

// classify maps a three-of-a-kind symbol name to its win type and multiplier.
func (p LegacyPaytable) classify(name string) (WinType, int64) {
	switch name {
	case Seven:
		return WinThreeSevens, p.ThreeSevens
	case Diamond:
		return WinThreeDiamonds, p.ThreeDiamonds
	case Bar:
		return WinMixedBars, p.MixedBars
	default:
		return WinThreeOfKind, p.ThreeOfKind
	}
}

var legacySymbolValues = []struct {
	name  string
	value int64
}{
	{Cherry, 2},
	{Lemon, 3},
	{Orange, 5},
	{Plum, 8},
	{Bell, 10},
	{Bar, 15},
	{Seven, 25},
	{Diamond, 50},
}

// legacyStrip is the physical reel; every stop is equally likely.
var legacyStrip = []string{
	Cherry, Lemon, Orange, Plum, Bell, Bar, Seven, Diamond,
	Lemon, Orange, Plum, Cherry, Bell, Lemon, Orange, Bar,
	Plum, Cherry, Bell, Lemon, Orange, Plum, Cherry, Bell,
	Bar, Seven, Diamond, Lemon,
}

// LegacyWinLine is a paying legacy line.
type LegacyWinLine struct {
	LineType   LineType `json:"line_type"`
	Row        int      `json:"row"`
	Symbols    []string `json:"symbols"`
	WinType    WinType  `json:"win_type"`
	Symbol     string   `json:"symbol"`
	Multiplier int64    `json:"multiplier"`
	Win        int64    `json:"win"`
}

// LegacyResult is the outcome of one legacy spin.
type LegacyResult struct {
	Grid         Grid            `json:"grid"`
	WinningLines []LegacyWinLine `json:"winning_lines"`
	TotalWin     int64           `json:"total_win"`
	Wager        int64           `json:"wager"`
}

// JackpotTriggered reports whether any line paid ThreeDiamonds.
func (r *LegacyResult) JackpotTriggered() bool {
	for _, l := range r.WinningLines {
		if l.WinType == WinThreeDiamonds {
			return true
		}
	}
	return false
}

// LegacyMachine is the fixed 3x3 machine. It holds no per-spin state.
type LegacyMachine struct {
	pool     *WeightedPool
	paytable LegacyPaytable
	symbols  map[string]*Symbol
}

// NewLegacyMachine builds the legacy machine with the given paytable.
func NewLegacyMachine(paytable LegacyPaytable) (*LegacyMachine, error) {
	if paytable.ThreeOfKind <= 0 || paytable.ThreeSevens <= 0 || paytable.ThreeDiamonds <= 0 || paytable.MixedBars <= 0 {
		return nil, configErrorf("legacy multipliers must be positive: %+v", paytable)
	}
	symbols := make(map[string]*Symbol, len(legacySymbolValues))
	for i, sv := range legacySymbolValues {
		symbols[sv.name] = &Symbol{ID: int64(i + 1), Name: sv.name, Type: SymbolNormal, Value: sv.value}
	}
	entries := make([]WeightedSymbol, len(legacyStrip))
	for i, name := range legacyStrip {
		entries[i] = WeightedSymbol{Symbol: symbols[name], Weight: 1}
	}
	pool, err := NewWeightedPool(entries)
	if err != nil {
		return nil, err
	}
	return &LegacyMachine{pool: pool, paytable: paytable, symbols: symbols}, nil
}

// Paytable returns the machine's multipliers.
func (m *LegacyMachine) Paytable() LegacyPaytable { return m.paytable }

// Symbol returns the legacy symbol with the given name, or nil.
func (m *LegacyMachine) Symbol(name string) *Symbol { return m.symbols[name] }

// Spin draws a 3x3 grid and evaluates it for wager.
func (m *LegacyMachine) Spin(src rng.Source, wager int64) (*LegacyResult, error) {
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", ErrInvalidBet)
	}
	return m.Evaluate(m.draw(src), wager), nil
}

func (m *LegacyMachine) draw(src rng.Source) Grid {
	grid := make(Grid, LegacyReels)
	for i := range grid {
		grid[i] = SpinReel(m.pool, LegacyRows, src)
	}
	return grid
}

// Evaluate checks the three rows and both diagonals for an exact
// three-of-a-kind.
func (m *LegacyMachine) Evaluate(grid Grid, wager int64) *LegacyResult {
	res := &LegacyResult{Grid: grid, WinningLines: []LegacyWinLine{}, Wager: wager}
	line := make([]*Symbol, 0, LegacyReels)

	check := func(lt LineType, row int, cells [][2]int) {
		line = line[:0]
		for _, c := range cells {
			s := grid.At(c[0], c[1])
			if s == nil {
				return
			}
			line = append(line, s)
		}
		if len(line) < 3 || line[0].Name != line[1].Name || line[1].Name != line[2].Name {
			return
		}
		wt, mult := m.paytable.classify(line[0].Name)
		res.WinningLines = append(res.WinningLines, LegacyWinLine{
			LineType:   lt,
			Row:        row,
			Symbols:    symbolNames(line),
			WinType:    wt,
			Symbol:     line[0].Name,
			Multiplier: mult,
			Win:        mult * wager,
		})
	}

	for row := 0; row < LegacyRows; row++ {
		check(LineHorizontal, row, [][2]int{{0, row}, {1, row}, {2, row}})
	}
	check(LineDiagonalDown, 0, [][2]int{{0, 0}, {1, 1}, {2, 2}})
	check(LineDiagonalUp, LegacyRows-1, [][2]int{{0, 2}, {1, 1}, {2, 0}})

	for _, l := range res.WinningLines {
		res.TotalWin += l.Win
	}
	return res
}

// legacyLines is the number of lines evaluated per spin.
const legacyLines = LegacyRows + 2

// TheoreticalRTP returns the exact expected return in percent.
func (m *LegacyMachine) TheoreticalRTP() float64 {
	var perLine float64
	for _, sv := range legacySymbolValues {
		p := m.pool.Probability(sv.name)
		_, mult := m.paytable.classify(sv.name)
		perLine += p * p * p * float64(mult)
	}
	return perLine * legacyLines * 100
}
