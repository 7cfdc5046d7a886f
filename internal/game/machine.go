package game

import (
	"fmt"

	"github.com/alexbotov/slotsrv/internal/rng"
)

// Config is the machine-level configuration of a universal slot.
type Config struct {
	ID               int64   `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	Reels            int     `json:"reels" yaml:"reels"`
	Rows             int     `json:"rows" yaml:"rows"`
	IsMegaway        bool    `json:"is_megaway" yaml:"is_megaway"`
	MinMegawayRows   int     `json:"min_megaway_rows" yaml:"min_megaway_rows"`
	MaxMegawayRows   int     `json:"max_megaway_rows" yaml:"max_megaway_rows"`
	DefaultBet       int64   `json:"default_bet" yaml:"default_bet"`
	MinBet           int64   `json:"min_bet" yaml:"min_bet"`
	MaxBet           int64   `json:"max_bet" yaml:"max_bet"`
	WildEnabled      bool    `json:"wild_enabled" yaml:"wild_enabled"`
	FreeSpinsEnabled bool    `json:"free_spins_enabled" yaml:"free_spins_enabled"`
	RTPPercentage    float64 `json:"rtp_percentage" yaml:"rtp_percentage"`
}

// Cell addresses one grid position.
type Cell struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

// Payline is an active fixed line, one cell per reel.
type Payline struct {
	Number int    `json:"number"`
	Cells  []Cell `json:"cells"`
}

// Machine is a built universal slot. It is read-only and safe to share.
type Machine struct {
	cfg      Config
	symbols  []*Symbol
	reels    []ReelStrip
	paylines []Payline
	eval     LineEvaluator
}

// SpinResult is the outcome of one universal spin.
type SpinResult struct {
	Grid         Grid          `json:"grid"`
	WinningLines []WinningLine `json:"winning_lines"`
	TotalWin     int64         `json:"total_win"`
	FreeSpins    int           `json:"free_spins"`
	Scatters     int           `json:"scatters"`
	BetPerLine   int64         `json:"bet_per_line"`
	MegawayRows  []int         `json:"megaway_rows,omitempty"`
	// PathsScanned counts megaway paths actually evaluated.
	PathsScanned int `json:"-"`
}

// Config returns the machine configuration.
func (m *Machine) Config() Config { return m.cfg }

// Symbols returns the machine's symbols ordered by id.
func (m *Machine) Symbols() []*Symbol { return m.symbols }

// Reels returns the reel strips.
func (m *Machine) Reels() []ReelStrip { return m.reels }

// Paylines returns the active paylines. Empty in megaway mode.
func (m *Machine) Paylines() []Payline { return m.paylines }

// Lines returns the number of lines a bet per line is staked on. Megaway
// spins stake a single bet.
func (m *Machine) Lines() int {
	if m.cfg.IsMegaway {
		return 1
	}
	return len(m.paylines)
}

// ValidateBet checks a bet per line against the configured bounds.
func (m *Machine) ValidateBet(betPerLine int64) error {
	if betPerLine <= 0 {
		return fmt.Errorf("%w: bet per line must be positive", ErrInvalidBet)
	}
	if betPerLine < m.cfg.MinBet || betPerLine > m.cfg.MaxBet {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidBet, betPerLine, m.cfg.MinBet, m.cfg.MaxBet)
	}
	return nil
}

// Spin draws a grid and evaluates it.
func (m *Machine) Spin(src rng.Source, betPerLine int64) (*SpinResult, error) {
	if err := m.ValidateBet(betPerLine); err != nil {
		return nil, err
	}
	grid, megaway := m.generateGrid(src)
	res := m.Evaluate(grid, betPerLine)
	res.MegawayRows = megaway
	return res, nil
}

// Evaluate scores a given grid. The grid must match the machine's shape.
func (m *Machine) Evaluate(grid Grid, betPerLine int64) *SpinResult {
	res := &SpinResult{
		Grid:         grid,
		WinningLines: []WinningLine{},
		BetPerLine:   betPerLine,
	}
	if m.cfg.IsMegaway {
		res.MegawayRows = grid.Rows()
		wins, scanned := NewPathEnumerator(grid).Wins(m.eval, betPerLine)
		if wins != nil {
			res.WinningLines = wins
		}
		res.PathsScanned = scanned
	} else {
		res.WinningLines = m.evaluatePaylines(grid, betPerLine)
	}
	res.TotalWin = TotalWin(res.WinningLines, betPerLine)
	if m.cfg.FreeSpinsEnabled {
		res.Scatters = CountScatters(grid)
		res.FreeSpins = FreeSpins(res.Scatters)
	}
	return res
}

func (m *Machine) evaluatePaylines(grid Grid, betPerLine int64) []WinningLine {
	wins := []WinningLine{}
	line := make([]*Symbol, 0, len(grid))
	for _, pl := range m.paylines {
		line = line[:0]
		for _, c := range pl.Cells {
			s := grid.At(c.Reel, c.Row)
			if s == nil {
				break
			}
			line = append(line, s)
		}
		if len(line) != len(pl.Cells) {
			continue
		}
		mult, ok := m.eval.Evaluate(line)
		if !ok {
			continue
		}
		run, _ := m.eval.Run(line)
		wins = append(wins, WinningLine{
			Line:       pl.Number,
			Symbols:    symbolNames(line),
			RunLength:  run,
			Multiplier: mult,
			Win:        mult * betPerLine,
		})
	}
	return wins
}
