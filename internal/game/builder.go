package game

import (
	"errors"
	"fmt"
	"sort"
)

// MaxPaths bounds the work of one spin: the number of megaway paths at the
// largest row count, or the number of grid cells in standard mode.
const MaxPaths = 1 << 20

// SymbolRecord is a stored symbol row.
type SymbolRecord struct {
	ID         int64         `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	SymbolType string        `json:"symbol_type" yaml:"symbol_type"`
	Value      int64         `json:"value" yaml:"value"`
	ImageURL   string        `json:"image_url,omitempty" yaml:"image_url"`
	Payouts    map[int]int64 `json:"payouts" yaml:"payouts"`
}

// ReelSymbolRecord places a symbol on a reel with a draw weight.
type ReelSymbolRecord struct {
	ReelNumber int   `json:"reel_number" yaml:"reel_number"`
	Position   int   `json:"position" yaml:"position"`
	SymbolID   int64 `json:"symbol_id" yaml:"symbol_id"`
	Weight     int   `json:"weight" yaml:"weight"`
}

// PaylineRecord is a stored payline. Pattern cells are [reel, row] pairs.
// A nil IsActive counts as active.
type PaylineRecord struct {
	LineNumber int     `json:"line_number" yaml:"line_number"`
	Pattern    [][]int `json:"pattern" yaml:"pattern"`
	IsActive   *bool   `json:"is_active,omitempty" yaml:"is_active"`
}

// Active reports whether the payline takes part in evaluation.
func (p PaylineRecord) Active() bool { return p.IsActive == nil || *p.IsActive }

// Definition is everything needed to build a Machine.
type Definition struct {
	Config   Config             `json:"config" yaml:"config"`
	Symbols  []SymbolRecord     `json:"symbols" yaml:"symbols"`
	Reels    []ReelSymbolRecord `json:"reels" yaml:"reels"`
	Paylines []PaylineRecord    `json:"paylines" yaml:"paylines"`
}

// Build validates def and assembles a Machine. Every rejection is a
// *ConfigurationError.
func Build(def *Definition) (*Machine, error) {
	if def == nil {
		return nil, configErrorf("nil definition")
	}
	cfg := def.Config
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	symbols, byID, err := buildSymbols(def.Symbols)
	if err != nil {
		return nil, err
	}
	reels, err := buildReels(cfg, def.Reels, byID)
	if err != nil {
		return nil, err
	}
	paylines, err := buildPaylines(cfg, def.Paylines)
	if err != nil {
		return nil, err
	}

	return &Machine{
		cfg:      cfg,
		symbols:  symbols,
		reels:    reels,
		paylines: paylines,
		eval:     LineEvaluator{WildEnabled: cfg.WildEnabled, Megaway: cfg.IsMegaway},
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Reels <= 0 {
		return configErrorf("reels must be positive, got %d", cfg.Reels)
	}
	if !cfg.IsMegaway && cfg.Rows <= 0 {
		return configErrorf("rows must be positive, got %d", cfg.Rows)
	}
	if cfg.IsMegaway {
		if cfg.MinMegawayRows < 1 || cfg.MinMegawayRows > cfg.MaxMegawayRows {
			return configErrorf("megaway rows [%d, %d] are not a valid range", cfg.MinMegawayRows, cfg.MaxMegawayRows)
		}
		paths := 1
		for i := 0; i < cfg.Reels && paths <= MaxPaths; i++ {
			paths = mulSat(paths, cfg.MaxMegawayRows)
		}
		if paths > MaxPaths {
			return configErrorf("%d reels of up to %d rows exceed %d megaway paths", cfg.Reels, cfg.MaxMegawayRows, MaxPaths)
		}
	} else if cells := mulSat(cfg.Reels, cfg.Rows); cells > MaxPaths {
		return configErrorf("%dx%d grid exceeds %d cells", cfg.Reels, cfg.Rows, MaxPaths)
	}
	if cfg.MinBet <= 0 || cfg.MaxBet <= 0 {
		return configErrorf("bet bounds must be positive, got [%d, %d]", cfg.MinBet, cfg.MaxBet)
	}
	if cfg.MinBet > cfg.MaxBet {
		return configErrorf("min bet %d exceeds max bet %d", cfg.MinBet, cfg.MaxBet)
	}
	if cfg.DefaultBet != 0 && (cfg.DefaultBet < cfg.MinBet || cfg.DefaultBet > cfg.MaxBet) {
		return configErrorf("default bet %d outside [%d, %d]", cfg.DefaultBet, cfg.MinBet, cfg.MaxBet)
	}
	return nil
}

func buildSymbols(records []SymbolRecord) ([]*Symbol, map[int64]*Symbol, error) {
	byID := make(map[int64]*Symbol, len(records))
	symbols := make([]*Symbol, 0, len(records))
	for _, r := range records {
		if _, dup := byID[r.ID]; dup {
			return nil, nil, configErrorf("duplicate symbol id %d", r.ID)
		}
		payouts := make(Payouts, len(r.Payouts))
		for n, mult := range r.Payouts {
			if mult > 0 {
				payouts[n] = mult
			}
		}
		s := &Symbol{
			ID:       r.ID,
			Name:     r.Name,
			Type:     ParseSymbolType(r.SymbolType),
			Value:    r.Value,
			ImageURL: r.ImageURL,
			Payouts:  payouts,
		}
		byID[r.ID] = s
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].ID < symbols[j].ID })
	return symbols, byID, nil
}

func buildReels(cfg Config, records []ReelSymbolRecord, byID map[int64]*Symbol) ([]ReelStrip, error) {
	sorted := append([]ReelSymbolRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ReelNumber != sorted[j].ReelNumber {
			return sorted[i].ReelNumber < sorted[j].ReelNumber
		}
		return sorted[i].Position < sorted[j].Position
	})

	entries := make([][]WeightedSymbol, cfg.Reels)
	for _, r := range sorted {
		if r.ReelNumber < 0 || r.ReelNumber >= cfg.Reels {
			return nil, configErrorf("reel number %d outside [0, %d)", r.ReelNumber, cfg.Reels)
		}
		s, ok := byID[r.SymbolID]
		if !ok {
			return nil, configErrorf("reel %d position %d references unknown symbol %d", r.ReelNumber, r.Position, r.SymbolID)
		}
		entries[r.ReelNumber] = append(entries[r.ReelNumber], WeightedSymbol{Symbol: s, Weight: r.Weight})
	}

	reels := make([]ReelStrip, cfg.Reels)
	for i, e := range entries {
		pool, err := NewWeightedPool(e)
		if err != nil {
			var cerr *ConfigurationError
			if errors.As(err, &cerr) {
				return nil, cerr.in("reel %d", i)
			}
			return nil, WrapConfig(err, fmt.Sprintf("reel %d", i))
		}
		reels[i] = ReelStrip{Number: i, Pool: pool}
	}
	return reels, nil
}

func buildPaylines(cfg Config, records []PaylineRecord) ([]Payline, error) {
	var paylines []Payline
	for _, r := range records {
		if !r.Active() {
			continue
		}
		cells := make([]Cell, len(r.Pattern))
		for i, raw := range r.Pattern {
			if len(raw) != 2 {
				return nil, configErrorf("payline %d cell %d has %d coordinates, want 2", r.LineNumber, i, len(raw))
			}
			cells[i] = Cell{Reel: raw[0], Row: raw[1]}
		}
		if cfg.IsMegaway {
			continue
		}
		if len(cells) != cfg.Reels {
			return nil, configErrorf("payline %d has %d cells for %d reels", r.LineNumber, len(cells), cfg.Reels)
		}
		for i, c := range cells {
			if c.Reel != i {
				return nil, configErrorf("payline %d cell %d addresses reel %d", r.LineNumber, i, c.Reel)
			}
			if c.Row < 0 || c.Row >= cfg.Rows {
				return nil, configErrorf("payline %d cell %d row %d outside [0, %d)", r.LineNumber, i, c.Row, cfg.Rows)
			}
		}
		paylines = append(paylines, Payline{Number: r.LineNumber, Cells: cells})
	}
	sort.SliceStable(paylines, func(i, j int) bool { return paylines[i].Number < paylines[j].Number })
	return paylines, nil
}
