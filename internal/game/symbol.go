// Package game implements the slot outcome engine: weighted reel draws,
// payline and megaway evaluation, scatter free spins and payouts, plus the
// fixed 3x3 legacy machine and its RTP simulator.
package game

import (
	"fmt"
	"strings"
)

// SymbolType selects how the evaluator treats a symbol.
type SymbolType int

const (
	SymbolNormal SymbolType = iota
	SymbolWild
	SymbolScatter
	SymbolBonus
)

var symbolTypeNames = [...]string{
	SymbolNormal:  "normal",
	SymbolWild:    "wild",
	SymbolScatter: "scatter",
	SymbolBonus:   "bonus",
}

func (t SymbolType) String() string {
	if t < 0 || int(t) >= len(symbolTypeNames) {
		return fmt.Sprintf("SymbolType(%d)", int(t))
	}
	return symbolTypeNames[t]
}

// ParseSymbolType maps a stored type name to a SymbolType. Unknown names
// are treated as normal symbols.
func ParseSymbolType(s string) SymbolType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wild":
		return SymbolWild
	case "scatter":
		return SymbolScatter
	case "bonus":
		return SymbolBonus
	default:
		return SymbolNormal
	}
}

// MarshalText implements encoding.TextMarshaler
func (t SymbolType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *SymbolType) UnmarshalText(b []byte) error {
	*t = ParseSymbolType(string(b))
	return nil
}

// Payouts maps an exact run length to a multiplier.
type Payouts map[int]int64

// Symbol is immutable once a machine is built.
type Symbol struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Type     SymbolType `json:"symbol_type"`
	Value    int64      `json:"value"`
	ImageURL string     `json:"image_url,omitempty"`
	Payouts  Payouts    `json:"payouts,omitempty"`
}

// IsWild reports whether the symbol is a wild.
func (s *Symbol) IsWild() bool { return s.Type == SymbolWild }

// IsScatter reports whether the symbol is a scatter.
func (s *Symbol) IsScatter() bool { return s.Type == SymbolScatter }
