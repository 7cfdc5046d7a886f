// Package domain contains the records the slot server persists and reports.
//
// Outcome math lives in package game; this package only describes what is
// stored about a spin after it has been settled.
package domain

import (
	"encoding/json"
	"time"
)

// MachineKind separates the fixed legacy machine from configured ones
type MachineKind string

const (
	MachineLegacy    MachineKind = "legacy"
	MachineUniversal MachineKind = "universal"
)

// SpinRecord is one settled spin, kept for recall
type SpinRecord struct {
	ID         string          `json:"id" db:"id"`
	PlayerID   string          `json:"player_id" db:"player_id"`
	MachineID  string          `json:"machine_id" db:"machine_id"`
	Kind       MachineKind     `json:"kind" db:"kind"`
	Wager      int64           `json:"wager" db:"wager"`
	Win        int64           `json:"win" db:"win"`
	JackpotWin int64           `json:"jackpot_win" db:"jackpot_win"`
	FreeSpins  int             `json:"free_spins" db:"free_spins"`
	Outcome    json.RawMessage `json:"outcome" db:"outcome"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// TotalWin is the line win plus any jackpot award
func (r *SpinRecord) TotalWin() int64 {
	return r.Win + r.JackpotWin
}

// Net is the player's result for the spin
func (r *SpinRecord) Net() int64 {
	return r.TotalWin() - r.Wager
}

// HistoryFilter narrows a spin history query
type HistoryFilter struct {
	PlayerID  string
	MachineID string
	From      time.Time
	To        time.Time
	Limit     int
}

// MachineInfo is a catalogue entry for a playable machine
type MachineInfo struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Kind           MachineKind `json:"kind"`
	Reels          int         `json:"reels"`
	Rows           int         `json:"rows"`
	Megaway        bool        `json:"megaway"`
	TheoreticalRTP float64     `json:"theoretical_rtp"`
	MinBet         int64       `json:"min_bet"`
	MaxBet         int64       `json:"max_bet"`
}

// EventSeverity represents audit event severity
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

// AuditEvent represents a significant event such as a jackpot award,
// a large win or a rejected machine definition
type AuditEvent struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Severity    EventSeverity   `json:"severity" db:"severity"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	PlayerID    *string         `json:"player_id,omitempty" db:"player_id"`
	MachineID   *string         `json:"machine_id,omitempty" db:"machine_id"`
	Description string          `json:"description" db:"description"`
	Data        json.RawMessage `json:"data,omitempty" db:"data"`
	IPAddress   string          `json:"ip_address" db:"ip_address"`
	Component   string          `json:"component" db:"component"`
}
