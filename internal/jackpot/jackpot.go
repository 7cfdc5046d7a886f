// Package jackpot implements the shared progressive jackpot pool.
package jackpot

import (
	"fmt"
	"sync"
	"time"

	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/shopspring/decimal"
)

// Info is the public view of the pool.
type Info struct {
	CurrentAmount int64      `json:"current_amount"`
	LastWon       *time.Time `json:"last_won,omitempty"`
}

// Snapshot is the persisted state of a pool. Version increases with every
// mutation so stores can discard stale writes.
type Snapshot struct {
	ID               string     `json:"id"`
	CurrentAmount    int64      `json:"current_amount"`
	FloorAmount      int64      `json:"floor_amount"`
	ContributionRate string     `json:"contribution_rate"`
	LastWon          *time.Time `json:"last_won,omitempty"`
	Version          int64      `json:"version"`
}

// Settlement is the result of one contribute-and-maybe-award step.
type Settlement struct {
	Contribution int64
	Award        int64
	Won          bool
	Snapshot     Snapshot
}

// Jackpot is a progressive pool. All methods are safe for concurrent use.
type Jackpot struct {
	mu      sync.Mutex
	id      string
	current int64
	floor   int64
	rate    decimal.Decimal
	lastWon *time.Time
	version int64
	now     func() time.Time
}

// Option configures a Jackpot.
type Option func(*Jackpot)

// WithClock overrides the time source used for last-won stamps.
func WithClock(now func() time.Time) Option {
	return func(j *Jackpot) {
		j.now = now
	}
}

// WithID names the pool for persistence.
func WithID(id string) Option {
	return func(j *Jackpot) {
		j.id = id
	}
}

// New creates a pool seeded at floor. rate must lie strictly between 0 and 1.
func New(floor int64, rate decimal.Decimal, opts ...Option) (*Jackpot, error) {
	if floor < 0 {
		return nil, &game.ConfigurationError{Reason: fmt.Sprintf("jackpot floor %d is negative", floor)}
	}
	if !rate.IsPositive() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, &game.ConfigurationError{Reason: fmt.Sprintf("jackpot contribution rate %s outside (0, 1)", rate)}
	}
	j := &Jackpot{
		id:      "main",
		current: floor,
		floor:   floor,
		rate:    rate,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// ID returns the pool id.
func (j *Jackpot) ID() string { return j.id }

// Floor returns the reset amount.
func (j *Jackpot) Floor() int64 { return j.floor }

// Rate returns the contribution rate.
func (j *Jackpot) Rate() decimal.Decimal { return j.rate }

// Contribute adds floor(wager × rate) to the pool and returns the amount
// added. Non-positive wagers add nothing.
func (j *Jackpot) Contribute(wager int64) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.contribute(wager)
}

func (j *Jackpot) contribute(wager int64) int64 {
	if wager <= 0 {
		return 0
	}
	c := decimal.NewFromInt(wager).Mul(j.rate).Floor().IntPart()
	if c > 0 {
		j.current += c
		j.version++
	}
	return c
}

// MaybeAward pays out the whole pool when trigger is set, resetting it to
// the floor and stamping the win time.
func (j *Jackpot) MaybeAward(trigger bool) (int64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.award(trigger)
}

func (j *Jackpot) award(trigger bool) (int64, bool) {
	if !trigger {
		return 0, false
	}
	amount := j.current
	j.current = j.floor
	t := j.now().UTC()
	j.lastWon = &t
	j.version++
	return amount, true
}

// Settle contributes wager and then awards if triggered, holding the lock
// across both steps so two spins can never win the same pool.
func (j *Jackpot) Settle(wager int64, trigger bool) Settlement {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Settlement{Contribution: j.contribute(wager)}
	s.Award, s.Won = j.award(trigger)
	s.Snapshot = j.snapshot()
	return s
}

// Info returns the current amount and last win time.
func (j *Jackpot) Info() Info {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Info{CurrentAmount: j.current, LastWon: copyTime(j.lastWon)}
}

// Snapshot returns the persistable state.
func (j *Jackpot) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot()
}

func (j *Jackpot) snapshot() Snapshot {
	return Snapshot{
		ID:               j.id,
		CurrentAmount:    j.current,
		FloorAmount:      j.floor,
		ContributionRate: j.rate.String(),
		LastWon:          copyTime(j.lastWon),
		Version:          j.version,
	}
}

// Restore loads persisted state. The amount is clamped to the floor and
// the configured floor and rate are kept.
func (j *Jackpot) Restore(s Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = max(s.CurrentAmount, j.floor)
	j.lastWon = copyTime(s.LastWon)
	j.version = s.Version
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
