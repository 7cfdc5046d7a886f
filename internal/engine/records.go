package engine

import (
	"context"
	"database/sql"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexbotov/slotsrv/internal/domain"
)

// Recorder stores settled spins for recall.
type Recorder interface {
	Record(ctx context.Context, r *domain.SpinRecord) error
	History(ctx context.Context, f domain.HistoryFilter) ([]*domain.SpinRecord, error)
}

const defaultHistoryLimit = 10

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGRecorder writes spins to the spin_records table.
type PGRecorder struct {
	db *sql.DB
}

func NewPGRecorder(db *sql.DB) *PGRecorder {
	return &PGRecorder{db: db}
}

func (p *PGRecorder) Record(ctx context.Context, r *domain.SpinRecord) error {
	var outcome any
	if len(r.Outcome) > 0 {
		outcome = string(r.Outcome)
	}
	query, args, err := psql.Insert("spin_records").
		Columns("id", "player_id", "machine_id", "kind", "wager", "win", "jackpot_win", "free_spins", "outcome", "created_at").
		Values(r.ID, r.PlayerID, r.MachineID, r.Kind, r.Wager, r.Win, r.JackpotWin, r.FreeSpins, outcome, r.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *PGRecorder) History(ctx context.Context, f domain.HistoryFilter) ([]*domain.SpinRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	q := psql.Select("id", "player_id", "machine_id", "kind", "wager", "win", "jackpot_win", "free_spins",
		"COALESCE(outcome::text, '')", "created_at").
		From("spin_records").
		Where(sq.Eq{"player_id": f.PlayerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if f.MachineID != "" {
		q = q.Where(sq.Eq{"machine_id": f.MachineID})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": f.To})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SpinRecord
	for rows.Next() {
		var r domain.SpinRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.MachineID, &r.Kind, &r.Wager, &r.Win, &r.JackpotWin,
			&r.FreeSpins, &outcome, &r.CreatedAt); err != nil {
			return nil, err
		}
		if outcome != "" {
			r.Outcome = []byte(outcome)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MemoryRecorder keeps the most recent spins per player in process.
type MemoryRecorder struct {
	mu       sync.Mutex
	perUser  int
	byPlayer map[string][]*domain.SpinRecord
}

// NewMemoryRecorder keeps up to perPlayer spins for each player.
func NewMemoryRecorder(perPlayer int) *MemoryRecorder {
	if perPlayer <= 0 {
		perPlayer = 100
	}
	return &MemoryRecorder{perUser: perPlayer, byPlayer: make(map[string][]*domain.SpinRecord)}
}

func (m *MemoryRecorder) Record(_ context.Context, r *domain.SpinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := append(m.byPlayer[r.PlayerID], r)
	if len(recs) > m.perUser {
		recs = recs[len(recs)-m.perUser:]
	}
	m.byPlayer[r.PlayerID] = recs
	return nil
}

// History returns matching spins, newest first.
func (m *MemoryRecorder) History(_ context.Context, f domain.HistoryFilter) ([]*domain.SpinRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.byPlayer[f.PlayerID]
	var out []*domain.SpinRecord
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		r := recs[i]
		if f.MachineID != "" && r.MachineID != f.MachineID {
			continue
		}
		if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
