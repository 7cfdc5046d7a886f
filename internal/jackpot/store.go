package jackpot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSnapshot = errors.New("no jackpot snapshot stored")

// Store persists pool snapshots. Save must ignore snapshots older than the
// stored version.
type Store interface {
	Load(ctx context.Context, id string) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// MemoryStore keeps snapshots in process. Used when no backing store is
// configured and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Snapshot
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.data[s.ID]; ok && cur.Version >= s.Version {
		return nil
	}
	m.data[s.ID] = s
	return nil
}

// PGStore keeps snapshots in the jackpots table.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (p *PGStore) Load(ctx context.Context, id string) (Snapshot, error) {
	var s Snapshot
	var lastWon sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, current_amount, floor_amount, contribution_rate, last_won, version
		FROM jackpots WHERE id = $1
	`, id).Scan(&s.ID, &s.CurrentAmount, &s.FloorAmount, &s.ContributionRate, &lastWon, &s.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("failed to load jackpot: %w", err)
	}
	if lastWon.Valid {
		t := lastWon.Time.UTC()
		s.LastWon = &t
	}
	return s, nil
}

func (p *PGStore) Save(ctx context.Context, s Snapshot) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO jackpots (id, current_amount, floor_amount, contribution_rate, last_won, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			current_amount = EXCLUDED.current_amount,
			floor_amount = EXCLUDED.floor_amount,
			contribution_rate = EXCLUDED.contribution_rate,
			last_won = EXCLUDED.last_won,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE jackpots.version < EXCLUDED.version
	`, s.ID, s.CurrentAmount, s.FloorAmount, s.ContributionRate, s.LastWon, s.Version, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save jackpot: %w", err)
	}
	return nil
}

// saveIfNewer writes ARGV[2] under KEYS[1] unless the stored version is
// at least ARGV[1].
var saveIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'snapshot', ARGV[2])
return 1
`)

// RedisStore keeps snapshots in a Redis hash per pool.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are prefix + pool id.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "slotsrv:jackpot:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Load(ctx context.Context, id string) (Snapshot, error) {
	raw, err := r.rdb.HGet(ctx, r.prefix+id, "snapshot").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("failed to load jackpot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode jackpot: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := saveIfNewer.Run(ctx, r.rdb, []string{r.prefix + s.ID}, s.Version, string(raw)).Err(); err != nil {
		return fmt.Errorf("failed to save jackpot: %w", err)
	}
	return nil
}
