package jackpot

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexbotov/slotsrv/internal/game"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var testClock = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestJackpot(t *testing.T, floor int64, rate string) *Jackpot {
	t.Helper()
	j, err := New(floor, decimal.RequireFromString(rate), WithClock(func() time.Time { return testClock }))
	if err != nil {
		t.Fatalf("Failed to create jackpot: %v", err)
	}
	return j
}

func TestJackpot(t *testing.T) {
	t.Run("ContributeAndAward", func(t *testing.T) {
		j := newTestJackpot(t, 10000, "0.02")

		if c := j.Contribute(1000); c != 20 {
			t.Errorf("Expected contribution 20, got %d", c)
		}
		if info := j.Info(); info.CurrentAmount != 10020 || info.LastWon != nil {
			t.Errorf("Expected 10020 and no win, got %+v", info)
		}

		amount, ok := j.MaybeAward(true)
		if !ok || amount != 10020 {
			t.Errorf("Expected award 10020, got %d (%v)", amount, ok)
		}
		info := j.Info()
		if info.CurrentAmount != 10000 {
			t.Errorf("Expected reset to 10000, got %d", info.CurrentAmount)
		}
		if info.LastWon == nil || !info.LastWon.Equal(testClock) {
			t.Errorf("Expected last won %v, got %v", testClock, info.LastWon)
		}

		if amount, ok := j.MaybeAward(false); ok || amount != 0 {
			t.Errorf("Expected no award, got %d (%v)", amount, ok)
		}
	})

	t.Run("ContributionIsFloored", func(t *testing.T) {
		j := newTestJackpot(t, 1000, "0.02")
		if c := j.Contribute(49); c != 0 {
			t.Errorf("Expected floor(0.98) = 0, got %d", c)
		}
		if c := j.Contribute(100); c != 2 {
			t.Errorf("Expected 2, got %d", c)
		}
		if c := j.Contribute(-100); c != 0 {
			t.Errorf("Expected negative wager to add nothing, got %d", c)
		}
		if amount, _ := j.MaybeAward(true); amount != 1002 {
			t.Errorf("Expected award 1002, got %d", amount)
		}
	})

	t.Run("RejectsBadParameters", func(t *testing.T) {
		for _, rate := range []string{"0", "1", "1.5", "-0.1"} {
			if _, err := New(100, decimal.RequireFromString(rate)); !errors.Is(err, game.ErrConfiguration) {
				t.Errorf("Rate %s: expected configuration error, got %v", rate, err)
			}
		}
		if _, err := New(-1, decimal.RequireFromString("0.01")); !errors.Is(err, game.ErrConfiguration) {
			t.Errorf("Expected configuration error for negative floor, got %v", err)
		}
	})

	t.Run("SettleIsAtomic", func(t *testing.T) {
		j := newTestJackpot(t, 10000, "0.5")
		const players = 64

		var wg sync.WaitGroup
		awards := make([]int64, players)
		for i := 0; i < players; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s := j.Settle(100, true)
				awards[i] = s.Award
			}(i)
		}
		wg.Wait()

		for i, a := range awards {
			if a != 10050 {
				t.Fatalf("Player %d: expected award 10050, got %d", i, a)
			}
		}
		if j.Info().CurrentAmount != 10000 {
			t.Errorf("Expected pool at floor, got %d", j.Info().CurrentAmount)
		}
	})

	t.Run("NeverBelowFloor", func(t *testing.T) {
		j := newTestJackpot(t, 500, "0.1")
		for i := 0; i < 100; i++ {
			j.Settle(int64(i*7), i%9 == 0)
			if j.Info().CurrentAmount < 500 {
				t.Fatalf("Pool fell below floor at step %d", i)
			}
		}
	})

	t.Run("SnapshotVersions", func(t *testing.T) {
		j := newTestJackpot(t, 100, "0.1")
		v0 := j.Snapshot().Version
		s := j.Settle(100, false)
		if s.Snapshot.Version <= v0 || s.Snapshot.CurrentAmount != 110 {
			t.Errorf("Expected a newer snapshot at 110, got %+v", s.Snapshot)
		}
		if s.Snapshot.ContributionRate != "0.1" {
			t.Errorf("Expected rate 0.1, got %s", s.Snapshot.ContributionRate)
		}
	})

	t.Run("Restore", func(t *testing.T) {
		j := newTestJackpot(t, 1000, "0.02")
		won := testClock.Add(-time.Hour)
		j.Restore(Snapshot{CurrentAmount: 5000, LastWon: &won, Version: 7})
		info := j.Info()
		if info.CurrentAmount != 5000 || info.LastWon == nil || !info.LastWon.Equal(won) {
			t.Errorf("Unexpected restored state %+v", info)
		}
		if j.Snapshot().Version != 7 {
			t.Errorf("Expected version 7, got %d", j.Snapshot().Version)
		}

		j.Restore(Snapshot{CurrentAmount: 10})
		if j.Info().CurrentAmount != 1000 {
			t.Errorf("Expected clamp to floor, got %d", j.Info().CurrentAmount)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Load(ctx, "main"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}

	s.Save(ctx, Snapshot{ID: "main", CurrentAmount: 200, Version: 2})
	s.Save(ctx, Snapshot{ID: "main", CurrentAmount: 150, Version: 1})

	got, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.CurrentAmount != 200 {
		t.Errorf("Expected stale write to be ignored, got %d", got.CurrentAmount)
	}
}

func storeRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	id := "test-" + time.Now().Format("150405.000000")
	won := testClock
	if err := s.Save(ctx, Snapshot{ID: id, CurrentAmount: 300, FloorAmount: 100, ContributionRate: "0.02", LastWon: &won, Version: 3}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, Snapshot{ID: id, CurrentAmount: 250, FloorAmount: 100, ContributionRate: "0.02", Version: 2}); err != nil {
		t.Fatalf("Stale save failed: %v", err)
	}
	got, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.CurrentAmount != 300 || got.Version != 3 || got.LastWon == nil || !got.LastWon.Equal(won) {
		t.Errorf("Unexpected snapshot %+v", got)
	}
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("SLOTSRV_TEST_DSN")
	if dsn == "" {
		t.Skip("SLOTSRV_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS jackpots (
		id VARCHAR(64) PRIMARY KEY, current_amount BIGINT NOT NULL, floor_amount BIGINT NOT NULL,
		contribution_rate VARCHAR(32) NOT NULL, last_won TIMESTAMPTZ, version BIGINT NOT NULL, updated_at TIMESTAMPTZ NOT NULL)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	storeRoundTrip(t, NewPGStore(db))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SLOTSRV_TEST_REDIS")
	if addr == "" {
		t.Skip("SLOTSRV_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	storeRoundTrip(t, NewRedisStore(rdb, "slotsrv:test:"))
}
