// Package database provides database access for the slot server
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &DB{DB: db}, nil
}

// Migrate creates all required tables
func (db *DB) Migrate() error {
	schema := `
	-- Machine definitions
	CREATE TABLE IF NOT EXISTS slot_configurations (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		rows INTEGER NOT NULL,
		reels INTEGER NOT NULL,
		is_megaway BOOLEAN NOT NULL DEFAULT false,
		min_megaway_rows INTEGER NOT NULL DEFAULT 2,
		max_megaway_rows INTEGER NOT NULL DEFAULT 7,
		default_bet BIGINT NOT NULL DEFAULT 1,
		min_bet BIGINT NOT NULL DEFAULT 1,
		max_bet BIGINT NOT NULL DEFAULT 1000,
		wild_enabled BOOLEAN NOT NULL DEFAULT false,
		free_spins_enabled BOOLEAN NOT NULL DEFAULT false,
		rtp_percentage NUMERIC(5,2) NOT NULL DEFAULT 96.00,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS slot_symbols (
		id BIGINT NOT NULL,
		slot_config_id BIGINT NOT NULL REFERENCES slot_configurations(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		symbol_type VARCHAR(20) NOT NULL DEFAULT 'normal',
		value BIGINT NOT NULL DEFAULT 0,
		image_url TEXT,
		payout_2x BIGINT,
		payout_3x BIGINT,
		payout_4x BIGINT,
		payout_5x BIGINT,
		payout_6x BIGINT,
		PRIMARY KEY (slot_config_id, id)
	);

	CREATE TABLE IF NOT EXISTS slot_reel_symbols (
		id BIGSERIAL PRIMARY KEY,
		slot_config_id BIGINT NOT NULL REFERENCES slot_configurations(id) ON DELETE CASCADE,
		reel_number INTEGER NOT NULL,
		position INTEGER NOT NULL,
		symbol_id BIGINT NOT NULL,
		weight INTEGER NOT NULL DEFAULT 1,
		UNIQUE (slot_config_id, reel_number, position)
	);

	CREATE TABLE IF NOT EXISTS slot_paylines (
		id BIGSERIAL PRIMARY KEY,
		slot_config_id BIGINT NOT NULL REFERENCES slot_configurations(id) ON DELETE CASCADE,
		line_number INTEGER NOT NULL,
		pattern JSONB NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		UNIQUE (slot_config_id, line_number)
	);

	-- Settled spins, for recall
	CREATE TABLE IF NOT EXISTS spin_records (
		id UUID PRIMARY KEY,
		player_id VARCHAR(255) NOT NULL,
		machine_id VARCHAR(64) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		wager BIGINT NOT NULL,
		win BIGINT NOT NULL DEFAULT 0,
		jackpot_win BIGINT NOT NULL DEFAULT 0,
		free_spins INTEGER NOT NULL DEFAULT 0,
		outcome JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		type VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		player_id VARCHAR(255),
		machine_id VARCHAR(64),
		description TEXT NOT NULL,
		data JSONB,
		ip_address VARCHAR(45),
		component VARCHAR(100) NOT NULL
	);

	-- Progressive pools
	CREATE TABLE IF NOT EXISTS jackpots (
		id VARCHAR(64) PRIMARY KEY,
		current_amount BIGINT NOT NULL,
		floor_amount BIGINT NOT NULL,
		contribution_rate VARCHAR(32) NOT NULL,
		last_won TIMESTAMPTZ,
		version BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- Operator switches. machine_id '*' disables all gaming.
	CREATE TABLE IF NOT EXISTS machine_controls (
		machine_id VARCHAR(64) PRIMARY KEY,
		reason TEXT,
		disabled_at TIMESTAMPTZ NOT NULL,
		disabled_by VARCHAR(255) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slot_reel_symbols_config ON slot_reel_symbols(slot_config_id);
	CREATE INDEX IF NOT EXISTS idx_slot_paylines_config ON slot_paylines(slot_config_id);
	CREATE INDEX IF NOT EXISTS idx_spin_records_player ON spin_records(player_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_player ON audit_events(player_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset() error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS machine_controls CASCADE;
		DROP TABLE IF EXISTS jackpots CASCADE;
		DROP TABLE IF EXISTS audit_events CASCADE;
		DROP TABLE IF EXISTS spin_records CASCADE;
		DROP TABLE IF EXISTS slot_paylines CASCADE;
		DROP TABLE IF EXISTS slot_reel_symbols CASCADE;
		DROP TABLE IF EXISTS slot_symbols CASCADE;
		DROP TABLE IF EXISTS slot_configurations CASCADE;
	`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData() error {
	_, err := db.Exec(`
		TRUNCATE TABLE machine_controls, jackpots, audit_events, spin_records, slot_paylines,
		               slot_reel_symbols, slot_symbols, slot_configurations CASCADE;
	`)
	return err
}
