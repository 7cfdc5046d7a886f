package slotconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexbotov/slotsrv/internal/game"
)

const (
	tableConfigs  = "slot_configurations"
	tableSymbols  = "slot_symbols"
	tableReels    = "slot_reel_symbols"
	tablePaylines = "slot_paylines"

	colConfigID = "slot_config_id"
)

// Payout columns cover run lengths 2 through 6.
const (
	minPayoutLen = 2
	maxPayoutLen = 6
)

var payoutCols = []string{"payout_2x", "payout_3x", "payout_4x", "payout_5x", "payout_6x"}

var configCols = []string{
	"id", "name", "rows", "reels", "is_megaway", "min_megaway_rows", "max_megaway_rows",
	"default_bet", "min_bet", "max_bet", "wild_enabled", "free_spins_enabled", "rtp_percentage",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository reads and writes definitions in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanConfig(row sq.RowScanner) (game.Config, error) {
	var c game.Config
	err := row.Scan(&c.ID, &c.Name, &c.Rows, &c.Reels, &c.IsMegaway, &c.MinMegawayRows, &c.MaxMegawayRows,
		&c.DefaultBet, &c.MinBet, &c.MaxBet, &c.WildEnabled, &c.FreeSpinsEnabled, &c.RTPPercentage)
	return c, err
}

// List returns active configurations, newest first.
func (r *Repository) List(ctx context.Context) ([]game.Config, error) {
	query, args, err := psql.Select(configCols...).
		From(tableConfigs).
		Where(sq.Eq{"is_active": true}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot configurations: %w", err)
	}
	defer rows.Close()

	var out []game.Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Definition loads a full active definition. Only active paylines are
// returned.
func (r *Repository) Definition(ctx context.Context, id int64) (*game.Definition, error) {
	query, args, err := psql.Select(configCols...).
		From(tableConfigs).
		Where(sq.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, err
	}
	cfg, err := scanConfig(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}

	def := &game.Definition{Config: cfg}
	if def.Symbols, err = r.symbols(ctx, id); err != nil {
		return nil, err
	}
	if def.Reels, err = r.reels(ctx, id); err != nil {
		return nil, err
	}
	if def.Paylines, err = r.paylines(ctx, id); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *Repository) symbols(ctx context.Context, configID int64) ([]game.SymbolRecord, error) {
	cols := append([]string{"id", "name", "symbol_type", "value", "COALESCE(image_url, '')"}, payoutCols...)
	query, args, err := psql.Select(cols...).
		From(tableSymbols).
		Where(sq.Eq{colConfigID: configID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbols: %w", err)
	}
	defer rows.Close()

	var out []game.SymbolRecord
	for rows.Next() {
		var s game.SymbolRecord
		payouts := make([]sql.NullInt64, len(payoutCols))
		dest := []any{&s.ID, &s.Name, &s.SymbolType, &s.Value, &s.ImageURL}
		for i := range payouts {
			dest = append(dest, &payouts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.Payouts = make(map[int]int64)
		for i, p := range payouts {
			if p.Valid && p.Int64 > 0 {
				s.Payouts[minPayoutLen+i] = p.Int64
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) reels(ctx context.Context, configID int64) ([]game.ReelSymbolRecord, error) {
	query, args, err := psql.Select("reel_number", "position", "symbol_id", "weight").
		From(tableReels).
		Where(sq.Eq{colConfigID: configID}).
		OrderBy("reel_number", "position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reels: %w", err)
	}
	defer rows.Close()

	var out []game.ReelSymbolRecord
	for rows.Next() {
		var rs game.ReelSymbolRecord
		if err := rows.Scan(&rs.ReelNumber, &rs.Position, &rs.SymbolID, &rs.Weight); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (r *Repository) paylines(ctx context.Context, configID int64) ([]game.PaylineRecord, error) {
	query, args, err := psql.Select("line_number", "pattern", "is_active").
		From(tablePaylines).
		Where(sq.Eq{colConfigID: configID, "is_active": true}).
		OrderBy("line_number").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch paylines: %w", err)
	}
	defer rows.Close()

	var out []game.PaylineRecord
	for rows.Next() {
		var (
			p       game.PaylineRecord
			pattern []byte
			active  bool
		)
		if err := rows.Scan(&p.LineNumber, &pattern, &active); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pattern, &p.Pattern); err != nil {
			return nil, game.WrapConfig(err, fmt.Sprintf("payline %d pattern", p.LineNumber))
		}
		p.IsActive = &active
		out = append(out, p)
	}
	return out, rows.Err()
}

// Save inserts def as a new configuration in one transaction and returns
// the new id. The definition is validated with game.Build first.
func (r *Repository) Save(ctx context.Context, def *game.Definition) (int64, error) {
	if _, err := game.Build(def); err != nil {
		return 0, err
	}
	for _, s := range def.Symbols {
		for n, p := range s.Payouts {
			if p > 0 && (n < minPayoutLen || n > maxPayoutLen) {
				return 0, &game.ConfigurationError{Reason: fmt.Sprintf("symbol %d payout for %d of a kind is not storable", s.ID, n)}
			}
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	c := def.Config
	query, args, err := psql.Insert(tableConfigs).
		Columns(configCols[1:]...).
		Values(c.Name, c.Rows, c.Reels, c.IsMegaway, c.MinMegawayRows, c.MaxMegawayRows,
			c.DefaultBet, c.MinBet, c.MaxBet, c.WildEnabled, c.FreeSpinsEnabled, c.RTPPercentage).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create slot configuration: %w", err)
	}

	if len(def.Symbols) > 0 {
		ins := psql.Insert(tableSymbols).
			Columns(append([]string{colConfigID, "id", "name", "symbol_type", "value", "image_url"}, payoutCols...)...)
		for _, s := range def.Symbols {
			vals := []any{id, s.ID, s.Name, s.SymbolType, s.Value, nullString(s.ImageURL)}
			for n := minPayoutLen; n <= maxPayoutLen; n++ {
				if p, ok := s.Payouts[n]; ok {
					vals = append(vals, p)
				} else {
					vals = append(vals, nil)
				}
			}
			ins = ins.Values(vals...)
		}
		if err := execBuilder(ctx, tx, ins); err != nil {
			return 0, fmt.Errorf("failed to insert symbols: %w", err)
		}
	}

	if len(def.Reels) > 0 {
		ins := psql.Insert(tableReels).
			Columns(colConfigID, "reel_number", "position", "symbol_id", "weight")
		for _, rs := range def.Reels {
			ins = ins.Values(id, rs.ReelNumber, rs.Position, rs.SymbolID, rs.Weight)
		}
		ins = ins.Suffix("ON CONFLICT (slot_config_id, reel_number, position) DO UPDATE SET symbol_id = EXCLUDED.symbol_id, weight = EXCLUDED.weight")
		if err := execBuilder(ctx, tx, ins); err != nil {
			return 0, fmt.Errorf("failed to insert reel symbols: %w", err)
		}
	}

	if len(def.Paylines) > 0 {
		ins := psql.Insert(tablePaylines).
			Columns(colConfigID, "line_number", "pattern", "is_active")
		for _, p := range def.Paylines {
			pattern, err := json.Marshal(p.Pattern)
			if err != nil {
				return 0, err
			}
			ins = ins.Values(id, p.LineNumber, string(pattern), p.Active())
		}
		if err := execBuilder(ctx, tx, ins); err != nil {
			return 0, fmt.Errorf("failed to insert paylines: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Deactivate retires a configuration. It disappears from List and
// Definition.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	query, args, err := psql.Update(tableConfigs).
		Set("is_active", false).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConfigNotFound
	}
	return nil
}

func execBuilder(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
