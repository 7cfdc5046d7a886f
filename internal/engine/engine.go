// Package engine settles spins: it draws outcomes from the game package,
// runs the progressive jackpot, and records what happened.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/alexbotov/slotsrv/internal/audit"
	"github.com/alexbotov/slotsrv/internal/control"
	"github.com/alexbotov/slotsrv/internal/domain"
	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/alexbotov/slotsrv/internal/jackpot"
	"github.com/alexbotov/slotsrv/internal/metrics"
	"github.com/alexbotov/slotsrv/internal/rng"
	"github.com/alexbotov/slotsrv/internal/slotconfig"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LegacyMachineID names the fixed machine in records and metrics.
const LegacyMachineID = "legacy"

var (
	ErrNoMachines  = errors.New("no machine catalogue configured")
	ErrReadOnly    = errors.New("machine catalogue is read-only")
	ErrMissingDeps = errors.New("engine needs an RNG, a legacy machine and a jackpot")
)

// Deps wires an Engine. RNG, Legacy and Jackpot are required. RNG must be
// safe for concurrent use when the engine serves concurrent requests.
type Deps struct {
	RNG      rng.Source
	Legacy   *game.LegacyMachine
	Jackpot  *jackpot.Jackpot
	Store    jackpot.Store
	Machines slotconfig.Provider
	Records  Recorder
	Audit    *audit.Service
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// Control gates play. Nil leaves every machine open.
	Control *control.Service
	// LargeWin is the total win from which a spin is audited. Zero
	// disables large win events.
	LargeWin int64
}

// Engine provides spin execution
type Engine struct {
	rng      rng.Source
	legacy   *game.LegacyMachine
	jackpot  *jackpot.Jackpot
	store    jackpot.Store
	machines slotconfig.Provider
	records  Recorder
	audit    *audit.Service
	metrics  *metrics.Metrics
	control  *control.Service
	log      *zap.Logger
	largeWin int64

	built sync.Map // int64 -> *game.Machine
	group singleflight.Group
}

// New creates a new engine
func New(d Deps) (*Engine, error) {
	if d.RNG == nil || d.Legacy == nil || d.Jackpot == nil {
		return nil, ErrMissingDeps
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if d.Audit == nil {
		d.Audit = audit.New(nil, log)
	}
	e := &Engine{
		rng:      d.RNG,
		legacy:   d.Legacy,
		jackpot:  d.Jackpot,
		store:    d.Store,
		machines: d.Machines,
		records:  d.Records,
		audit:    d.Audit,
		metrics:  d.Metrics,
		control:  d.Control,
		log:      log.Named("engine"),
		largeWin: d.LargeWin,
	}
	e.metrics.SetJackpot(d.Jackpot.Info().CurrentAmount)
	return e, nil
}

// RestoreJackpot loads the pool from the store, or seeds the store with the
// current pool when nothing is stored yet.
func (e *Engine) RestoreJackpot(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	snap, err := e.store.Load(ctx, e.jackpot.ID())
	switch {
	case errors.Is(err, jackpot.ErrNoSnapshot):
		return e.store.Save(ctx, e.jackpot.Snapshot())
	case err != nil:
		return err
	}
	e.jackpot.Restore(snap)
	e.metrics.SetJackpot(e.jackpot.Info().CurrentAmount)
	e.log.Info("jackpot restored",
		zap.String("jackpot_id", snap.ID),
		zap.Int64("amount", e.jackpot.Info().CurrentAmount),
		zap.Int64("version", snap.Version))
	return nil
}

// LegacySpinRequest asks for one legacy spin
type LegacySpinRequest struct {
	PlayerID string `json:"-"`
	ClientIP string `json:"-"`
	Wager    int64  `json:"wager"`
}

// LegacySpinResult is a settled legacy spin. TotalWin excludes the
// jackpot award, which is reported separately.
type LegacySpinResult struct {
	SpinID string `json:"spin_id"`
	*game.LegacyResult
	JackpotWin int64        `json:"jackpot_win"`
	Jackpot    jackpot.Info `json:"jackpot"`
}

// SpinLegacy plays the legacy machine, contributes to the jackpot and
// awards it on a ThreeDiamonds line.
func (e *Engine) SpinLegacy(ctx context.Context, req *LegacySpinRequest) (*LegacySpinResult, error) {
	start := time.Now()
	if err := e.control.CheckAccess(LegacyMachineID); err != nil {
		return nil, err
	}
	res, err := e.legacy.Spin(e.rng, req.Wager)
	if err != nil {
		return nil, err
	}

	settled := e.jackpot.Settle(req.Wager, res.JackpotTriggered())
	e.persistJackpot(ctx, settled.Snapshot)
	e.metrics.SetJackpot(settled.Snapshot.CurrentAmount)

	out := &LegacySpinResult{
		SpinID:       uuid.New().String(),
		LegacyResult: res,
		JackpotWin:   settled.Award,
		Jackpot:      jackpot.Info{CurrentAmount: settled.Snapshot.CurrentAmount, LastWon: settled.Snapshot.LastWon},
	}

	if settled.Won {
		e.metrics.JackpotAwarded()
		e.audit.Log(ctx, audit.EventJackpotAwarded, domain.SeverityInfo,
			fmt.Sprintf("Jackpot awarded: %d", settled.Award),
			map[string]interface{}{
				"spin_id":    out.SpinID,
				"amount":     settled.Award,
				"wager":      req.Wager,
				"jackpot_id": settled.Snapshot.ID,
			},
			audit.WithPlayer(req.PlayerID), audit.WithMachine(LegacyMachineID))
	}
	e.checkLargeWin(ctx, out.SpinID, req.PlayerID, req.ClientIP, LegacyMachineID, req.Wager, res.TotalWin+settled.Award)

	e.metrics.ObserveSpin(LegacyMachineID, req.Wager, res.TotalWin+settled.Award, time.Since(start).Seconds())
	e.record(ctx, &domain.SpinRecord{
		ID:         out.SpinID,
		PlayerID:   req.PlayerID,
		MachineID:  LegacyMachineID,
		Kind:       domain.MachineLegacy,
		Wager:      req.Wager,
		Win:        res.TotalWin,
		JackpotWin: settled.Award,
	}, res)

	e.log.Debug("legacy spin",
		zap.String("spin_id", out.SpinID),
		zap.String("player_id", req.PlayerID),
		zap.Int64("wager", req.Wager),
		zap.Int64("win", res.TotalWin),
		zap.Int64("jackpot_win", settled.Award))
	return out, nil
}

// SpinRequest asks for one spin on a configured machine. A zero bet uses
// the machine's default bet.
type SpinRequest struct {
	PlayerID   string `json:"-"`
	ClientIP   string `json:"-"`
	MachineID  int64  `json:"slot_config_id"`
	BetPerLine int64  `json:"bet_per_line"`
}

// SpinResult is a settled universal spin
type SpinResult struct {
	SpinID    string `json:"spin_id"`
	MachineID int64  `json:"slot_config_id"`
	TotalBet  int64  `json:"total_bet"`
	*game.SpinResult
}

// Spin plays a configured machine. Universal machines do not feed the
// progressive jackpot.
func (e *Engine) Spin(ctx context.Context, req *SpinRequest) (*SpinResult, error) {
	start := time.Now()
	machineID := strconv.FormatInt(req.MachineID, 10)
	if err := e.control.CheckAccess(machineID); err != nil {
		return nil, err
	}
	m, err := e.Machine(ctx, req.MachineID)
	if err != nil {
		return nil, err
	}
	bet := req.BetPerLine
	if bet == 0 {
		bet = m.Config().DefaultBet
	}
	res, err := m.Spin(e.rng, bet)
	if err != nil {
		return nil, err
	}

	out := &SpinResult{
		SpinID:     uuid.New().String(),
		MachineID:  req.MachineID,
		TotalBet:   bet * int64(m.Lines()),
		SpinResult: res,
	}

	if m.Config().IsMegaway {
		e.metrics.ObservePaths(res.PathsScanned)
	}
	e.checkLargeWin(ctx, out.SpinID, req.PlayerID, req.ClientIP, machineID, out.TotalBet, res.TotalWin)
	e.metrics.ObserveSpin(machineID, out.TotalBet, res.TotalWin, time.Since(start).Seconds())
	e.record(ctx, &domain.SpinRecord{
		ID:        out.SpinID,
		PlayerID:  req.PlayerID,
		MachineID: machineID,
		Kind:      domain.MachineUniversal,
		Wager:     out.TotalBet,
		Win:       res.TotalWin,
		FreeSpins: res.FreeSpins,
	}, res)

	e.log.Debug("spin",
		zap.String("spin_id", out.SpinID),
		zap.Int64("machine_id", req.MachineID),
		zap.Int64("bet_per_line", bet),
		zap.Int64("win", res.TotalWin),
		zap.Int("paths_scanned", res.PathsScanned))
	return out, nil
}

// Machine returns the built machine for id. Builds are cached and
// concurrent requests for the same id share one build.
func (e *Engine) Machine(ctx context.Context, id int64) (*game.Machine, error) {
	if m, ok := e.built.Load(id); ok {
		return m.(*game.Machine), nil
	}
	if e.machines == nil {
		return nil, ErrNoMachines
	}

	v, err, _ := e.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		def, err := e.machines.Definition(ctx, id)
		if err != nil {
			return nil, err
		}
		m, err := game.Build(def)
		if err != nil {
			e.metrics.ConfigError()
			e.audit.Log(ctx, audit.EventConfigurationError, domain.SeverityError,
				err.Error(), nil, audit.WithMachine(strconv.FormatInt(id, 10)))
			return nil, err
		}
		e.built.Store(id, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*game.Machine), nil
}

// Configs lists the active machine configurations.
func (e *Engine) Configs(ctx context.Context) ([]game.Config, error) {
	if e.machines == nil {
		return nil, ErrNoMachines
	}
	return e.machines.List(ctx)
}

// Definition returns the stored definition for id.
func (e *Engine) Definition(ctx context.Context, id int64) (*game.Definition, error) {
	if e.machines == nil {
		return nil, ErrNoMachines
	}
	return e.machines.Definition(ctx, id)
}

// SaveDefinition validates and stores a new machine definition.
func (e *Engine) SaveDefinition(ctx context.Context, def *game.Definition) (int64, error) {
	saver, ok := e.machines.(slotconfig.Saver)
	if !ok {
		return 0, ErrReadOnly
	}
	id, err := saver.Save(ctx, def)
	if err != nil {
		if errors.Is(err, game.ErrConfiguration) {
			e.metrics.ConfigError()
		}
		return 0, err
	}
	e.built.Delete(id)
	e.audit.Log(ctx, audit.EventConfigurationSaved, domain.SeverityInfo,
		fmt.Sprintf("Machine %q saved", def.Config.Name), nil, audit.WithMachine(strconv.FormatInt(id, 10)))
	return id, nil
}

// DeactivateDefinition retires a machine. Spins on it fail with
// slotconfig.ErrConfigNotFound from then on.
func (e *Engine) DeactivateDefinition(ctx context.Context, id int64) error {
	d, ok := e.machines.(slotconfig.Deactivator)
	if !ok {
		return ErrReadOnly
	}
	if err := d.Deactivate(ctx, id); err != nil {
		return err
	}
	e.built.Delete(id)
	e.audit.Log(ctx, audit.EventConfigurationRetired, domain.SeverityWarning,
		fmt.Sprintf("Machine %d deactivated", id), nil, audit.WithMachine(strconv.FormatInt(id, 10)))
	return nil
}

// Machines lists the legacy machine followed by the configured catalogue.
func (e *Engine) Machines(ctx context.Context) ([]domain.MachineInfo, error) {
	out := []domain.MachineInfo{{
		ID:             LegacyMachineID,
		Name:           "Legacy 3x3",
		Kind:           domain.MachineLegacy,
		Reels:          game.LegacyReels,
		Rows:           game.LegacyRows,
		TheoreticalRTP: e.legacy.TheoreticalRTP(),
		MinBet:         1,
	}}
	if e.machines == nil {
		return out, nil
	}
	configs, err := e.machines.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		out = append(out, domain.MachineInfo{
			ID:             strconv.FormatInt(c.ID, 10),
			Name:           c.Name,
			Kind:           domain.MachineUniversal,
			Reels:          c.Reels,
			Rows:           c.Rows,
			Megaway:        c.IsMegaway,
			TheoreticalRTP: c.RTPPercentage,
			MinBet:         c.MinBet,
			MaxBet:         c.MaxBet,
		})
	}
	return out, nil
}

// Jackpot returns the current pool
func (e *Engine) Jackpot() jackpot.Info {
	return e.jackpot.Info()
}

// GetHistory retrieves a player's recent spins
func (e *Engine) GetHistory(ctx context.Context, playerID string, limit int) ([]*domain.SpinRecord, error) {
	if e.records == nil {
		return []*domain.SpinRecord{}, nil
	}
	return e.records.History(ctx, domain.HistoryFilter{PlayerID: playerID, Limit: limit})
}

// persistJackpot saves a snapshot without failing the spin. The pool in
// memory stays authoritative.
func (e *Engine) persistJackpot(ctx context.Context, snap jackpot.Snapshot) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.store.Save(ctx, snap); err != nil {
		e.log.Warn("failed to persist jackpot",
			zap.String("jackpot_id", snap.ID),
			zap.Int64("version", snap.Version),
			zap.Error(err))
	}
}

func (e *Engine) checkLargeWin(ctx context.Context, spinID, playerID, ip, machineID string, wager, win int64) {
	if e.largeWin <= 0 || win < e.largeWin {
		return
	}
	e.audit.Log(ctx, audit.EventLargeWin, domain.SeverityInfo,
		fmt.Sprintf("Large win: %d", win),
		map[string]interface{}{
			"spin_id": spinID,
			"win":     win,
			"wager":   wager,
		},
		audit.WithPlayer(playerID), audit.WithMachine(machineID), audit.WithIP(ip))
}

func (e *Engine) record(ctx context.Context, r *domain.SpinRecord, outcome any) {
	if e.records == nil {
		return
	}
	r.CreatedAt = time.Now().UTC()
	if raw, err := json.Marshal(outcome); err == nil {
		r.Outcome = raw
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.records.Record(ctx, r); err != nil {
		e.log.Warn("failed to record spin", zap.String("spin_id", r.ID), zap.Error(err))
	}
}
