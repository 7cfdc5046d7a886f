package game

import (
	"context"
	"errors"
	"math"

	"github.com/alexbotov/slotsrv/internal/rng"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulateLegacyRTP plays spins legacy rounds at wager 1 and returns
// total win / total wagered × 100. The result depends only on the source.
func SimulateLegacyRTP(m *LegacyMachine, spins int, src rng.Source) float64 {
	t := simulateBatch(m, spins, src, nil)
	if t.wagered == 0 {
		return 0
	}
	return float64(t.won) / float64(t.wagered) * 100
}

type batchTotals struct {
	wagered  int64
	won      int64
	hits     int64
	diamonds int64
}

const progressStep = 10000

func simulateBatch(m *LegacyMachine, spins int, src rng.Source, progress func(int)) batchTotals {
	var t batchTotals
	for i := 0; i < spins; i++ {
		res := m.Evaluate(m.draw(src), 1)
		t.wagered++
		t.won += res.TotalWin
		if res.TotalWin > 0 {
			t.hits++
		}
		if res.JackpotTriggered() {
			t.diamonds++
		}
		if progress != nil && (i+1)%progressStep == 0 {
			progress(progressStep)
		}
	}
	if progress != nil && spins%progressStep != 0 {
		progress(spins % progressStep)
	}
	return t
}

// SimulationConfig controls a parallel legacy simulation. Batches fixes how
// spins are split; the report depends on Seed, Spins and Batches only.
type SimulationConfig struct {
	Spins    int
	Seed     uint64
	Batches  int
	Workers  int
	Progress func(spins int)
}

// SimulationReport summarises a legacy simulation.
type SimulationReport struct {
	Spins           int64   `json:"spins"`
	TotalWagered    int64   `json:"total_wagered"`
	TotalWin        int64   `json:"total_win"`
	RTP             float64 `json:"rtp"`
	TheoreticalRTP  float64 `json:"theoretical_rtp"`
	HitFrequency    float64 `json:"hit_frequency"`
	JackpotTriggers int64   `json:"jackpot_triggers"`
	CILow           float64 `json:"ci_low"`
	CIHigh          float64 `json:"ci_high"`
}

var ErrNoSpins = errors.New("simulation needs at least one spin")

// RunLegacySimulation splits the spins into seeded batches and runs them on
// a bounded worker group.
func RunLegacySimulation(ctx context.Context, m *LegacyMachine, cfg SimulationConfig) (*SimulationReport, error) {
	if cfg.Spins <= 0 {
		return nil, ErrNoSpins
	}
	batches := cfg.Batches
	if batches <= 0 {
		batches = 32
	}
	batches = min(batches, cfg.Spins)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	totals := make([]batchTotals, batches)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < batches; i++ {
		spins := cfg.Spins / batches
		if i < cfg.Spins%batches {
			spins++
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			totals[i] = simulateBatch(m, spins, rng.NewSeeded(rng.Derive(cfg.Seed, i)), cfg.Progress)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &SimulationReport{TheoreticalRTP: m.TheoreticalRTP()}
	rtps := make([]float64, batches)
	for i, t := range totals {
		rep.Spins += t.wagered
		rep.TotalWagered += t.wagered
		rep.TotalWin += t.won
		rep.JackpotTriggers += t.diamonds
		rep.HitFrequency += float64(t.hits)
		rtps[i] = float64(t.won) / float64(t.wagered) * 100
	}
	rep.RTP = float64(rep.TotalWin) / float64(rep.TotalWagered) * 100
	rep.HitFrequency /= float64(rep.Spins)
	rep.CILow, rep.CIHigh = confidenceInterval(rtps, 0.95)
	return rep, nil
}

// confidenceInterval returns a Student-t interval for the mean of xs.
func confidenceInterval(xs []float64, level float64) (float64, float64) {
	mean, sd := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || math.IsNaN(sd) {
		return mean, mean
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(xs) - 1)}.Quantile(1 - (1-level)/2)
	half := t * sd / math.Sqrt(float64(len(xs)))
	return mean - half, mean + half
}
