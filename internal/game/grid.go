package game

import (
	"encoding/json"

	"github.com/alexbotov/slotsrv/internal/rng"
)

// ReelStrip is the weighted symbol pool for one reel.
type ReelStrip struct {
	Number int
	Pool   *WeightedPool
}

// Grid holds the drawn symbols, indexed [reel][row]. Reels may differ in
// length in megaway mode.
type Grid [][]*Symbol

// Rows returns the row count of every reel.
func (g Grid) Rows() []int {
	rows := make([]int, len(g))
	for i, reel := range g {
		rows[i] = len(reel)
	}
	return rows
}

// At returns the symbol at (reel, row), or nil when out of range.
func (g Grid) At(reel, row int) *Symbol {
	if reel < 0 || reel >= len(g) || row < 0 || row >= len(g[reel]) {
		return nil
	}
	return g[reel][row]
}

// Names returns the symbol names per reel, for logs and recall.
func (g Grid) Names() [][]string {
	out := make([][]string, len(g))
	for i, reel := range g {
		out[i] = make([]string, len(reel))
		for j, s := range reel {
			out[i][j] = s.Name
		}
	}
	return out
}

// MarshalJSON encodes the grid as symbol names.
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Names())
}

// SpinReel draws rows independent symbols with replacement.
func SpinReel(pool *WeightedPool, rows int, src rng.Source) []*Symbol {
	out := make([]*Symbol, rows)
	for i := range out {
		out[i] = pool.Draw(src)
	}
	return out
}

// generateGrid draws every reel. In megaway mode each reel's row count is
// sampled uniformly in [minRows, maxRows] and returned alongside the grid.
func (m *Machine) generateGrid(src rng.Source) (Grid, []int) {
	grid := make(Grid, len(m.reels))
	var megaway []int
	if m.cfg.IsMegaway {
		megaway = make([]int, len(m.reels))
	}
	for i, reel := range m.reels {
		rows := m.cfg.Rows
		if m.cfg.IsMegaway {
			rows = m.cfg.MinMegawayRows + src.IntN(m.cfg.MaxMegawayRows-m.cfg.MinMegawayRows+1)
			megaway[i] = rows
		}
		grid[i] = SpinReel(reel.Pool, rows, src)
	}
	return grid, megaway
}
