package game

import "math"

// PathEnumerator streams every reel-by-reel row combination of a grid.
// Path indices are mixed-radix numbers over the per-reel row counts with
// reel 0 as the most significant digit. One index vector and one symbol
// buffer are reused for the whole walk.
type PathEnumerator struct {
	grid   Grid
	rows   []int
	stride []int
	idx    []int
	line   []*Symbol
}

// NewPathEnumerator prepares an enumerator over grid.
func NewPathEnumerator(grid Grid) *PathEnumerator {
	n := len(grid)
	p := &PathEnumerator{
		grid:   grid,
		rows:   grid.Rows(),
		stride: make([]int, n),
		idx:    make([]int, n),
		line:   make([]*Symbol, n),
	}
	s := 1
	for i := n - 1; i >= 0; i-- {
		p.stride[i] = s
		s = mulSat(s, p.rows[i])
	}
	return p
}

// Count returns the number of paths, saturating at math.MaxInt. A grid with
// no reels or an empty reel has no paths.
func (p *PathEnumerator) Count() int {
	if len(p.rows) == 0 {
		return 0
	}
	c := 1
	for _, r := range p.rows {
		c = mulSat(c, r)
	}
	return c
}

// Wins evaluates every path and returns the paying ones. Once a path's
// prefix settles a loss, all paths sharing that prefix are skipped. The
// second result is the number of paths actually scanned.
func (p *PathEnumerator) Wins(ev LineEvaluator, betPerLine int64) ([]WinningLine, int) {
	n := len(p.idx)
	if n < minRun || p.Count() == 0 {
		return nil, 0
	}
	var wins []WinningLine
	scanned := 0
	p.reset()
	for {
		scanned++
		run, wild := ev.Run(p.line)
		pos := n - 1
		if mult, ok := ev.settle(p.line, run, wild); ok {
			wins = append(wins, WinningLine{
				Line:       p.index(),
				Rows:       append([]int(nil), p.idx...),
				Symbols:    symbolNames(p.line),
				RunLength:  run,
				Multiplier: mult,
				Win:        mult * betPerLine,
			})
		} else if run < n && decidedLoss(p.line, run) {
			pos = run
		}
		if !p.advance(pos) {
			return wins, scanned
		}
	}
}

func (p *PathEnumerator) reset() {
	for i := range p.idx {
		p.idx[i] = 0
		p.line[i] = p.grid[i][0]
	}
}

func (p *PathEnumerator) index() int {
	v := 0
	for i, d := range p.idx {
		v += d * p.stride[i]
	}
	return v
}

// advance moves to the first path whose digit pos is greater than the
// current one, zeroing every lower digit. It reports false once the walk
// has wrapped.
func (p *PathEnumerator) advance(pos int) bool {
	for i := pos + 1; i < len(p.idx); i++ {
		p.idx[i] = 0
	}
	low := pos
	for low >= 0 {
		p.idx[low]++
		if p.idx[low] < p.rows[low] {
			break
		}
		p.idx[low] = 0
		low--
	}
	if low < 0 {
		return false
	}
	for i := low; i < len(p.idx); i++ {
		p.line[i] = p.grid[i][p.idx[i]]
	}
	return true
}

func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}
