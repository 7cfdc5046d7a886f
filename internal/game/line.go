package game

// minRun is the shortest run that can pay.
const minRun = 3

// LineEvaluator scores one left-to-right symbol sequence.
//
// A run starts at the first symbol and extends while the next symbol is a
// wild (wilds enabled), carries the first symbol's name, or the first symbol
// is itself a wild (wilds enabled). The last rule means a leading wild
// absorbs every following symbol, whatever it is. The paying symbol is the
// first symbol, or the first non-wild in the whole sequence when the first
// is a wild. A run pays double outside megaway mode when a wild after the
// first position took part in it; a leading wild alone does not double.
type LineEvaluator struct {
	WildEnabled bool
	Megaway     bool
}

// Run returns the run length and whether a wild after the first symbol
// took part in it.
func (e LineEvaluator) Run(line []*Symbol) (run int, wild bool) {
	if len(line) == 0 {
		return 0, false
	}
	first := line[0]
	// TODO: confirm the leading-wild rule with product before changing payouts.
	leadingWild := e.WildEnabled && first.IsWild()
	run = 1
	for _, cur := range line[1:] {
		switch {
		case e.WildEnabled && cur.IsWild():
			wild = true
		case cur.Name == first.Name || leadingWild:
		default:
			return run, wild
		}
		run++
	}
	return run, wild
}

// Evaluate returns the line multiplier, or ok=false when the line does not
// pay.
func (e LineEvaluator) Evaluate(line []*Symbol) (multiplier int64, ok bool) {
	if len(line) < minRun {
		return 0, false
	}
	run, wild := e.Run(line)
	return e.settle(line, run, wild)
}

func (e LineEvaluator) settle(line []*Symbol, run int, wild bool) (int64, bool) {
	if run < minRun {
		return 0, false
	}
	base := baseSymbol(line)
	if base == nil {
		return 0, false
	}
	pay, ok := base.Payouts[run]
	if !ok || pay <= 0 {
		return 0, false
	}
	if wild && !e.Megaway {
		pay *= 2
	}
	return pay, true
}

// baseSymbol is the symbol whose paytable applies.
func baseSymbol(line []*Symbol) *Symbol {
	if !line[0].IsWild() {
		return line[0]
	}
	for _, s := range line {
		if !s.IsWild() {
			return s
		}
	}
	return nil
}

// decidedLoss reports whether every line sharing line[:run+1] loses,
// given that line itself lost with the given run length.
func decidedLoss(line []*Symbol, run int) bool {
	if run < minRun {
		return true
	}
	if !line[0].IsWild() {
		return true
	}
	end := min(run+1, len(line))
	for _, s := range line[:end] {
		if !s.IsWild() {
			return true
		}
	}
	return false
}

// WinningLine is a payline or megaway path that paid.
type WinningLine struct {
	// Line is the payline number, or the path index in megaway mode.
	Line       int      `json:"line"`
	Rows       []int    `json:"rows,omitempty"`
	Symbols    []string `json:"symbols"`
	RunLength  int      `json:"run_length"`
	Multiplier int64    `json:"multiplier"`
	Win        int64    `json:"win"`
}

func symbolNames(line []*Symbol) []string {
	names := make([]string, len(line))
	for i, s := range line {
		names[i] = s.Name
	}
	return names
}
