package game

// FreeSpins maps a scatter count to the free spins it awards.
func FreeSpins(scatters int) int {
	switch {
	case scatters < 3:
		return 0
	case scatters == 3:
		return 10
	case scatters == 4:
		return 15
	case scatters == 5:
		return 20
	default:
		return 25
	}
}

// CountScatters counts scatter symbols anywhere on the grid.
func CountScatters(g Grid) int {
	n := 0
	for _, reel := range g {
		for _, s := range reel {
			if s.IsScatter() {
				n++
			}
		}
	}
	return n
}

// TotalWin sums multiplier × bet over the winning lines and stamps each
// line's Win.
func TotalWin(lines []WinningLine, betPerLine int64) int64 {
	var total int64
	for i := range lines {
		lines[i].Win = lines[i].Multiplier * betPerLine
		total += lines[i].Win
	}
	return total
}
