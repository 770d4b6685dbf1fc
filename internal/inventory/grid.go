package inventory

import (
	"fmt"
	"math"
)

// Grid holds the number of pills still owed per color and day for one run.
// It is owned by a single run and is not safe for concurrent use.
type Grid struct {
	counts Counts
	total  int
}

// Load builds a Grid from exactly three color sections. The returned total is
// the sum of all counts; it is computed here once and never recomputed.
func Load(sections []Section) (*Grid, int, error) {
	if len(sections) != NumColors {
		return nil, 0, NewLoadError("", fmt.Errorf("%w: got %d", ErrSectionCount, len(sections)))
	}

	var (
		g    Grid
		seen [NumColors]bool
	)
	for i, section := range sections {
		location := fmt.Sprintf("section %d (%s)", i+1, section.Color)
		if len(section.Counts) != NumDays {
			return nil, 0, NewLoadError(location, fmt.Errorf("%w: got %d", ErrFieldCount, len(section.Counts)))
		}

		color := ParseColor(section.Color)
		if seen[color] {
			return nil, 0, NewLoadError(location, fmt.Errorf("%w: %s appears twice", ErrMissingColor, color))
		}
		seen[color] = true

		for day, count := range section.Counts {
			if count < 0 {
				return nil, 0, NewLoadError(location, fmt.Errorf("%w: %s=%d", ErrNegativeCount, Day(day), count))
			}
			if count > math.MaxInt-g.total {
				return nil, 0, NewLoadError(location, fmt.Errorf("%w: %s=%d overflows the schedule total", ErrInvalidCount, Day(day), count))
			}
			g.counts[color][day] = count
			g.total += count
		}
	}

	return &g, g.total, nil
}

// NewGrid builds a Grid directly from counts. Negative counts and counts
// whose sum does not fit in an int are rejected.
func NewGrid(counts Counts) (*Grid, error) {
	g := Grid{counts: counts}
	for _, color := range Colors() {
		for _, day := range Days() {
			n := counts[color][day]
			if n < 0 {
				return nil, NewLoadError(color.String(), fmt.Errorf("%w: %s=%d", ErrNegativeCount, day, n))
			}
			if n > math.MaxInt-g.total {
				return nil, NewLoadError(color.String(), fmt.Errorf("%w: %s=%d overflows the schedule total", ErrInvalidCount, day, n))
			}
			g.total += n
		}
	}
	return &g, nil
}

// Total is the number of pills the grid held when it was loaded.
func (g *Grid) Total() int {
	return g.total
}

// Remaining returns the row for color in day-of-week order. An Unknown color
// has no row and yields nil.
func (g *Grid) Remaining(color Color) []DayCount {
	if !color.Valid() {
		return nil
	}
	row := make([]DayCount, 0, NumDays)
	for _, day := range Days() {
		row = append(row, DayCount{Day: day, Count: g.counts[color][day]})
	}
	return row
}

// Count returns the remaining count of a single cell.
func (g *Grid) Count(color Color, day Day) int {
	if !color.Valid() || !day.Valid() {
		return 0
	}
	return g.counts[color][day]
}

// Decrement removes one pill from the (color, day) cell. Calling it on an
// empty or invalid cell is a programming error and panics.
func (g *Grid) Decrement(color Color, day Day) {
	if !color.Valid() || !day.Valid() {
		panic(fmt.Sprintf("inventory: decrement of invalid cell (%s, %s)", color, day))
	}
	if g.counts[color][day] <= 0 {
		panic(fmt.Sprintf("inventory: decrement of empty cell (%s, %s)", color, day))
	}
	g.counts[color][day]--
}

// Snapshot returns a copy of every cell.
func (g *Grid) Snapshot() Counts {
	return g.counts
}

// Outstanding is the sum of every cell as it stands now.
func (g *Grid) Outstanding() int {
	sum := 0
	for _, row := range g.counts {
		for _, n := range row {
			sum += n
		}
	}
	return sum
}
