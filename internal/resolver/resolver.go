package resolver

import "github.com/samraisbeck/MEDS/internal/inventory"

type firstFitResolver struct{}

// New creates a Resolver that serves the earliest day of the week with a
// pill still owed, regardless of how much backlog later days carry.
func New() Resolver {
	return &firstFitResolver{}
}

// Resolve picks the first day in week order with a positive count for color
// and decrements that cell. Unknown colors and exhausted colors are not
// routed and leave the grid untouched.
func (r *firstFitResolver) Resolve(color inventory.Color, grid *inventory.Grid) Decision {
	if !color.Valid() || grid == nil {
		return Decision{}
	}

	for _, cell := range grid.Remaining(color) {
		if cell.Count > 0 {
			grid.Decrement(color, cell.Day)
			return Decision{Routed: true, Day: cell.Day}
		}
	}

	return Decision{}
}
