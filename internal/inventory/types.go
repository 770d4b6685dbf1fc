package inventory

import "strings"

// Color is the classified color of a pill. Only Green, Yellow and Red are
// actionable; Unknown covers every other sensor reading.
type Color int

const (
	Green Color = iota
	Yellow
	Red

	// Unknown is not part of the grid and is never routed to a day slot.
	Unknown Color = -1
)

// NumColors is the number of actionable colors tracked by a Grid.
const NumColors = 3

var colorNames = [NumColors]string{"green", "yellow", "red"}

// Colors returns the actionable colors in grid order.
func Colors() []Color {
	return []Color{Green, Yellow, Red}
}

// Valid reports whether c is one of the actionable colors.
func (c Color) Valid() bool {
	return c >= Green && c <= Red
}

func (c Color) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return colorNames[c]
}

// ParseColor maps a schedule color token onto a Color. "red" and "yellow"
// select their colors; any other token selects Green.
func ParseColor(token string) Color {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "red":
		return Red
	case "yellow":
		return Yellow
	default:
		return Green
	}
}

// Day is a compartment of the weekly organizer, Sunday first.
type Day int

const (
	Sunday Day = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// NumDays is the number of compartments in the organizer.
const NumDays = 7

var dayNames = [NumDays]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Days returns all days in week order.
func Days() []Day {
	return []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}

// Index is the zero-based position of d in the week.
func (d Day) Index() int {
	return int(d)
}

// Valid reports whether d is one of the seven days.
func (d Day) Valid() bool {
	return d >= Sunday && d <= Saturday
}

func (d Day) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return dayNames[d]
}

// DayCount is one cell of a color's row.
type DayCount struct {
	Day   Day
	Count int
}

// Section is one color block of a schedule source: a color token followed by
// its per-day counts, Sunday first.
type Section struct {
	Color  string
	Counts []int
}

// Counts is a value copy of the full grid, indexed by color then day.
type Counts [NumColors][NumDays]int
