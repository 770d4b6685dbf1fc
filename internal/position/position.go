// Package position maps routing decisions onto organizer rotation targets,
// measured in drive encoder units. Home is 0 and every compartment lies in
// the negative direction.
package position

import (
	"math"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

// Position is an organizer rotation in encoder units.
type Position float64

// BoxLength is the encoder distance covered by one compartment: a 1.23 unit
// arc on a 1.5 unit hub radius, expressed in encoder degrees. Every other
// landmark is defined relative to it.
const BoxLength Position = (1.23 * 180) / (math.Pi * 1.5)

const (
	// Home is the calibrated rest position where the first compartment sits under the chute.
	Home Position = 0
	// garbageOffset moves the discard opening clear of the Saturday compartment.
	garbageOffset Position = 31
	// FullRotation is the encoder span of one full turn of the feeder arm;
	// each feed turns it once.
	FullRotation = 358
)

// ForDay returns the target position for day's compartment.
func ForDay(day inventory.Day) Position {
	return -Position(day.Index()) * BoxLength
}

// Garbage returns the discard position.
func Garbage() Position {
	return -6*BoxLength - garbageOffset
}

// Eject returns the position at which the organizer leaves the machine.
func Eject() Position {
	return -8 * BoxLength
}
