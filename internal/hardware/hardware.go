package hardware

import (
	"errors"
	"time"

	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/position"
)

const (
	// SettleDelay is the pause after each mechanical action.
	SettleDelay = 300 * time.Millisecond
	// ColorWindow is how long the color sensor is sampled before a reading is taken.
	ColorWindow = 4000 * time.Millisecond
)

// ErrTimeout is returned by drivers when a physical condition is not observed in time.
var ErrTimeout = errors.New("hardware did not respond in time")

// Machine is the set of blocking capabilities used during a run.
type Machine interface {
	// Calibrate waits for the organizer to be seated and zeroes the position reference.
	Calibrate() error
	// FeedOnePill moves a single pill from the holder to the color sensor.
	FeedOnePill() error
	// ClassifyColor samples the sensor and returns the classified color.
	ClassifyColor() (inventory.Color, error)
	// SeekTo rotates the organizer until it reaches target.
	SeekTo(target position.Position) error
	// OpenAndCloseChute drops the pill at the current position.
	OpenAndCloseChute() error
	// EjectOrganizer rotates the organizer out to the eject landmark.
	EjectOrganizer() error
}

// Reporter tells the operator how the run ended and waits for acknowledgement.
type Reporter interface {
	Report(failed bool) error
}

// Sensor classes reported by the color sensor in full-color mode.
const (
	ClassBlack  = 1
	ClassBlue   = 2
	ClassGreen  = 3
	ClassYellow = 4
	ClassRed    = 5
	ClassWhite  = 6
)

// ColorFromClass maps a raw sensor class to a Color. Anything other than the
// green, yellow and red classes is Unknown.
func ColorFromClass(class int) inventory.Color {
	switch class {
	case ClassGreen:
		return inventory.Green
	case ClassYellow:
		return inventory.Yellow
	case ClassRed:
		return inventory.Red
	default:
		return inventory.Unknown
	}
}

// ClassFromColor is the inverse of ColorFromClass. Unknown maps to ClassWhite,
// the reading of an empty sensor well.
func ClassFromColor(c inventory.Color) int {
	switch c {
	case inventory.Green:
		return ClassGreen
	case inventory.Yellow:
		return ClassYellow
	case inventory.Red:
		return ClassRed
	default:
		return ClassWhite
	}
}
