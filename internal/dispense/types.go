package dispense

import (
	"time"

	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/position"
)

// FailureThreshold is the number of consecutive unclassifiable pills that aborts a run.
const FailureThreshold = 5

// State is a phase of the dispense cycle.
type State int

const (
	StateInit State = iota
	StateCalibrating
	StateFeed
	StateClassify
	StateRoute
	StateMove
	StateEject
	StateReport
	StateTerminal
)

var stateNames = [...]string{
	StateInit:        "init",
	StateCalibrating: "calibrating",
	StateFeed:        "feed",
	StateClassify:    "classify",
	StateRoute:       "route",
	StateMove:        "move",
	StateEject:       "eject",
	StateReport:      "report",
	StateTerminal:    "terminal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

// Outcome is what happened to a single pill.
type Outcome int

const (
	// OutcomeRouted means the pill was dropped into a day compartment.
	OutcomeRouted Outcome = iota
	// OutcomeExhausted means the color was recognised but nothing is owed for it; the pill was discarded.
	OutcomeExhausted
	// OutcomeUnclassified means the sensor reading was not an actionable color; the pill was discarded.
	OutcomeUnclassified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRouted:
		return "routed"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeUnclassified:
		return "unclassified"
	default:
		return "invalid"
	}
}

// RunState holds the counters that decide when the main loop stops.
type RunState struct {
	Completed           int
	ConsecutiveFailures int
	TotalExpected       int
}

// Aborted reports whether the failure threshold has been reached.
func (s RunState) Aborted() bool {
	return s.ConsecutiveFailures >= FailureThreshold
}

// Done reports whether the main loop must stop.
func (s RunState) Done() bool {
	return s.Completed >= s.TotalExpected || s.Aborted()
}

// Pill describes one processed pill.
type Pill struct {
	Seq     int
	Color   inventory.Color
	Outcome Outcome
	// Day is only meaningful when Outcome is OutcomeRouted.
	Day    inventory.Day
	Target position.Position
}

// Result summarises a finished run.
type Result struct {
	RunID               string
	Failed              bool
	Completed           int
	TotalExpected       int
	ConsecutiveFailures int
	Cycles              int
	Started             time.Time
	Finished            time.Time
	// Err is set when a hardware failure stopped the run.
	Err error
}

// EventKind identifies an Event.
type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventStateChanged  EventKind = "state_changed"
	EventPillProcessed EventKind = "pill_processed"
	EventRunFinished   EventKind = "run_finished"
)

// Event is emitted to observers as the run progresses. Pill is set for
// EventPillProcessed and Result for EventRunFinished.
type Event struct {
	Kind      EventKind
	RunID     string
	Time      time.Time
	State     State
	Run       RunState
	Inventory inventory.Counts
	Pill      *Pill
	Result    *Result
}

// Observer receives run events. Observe is called synchronously from the
// control loop and must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}
