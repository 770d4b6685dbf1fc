package status

import (
	"sync"
	"time"

	"github.com/samraisbeck/MEDS/internal/dispense"
	"github.com/samraisbeck/MEDS/internal/inventory"
)

// Snapshot is the externally visible state of the current or last run.
type Snapshot struct {
	RunID               string                    `json:"runId,omitempty"`
	State               string                    `json:"state"`
	Running             bool                      `json:"running"`
	Completed           int                       `json:"completed"`
	TotalExpected       int                       `json:"totalExpected"`
	ConsecutiveFailures int                       `json:"consecutiveFailures"`
	Remaining           map[string]map[string]int `json:"remaining,omitempty"`
	LastPill            *PillView                 `json:"lastPill,omitempty"`
	Outcome             string                    `json:"outcome,omitempty"`
	Error               string                    `json:"error,omitempty"`
	StartedAt           time.Time                 `json:"startedAt,omitzero"`
	UpdatedAt           time.Time                 `json:"updatedAt,omitzero"`
}

// PillView describes the most recently processed pill.
type PillView struct {
	Seq      int     `json:"seq"`
	Color    string  `json:"color"`
	Outcome  string  `json:"outcome"`
	Day      string  `json:"day,omitempty"`
	Position float64 `json:"position"`
}

// Store provides read access to run status.
type Store interface {
	Snapshot() Snapshot
}

// MemoryStore keeps the latest snapshot in memory and guards access with a
// RWMutex. It is fed by controller events and read by HTTP handlers.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

var _ dispense.Observer = (*MemoryStore)(nil)

// NewMemoryStore creates a store reporting an idle machine.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshot: Snapshot{State: "idle"},
	}
}

// Snapshot returns a copy of the current status.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSnapshot(s.snapshot)
}

// Observe folds a controller event into the snapshot.
func (s *MemoryStore) Observe(e dispense.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &s.snapshot
	if e.Kind == dispense.EventRunStarted {
		*snap = Snapshot{RunID: e.RunID, StartedAt: e.Time}
	}

	snap.RunID = e.RunID
	snap.State = e.State.String()
	snap.Running = true
	snap.Completed = e.Run.Completed
	snap.TotalExpected = e.Run.TotalExpected
	snap.ConsecutiveFailures = e.Run.ConsecutiveFailures
	snap.Remaining = remainingView(e.Inventory)
	snap.UpdatedAt = e.Time

	if e.Pill != nil {
		view := &PillView{
			Seq:      e.Pill.Seq,
			Color:    e.Pill.Color.String(),
			Outcome:  e.Pill.Outcome.String(),
			Position: float64(e.Pill.Target),
		}
		if e.Pill.Outcome == dispense.OutcomeRouted {
			view.Day = e.Pill.Day.String()
		}
		snap.LastPill = view
	}

	if e.Result != nil {
		snap.Running = false
		snap.Outcome = "success"
		if e.Result.Failed {
			snap.Outcome = "failure"
		}
		if e.Result.Err != nil {
			snap.Error = e.Result.Err.Error()
		}
	}
}

func remainingView(counts inventory.Counts) map[string]map[string]int {
	out := make(map[string]map[string]int, inventory.NumColors)
	for _, color := range inventory.Colors() {
		row := make(map[string]int, inventory.NumDays)
		for _, day := range inventory.Days() {
			row[day.String()] = counts[color][day]
		}
		out[color.String()] = row
	}
	return out
}

func cloneSnapshot(src Snapshot) Snapshot {
	out := src
	if src.Remaining != nil {
		out.Remaining = make(map[string]map[string]int, len(src.Remaining))
		for color, row := range src.Remaining {
			copied := make(map[string]int, len(row))
			for day, n := range row {
				copied[day] = n
			}
			out.Remaining[color] = copied
		}
	}
	if src.LastPill != nil {
		pill := *src.LastPill
		out.LastPill = &pill
	}
	return out
}
