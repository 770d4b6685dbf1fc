// Package sim provides an in-memory machine that follows a scripted sequence
// of pill colors. It backs the sim driver and the controller tests.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samraisbeck/MEDS/internal/hardware"
	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/position"
)

// ErrNotCalibrated is returned when motion is requested before Calibrate.
var ErrNotCalibrated = errors.New("sim: machine is not calibrated")

// ActionKind names a capability call.
type ActionKind string

const (
	ActionCalibrate ActionKind = "calibrate"
	ActionFeed      ActionKind = "feed"
	ActionClassify  ActionKind = "classify"
	ActionSeek      ActionKind = "seek"
	ActionChute     ActionKind = "chute"
	ActionEject     ActionKind = "eject"
)

// Action records one capability call and the position after it completed.
type Action struct {
	Kind     ActionKind
	Position position.Position
	Color    inventory.Color
}

// Drop records a pill leaving the sensor well.
type Drop struct {
	Position position.Position
	Color    inventory.Color
}

// Option configures a Machine.
type Option func(*Machine)

// WithDelay makes every settle pause take d. The default is no delay.
func WithDelay(d time.Duration) Option {
	return func(m *Machine) {
		m.delay = d
	}
}

// WithSleep overrides the sleep function, primarily for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(m *Machine) {
		m.sleep = sleep
	}
}

// WithFault makes every call of kind fail with err.
func WithFault(kind ActionKind, err error) Option {
	return func(m *Machine) {
		m.faults[kind] = err
	}
}

// Machine simulates the organizer drive, pill feeder, sensor and chute. Once
// the script runs out the sensor well stays empty and reads Unknown.
type Machine struct {
	mu sync.Mutex

	script []inventory.Color
	next   int

	delay time.Duration
	sleep func(time.Duration)

	calibrated bool
	position   position.Position
	loaded     bool
	current    inventory.Color

	faults  map[ActionKind]error
	actions []Action
	drops   []Drop
}

var _ hardware.Machine = (*Machine)(nil)

// New creates a Machine that will feed pills of the given colors in order.
func New(script []inventory.Color, opts ...Option) *Machine {
	m := &Machine{
		script:  append([]inventory.Color(nil), script...),
		sleep:   time.Sleep,
		faults:  make(map[ActionKind]error),
		current: inventory.Unknown,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Calibrate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionCalibrate); err != nil {
		return err
	}
	m.calibrated = true
	m.position = position.Home
	m.record(ActionCalibrate, inventory.Unknown)
	m.settle()
	return nil
}

func (m *Machine) FeedOnePill() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionFeed); err != nil {
		return err
	}
	m.current = inventory.Unknown
	m.loaded = false
	if m.next < len(m.script) {
		m.current = m.script[m.next]
		m.loaded = true
		m.next++
	}
	m.record(ActionFeed, m.current)
	m.settle()
	return nil
}

func (m *Machine) ClassifyColor() (inventory.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionClassify); err != nil {
		return inventory.Unknown, err
	}
	color := hardware.ColorFromClass(hardware.ClassFromColor(m.current))
	m.record(ActionClassify, color)
	return color, nil
}

func (m *Machine) SeekTo(target position.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionSeek); err != nil {
		return err
	}
	if !m.calibrated {
		return ErrNotCalibrated
	}
	m.position = target
	m.record(ActionSeek, inventory.Unknown)
	m.settle()
	return nil
}

func (m *Machine) OpenAndCloseChute() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionChute); err != nil {
		return err
	}
	if !m.calibrated {
		return ErrNotCalibrated
	}
	if m.loaded {
		m.drops = append(m.drops, Drop{Position: m.position, Color: m.current})
	}
	m.loaded = false
	m.record(ActionChute, m.current)
	m.settle()
	return nil
}

func (m *Machine) EjectOrganizer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(ActionEject); err != nil {
		return err
	}
	if !m.calibrated {
		return ErrNotCalibrated
	}
	m.position = position.Eject()
	m.record(ActionEject, inventory.Unknown)
	return nil
}

// Position returns the current organizer position.
func (m *Machine) Position() position.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Actions returns a copy of every recorded call.
func (m *Machine) Actions() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Action(nil), m.actions...)
}

// Drops returns a copy of every pill dropped so far.
func (m *Machine) Drops() []Drop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Drop(nil), m.drops...)
}

// Fed is the number of scripted pills consumed.
func (m *Machine) Fed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

func (m *Machine) fault(kind ActionKind) error {
	if err := m.faults[kind]; err != nil {
		return fmt.Errorf("sim %s: %w", kind, err)
	}
	return nil
}

func (m *Machine) record(kind ActionKind, color inventory.Color) {
	m.actions = append(m.actions, Action{Kind: kind, Position: m.position, Color: color})
}

func (m *Machine) settle() {
	if m.delay > 0 {
		m.sleep(m.delay)
	}
}
