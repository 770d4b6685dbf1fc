package dispense

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samraisbeck/MEDS/internal/hardware"
	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/position"
	"github.com/samraisbeck/MEDS/internal/resolver"
)

// Option configures a Controller.
type Option func(*Controller)

// WithResolver overrides the slot resolver.
func WithResolver(r resolver.Resolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithObserver adds observers notified of every run event.
func WithObserver(observers ...Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, observers...)
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(c *Controller) {
		c.runID = id
	}
}

// Controller owns the inventory and run counters for a single run.
type Controller struct {
	grid     *inventory.Grid
	machine  hardware.Machine
	reporter hardware.Reporter
	resolver resolver.Resolver
	logger   *zap.Logger

	observers []Observer
	clock     func() time.Time
	runID     string

	started bool
	state   State
	run     RunState
	cycles  int
}

// New creates a Controller for grid. The grid must come from a successful
// load; it is mutated as pills are routed.
func New(grid *inventory.Grid, machine hardware.Machine, reporter hardware.Reporter, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		grid:     grid,
		machine:  machine,
		reporter: reporter,
		resolver: resolver.New(),
		logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	c.logger = c.logger.With(zap.String("run_id", c.runID))
	return c
}

// RunID identifies this run in logs and events.
func (c *Controller) RunID() string {
	return c.runID
}

// State returns the phase the controller is in.
func (c *Controller) State() State {
	return c.state
}

// RunState returns the current counters.
func (c *Controller) RunState() RunState {
	return c.run
}

// Run executes the whole cycle. A failed run caused by unclassifiable pills
// is a normal outcome reported through Result.Failed; an error is returned
// only when hardware stopped the run.
func (c *Controller) Run() (Result, error) {
	if c.started {
		return Result{}, ErrAlreadyRun
	}
	c.started = true

	c.enter(StateInit)
	c.run = RunState{TotalExpected: c.grid.Total()}
	c.cycles = 0
	res := Result{
		RunID:         c.runID,
		TotalExpected: c.run.TotalExpected,
		Started:       c.clock(),
	}
	c.logger.Info("run started", zap.Int("total_expected", c.run.TotalExpected))
	c.emit(Event{Kind: EventRunStarted})

	c.enter(StateCalibrating)
	if err := c.machine.Calibrate(); err != nil {
		return c.fail(res, err)
	}

	for !c.run.Done() {
		pill, err := c.cycle()
		if err != nil {
			return c.fail(res, err)
		}
		c.apply(pill)
	}

	c.enter(StateEject)
	if err := c.machine.EjectOrganizer(); err != nil {
		return c.fail(res, err)
	}

	res = c.summarise(res)
	c.enter(StateReport)
	if res.Failed {
		c.logger.Warn("run aborted",
			zap.Int("completed", res.Completed),
			zap.Int("total_expected", res.TotalExpected),
			zap.Int("consecutive_failures", res.ConsecutiveFailures),
		)
	} else {
		c.logger.Info("run completed",
			zap.Int("completed", res.Completed),
			zap.Int("cycles", res.Cycles),
		)
	}
	if err := c.reporter.Report(res.Failed); err != nil {
		return c.fail(res, err)
	}

	c.enter(StateTerminal)
	c.emit(Event{Kind: EventRunFinished, Result: &res})
	return res, nil
}

// cycle handles one pill from the holder to its drop point. The inventory
// decrement happens together with the routing decision.
func (c *Controller) cycle() (Pill, error) {
	c.cycles++
	pill := Pill{Seq: c.cycles}

	c.enter(StateFeed)
	if err := c.machine.FeedOnePill(); err != nil {
		return pill, err
	}

	c.enter(StateClassify)
	color, err := c.machine.ClassifyColor()
	if err != nil {
		return pill, err
	}
	pill.Color = color

	c.enter(StateRoute)
	decision := c.resolver.Resolve(color, c.grid)
	switch {
	case decision.Routed:
		pill.Outcome = OutcomeRouted
		pill.Day = decision.Day
		pill.Target = position.ForDay(decision.Day)
	case color.Valid():
		pill.Outcome = OutcomeExhausted
		pill.Target = position.Garbage()
	default:
		pill.Outcome = OutcomeUnclassified
		pill.Target = position.Garbage()
	}

	c.enter(StateMove)
	if err := c.drop(pill.Target); err != nil {
		return pill, err
	}
	return pill, nil
}

// drop moves to target, releases the pill and returns home.
func (c *Controller) drop(target position.Position) error {
	if err := c.machine.SeekTo(target); err != nil {
		return err
	}
	if err := c.machine.OpenAndCloseChute(); err != nil {
		return err
	}
	return c.machine.SeekTo(position.Home)
}

func (c *Controller) apply(pill Pill) {
	switch pill.Outcome {
	case OutcomeRouted:
		c.run.Completed++
		c.run.ConsecutiveFailures = 0
	case OutcomeExhausted:
		c.run.ConsecutiveFailures = 0
	case OutcomeUnclassified:
		c.run.ConsecutiveFailures++
	}

	fields := []zap.Field{
		zap.Int("pill", pill.Seq),
		zap.Stringer("color", pill.Color),
		zap.Stringer("outcome", pill.Outcome),
		zap.Float64("position", float64(pill.Target)),
		zap.Int("completed", c.run.Completed),
		zap.Int("consecutive_failures", c.run.ConsecutiveFailures),
	}
	if pill.Outcome == OutcomeRouted {
		fields = append(fields, zap.Stringer("day", pill.Day))
	}
	c.logger.Info("pill processed", fields...)
	c.emit(Event{Kind: EventPillProcessed, Pill: &pill})
}

func (c *Controller) summarise(res Result) Result {
	res.Completed = c.run.Completed
	res.ConsecutiveFailures = c.run.ConsecutiveFailures
	res.Cycles = c.cycles
	res.Failed = c.run.Aborted()
	res.Finished = c.clock()
	return res
}

func (c *Controller) fail(res Result, cause error) (Result, error) {
	state := c.state
	err := fmt.Errorf("%w during %s: %w", ErrHardware, state, cause)

	res = c.summarise(res)
	res.Failed = true
	res.Err = err
	c.logger.Error("run stopped by hardware failure", zap.Stringer("state", state), zap.Error(cause))

	c.enter(StateTerminal)
	c.emit(Event{Kind: EventRunFinished, Result: &res})
	return res, err
}

func (c *Controller) enter(s State) {
	c.state = s
	c.logger.Debug("state changed", zap.Stringer("state", s))
	c.emit(Event{Kind: EventStateChanged})
}

func (c *Controller) emit(e Event) {
	if len(c.observers) == 0 {
		return
	}
	e.RunID = c.runID
	e.Time = c.clock()
	e.State = c.state
	e.Run = c.run
	e.Inventory = c.grid.Snapshot()
	for _, o := range c.observers {
		o.Observe(e)
	}
}
