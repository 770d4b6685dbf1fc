// Package serial drives the machine controller over a serial line. The
// controller firmware owns the motors and sensors; this side sends one
// newline-terminated command at a time and waits for its reply:
//
//	-> feed 358
//	<- ok
//	-> seek -46.98
//	<- ok
//	-> color
//	<- ok 5
//	<- err "chute jammed"
//
// Lines starting with '#' are firmware chatter and are skipped.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/samraisbeck/MEDS/internal/hardware"
	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/position"
)

// idleBackoff is the pause after a read that returned no data.
const idleBackoff = 10 * time.Millisecond

var (
	// ErrCommandFailed is returned when the controller answers with err.
	ErrCommandFailed = errors.New("controller rejected command")
	// ErrBadReply is returned when a reply cannot be understood.
	ErrBadReply = errors.New("malformed controller reply")
)

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithSleep overrides the settle and idle-read sleep, primarily for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(m *Machine) {
		m.sleep = sleep
	}
}

// Machine implements hardware.Machine on top of a Port.
type Machine struct {
	mu     sync.Mutex
	port   Port
	cfg    Config
	logger *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)

	pending []byte
}

var _ hardware.Machine = (*Machine)(nil)

// New creates a Machine talking over port.
func New(port Port, cfg Config, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		port:   port,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Calibrate() error {
	if err := m.port.Flush(); err != nil {
		return fmt.Errorf("flush port: %w", err)
	}
	if _, err := m.exec(m.cfg.CalibrateTimeout, "calibrate"); err != nil {
		return err
	}
	m.settle()
	return nil
}

func (m *Machine) FeedOnePill() error {
	span := strconv.Itoa(position.FullRotation)
	if _, err := m.exec(m.cfg.CommandTimeout, "feed", span); err != nil {
		return err
	}
	m.settle()
	return nil
}

func (m *Machine) ClassifyColor() (inventory.Color, error) {
	args, err := m.exec(m.cfg.CommandTimeout+hardware.ColorWindow, "color")
	if err != nil {
		return inventory.Unknown, err
	}
	if len(args) != 1 {
		return inventory.Unknown, fmt.Errorf("%w: color reply has %d values", ErrBadReply, len(args))
	}
	class, err := strconv.Atoi(args[0])
	if err != nil {
		return inventory.Unknown, fmt.Errorf("%w: color class %q", ErrBadReply, args[0])
	}
	return hardware.ColorFromClass(class), nil
}

func (m *Machine) SeekTo(target position.Position) error {
	arg := strconv.FormatFloat(float64(target), 'f', 2, 64)
	if _, err := m.exec(m.cfg.CommandTimeout, "seek", arg); err != nil {
		return err
	}
	m.settle()
	return nil
}

func (m *Machine) OpenAndCloseChute() error {
	if _, err := m.exec(m.cfg.CommandTimeout, "chute"); err != nil {
		return err
	}
	m.settle()
	return nil
}

func (m *Machine) EjectOrganizer() error {
	_, err := m.exec(m.cfg.CommandTimeout, "eject")
	return err
}

// Close releases the port.
func (m *Machine) Close() error {
	return m.port.Close()
}

// exec sends one command and returns the values following "ok".
func (m *Machine) exec(timeout time.Duration, name string, args ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	line := strings.Join(append([]string{name}, args...), " ")
	if _, err := m.port.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	m.logger.Debug("command sent", zap.String("command", line))

	var deadline time.Time
	if timeout > 0 {
		deadline = m.now().Add(timeout)
	}

	for {
		raw, err := m.readLine(deadline)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fields, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", name, ErrBadReply, err)
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "ok":
			return fields[1:], nil
		case "err":
			return nil, fmt.Errorf("%s: %w: %s", name, ErrCommandFailed, strings.Join(fields[1:], " "))
		default:
			return nil, fmt.Errorf("%s: %w: %q", name, ErrBadReply, raw)
		}
	}
}

func (m *Machine) readLine(deadline time.Time) (string, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(m.pending, '\n'); i >= 0 {
			line := string(bytes.TrimRight(m.pending[:i], "\r"))
			m.pending = m.pending[i+1:]
			return line, nil
		}

		n, err := m.port.Read(buf)
		if n > 0 {
			m.pending = append(m.pending, buf[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read: %w", err)
		}
		if !deadline.IsZero() && m.now().After(deadline) {
			return "", hardware.ErrTimeout
		}
		m.sleep(idleBackoff)
	}
}

func (m *Machine) settle() {
	if m.cfg.Settle > 0 {
		m.sleep(m.cfg.Settle)
	}
}
