package serial

import (
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"

	"github.com/samraisbeck/MEDS/internal/hardware"
)

// Port is the byte stream to the machine controller. Read may return zero
// bytes when its read timeout expires.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered data
	Flush() error
}

// Config holds serial port and command timing configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC adapters ignore it
	Baud int

	// ReadTimeout bounds a single read so command deadlines can be checked
	ReadTimeout time.Duration

	// CommandTimeout bounds every command except calibrate
	CommandTimeout time.Duration

	// CalibrateTimeout bounds calibrate, which waits for the operator to seat
	// the organizer. Zero waits indefinitely.
	CalibrateTimeout time.Duration

	// Settle is the pause after feeding, seeking and chute actions
	Settle time.Duration
}

// DefaultConfig returns a default configuration for the given device.
func DefaultConfig(device string) Config {
	return Config{
		Device:           device,
		Baud:             115200,
		ReadTimeout:      100 * time.Millisecond,
		CommandTimeout:   30 * time.Second,
		CalibrateTimeout: 0,
		Settle:           hardware.SettleDelay,
	}
}

type nativePort struct {
	port *tarm.Port
}

// Open opens a native serial port.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial device cannot be empty")
	}

	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &nativePort{port: port}, nil
}

func (p *nativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *nativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *nativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

func (p *nativePort) Flush() error {
	return p.port.Flush()
}
