package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/samraisbeck/MEDS/internal/config"
)

const testSchedule = `Colour Sun Mon Tue Wed Thu Fri Sat
red    1 0 0 0 0 0 2
yellow 0 0 0 0 0 0 0
green  0 3 0 0 0 0 0
`

func writeSchedule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medData.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return path
}

func TestCheckPrintsGrid(t *testing.T) {
	var out bytes.Buffer
	if err := check(&out, writeSchedule(t, testSchedule)); err != nil {
		t.Fatalf("check returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, three rows and a total, got %q", out.String())
	}
	if fields := strings.Fields(lines[0]); fields[0] != "COLOR" || fields[1] != "sun" || fields[8] != "TOTAL" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if fields := strings.Fields(lines[1]); fields[0] != "green" || fields[2] != "3" || fields[8] != "3" {
		t.Fatalf("unexpected green row %q", lines[1])
	}
	if fields := strings.Fields(lines[3]); fields[0] != "red" || fields[8] != "3" {
		t.Fatalf("unexpected red row %q", lines[3])
	}
	if lines[4] != "6 pills scheduled" {
		t.Fatalf("unexpected footer %q", lines[4])
	}
}

func TestCheckRejectsInvalidSchedule(t *testing.T) {
	var out bytes.Buffer
	path := writeSchedule(t, "Colour Sun Mon Tue Wed Thu Fri Sat\nred 1 0 0 0 0 0 0\n")
	if err := check(&out, path); err == nil {
		t.Fatalf("expected error for schedule with a missing section")
	}
}

func TestRunExitCodes(t *testing.T) {
	base := config.Config{
		SchedulePath: writeSchedule(t, testSchedule),
		Driver:       config.DriverSim,
		LogLevel:     "info",
	}

	t.Run("success", func(t *testing.T) {
		if code := run(base, zaptest.NewLogger(t)); code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})

	t.Run("too many unreadable pills", func(t *testing.T) {
		cfg := base
		cfg.Sim.Colors = []string{"unknown", "unknown", "unknown", "unknown", "unknown"}
		if code := run(cfg, zaptest.NewLogger(t)); code != 1 {
			t.Fatalf("expected exit code 1, got %d", code)
		}
	})

	t.Run("status address in use", func(t *testing.T) {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer busy.Close()

		cfg := base
		cfg.StatusAddr = busy.Addr().String()
		done := make(chan int, 1)
		go func() { done <- run(cfg, zaptest.NewLogger(t)) }()

		select {
		case code := <-done:
			if code != 1 {
				t.Fatalf("expected exit code 1, got %d", code)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("run blocked after the status server failed to bind")
		}
	})

	t.Run("bad schedule", func(t *testing.T) {
		cfg := base
		cfg.SchedulePath = filepath.Join(t.TempDir(), "missing.txt")
		if code := run(cfg, zaptest.NewLogger(t)); code != 1 {
			t.Fatalf("expected exit code 1, got %d", code)
		}
	})
}

func TestSetIfNotEmpty(t *testing.T) {
	var dst *string
	setIfNotEmpty(&dst, "")
	if dst != nil {
		t.Fatalf("expected empty value to leave destination nil")
	}
	setIfNotEmpty(&dst, "serial")
	if dst == nil || *dst != "serial" {
		t.Fatalf("expected destination to be set")
	}
}
