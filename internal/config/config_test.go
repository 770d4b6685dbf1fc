package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEDS_SCHEDULE", "MEDS_DRIVER", "MEDS_LOG_LEVEL", "MEDS_SERIAL_DEVICE",
		"MEDS_SERIAL_BAUD", "MEDS_STATUS_ADDR", "MEDS_MQTT_BROKER", "MEDS_MQTT_TOPIC_PREFIX",
		"MEDS_SIM_COLORS", "MEDS_WAIT_FOR_ACK", "MEDS_RATE_LIMIT_RPS", "MEDS_RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SchedulePath != defaultScheduleFile {
		t.Fatalf("expected default schedule %s, got %s", defaultScheduleFile, cfg.SchedulePath)
	}
	if cfg.Driver != DriverSim {
		t.Fatalf("expected sim driver, got %s", cfg.Driver)
	}
	if !cfg.WaitForAck {
		t.Fatalf("expected acknowledgement wait by default")
	}
	if cfg.StatusAddr != "" {
		t.Fatalf("expected status server to be disabled, got %q", cfg.StatusAddr)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDS_SCHEDULE", "/data/week.txt")
	t.Setenv("MEDS_DRIVER", "serial")
	t.Setenv("MEDS_SERIAL_DEVICE", "/dev/ttyACM0")
	t.Setenv("MEDS_SERIAL_BAUD", "57600")
	t.Setenv("MEDS_SIM_COLORS", "red, green ,")
	t.Setenv("MEDS_WAIT_FOR_ACK", "false")

	cfg, err := Load(&CLIOverrides{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SchedulePath != "/data/week.txt" || cfg.Driver != DriverSerial {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Serial.Device != "/dev/ttyACM0" || cfg.Serial.Baud != 57600 {
		t.Fatalf("unexpected serial config: %+v", cfg.Serial)
	}
	if want := []string{"red", "green"}; !slices.Equal(cfg.Sim.Colors, want) {
		t.Fatalf("expected sim colors %v, got %v", want, cfg.Sim.Colors)
	}
	if cfg.WaitForAck {
		t.Fatalf("expected acknowledgement wait to be disabled")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDS_SCHEDULE", "env.txt")
	t.Setenv("MEDS_LOG_LEVEL", "warn")

	path := writeFile(t, "meds.yaml", `
schedule: yaml.txt
log_level: debug
wait_for_ack: false
sim:
  colors: [green, yellow]
  delay: 50ms
mqtt:
  broker: tcp://localhost:1883
status:
  addr: ":9100"
  write_timeout: 2s
  rate_limit:
    rps: 0
`)

	schedule := "cli.txt"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, SchedulePath: &schedule})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SchedulePath != "cli.txt" {
		t.Fatalf("expected CLI schedule to win, got %s", cfg.SchedulePath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected YAML log level to beat env, got %s", cfg.LogLevel)
	}
	if cfg.WaitForAck {
		t.Fatalf("expected YAML to disable acknowledgement wait")
	}
	if cfg.Sim.Delay != 50*time.Millisecond || len(cfg.Sim.Colors) != 2 {
		t.Fatalf("unexpected sim config: %+v", cfg.Sim)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.TopicPrefix != "meds" {
		t.Fatalf("unexpected MQTT config: %+v", cfg.MQTT)
	}
	if cfg.StatusAddr != ":9100" || cfg.WriteTimeout != 2*time.Second {
		t.Fatalf("unexpected status config: %+v", cfg)
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("MEDS_STATUS_ADDR")

	path := writeFile(t, "meds.env", "MEDS_STATUS_ADDR=127.0.0.1:9200\n")
	cfg, err := Load(&CLIOverrides{EnvFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StatusAddr != "127.0.0.1:9200" {
		t.Fatalf("expected status address from env file, got %q", cfg.StatusAddr)
	}

	if _, err := Load(&CLIOverrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name      string
		overrides CLIOverrides
		env       map[string]string
	}{
		{name: "UnknownDriver", env: map[string]string{"MEDS_DRIVER": "usb"}},
		{name: "SerialWithoutDevice", env: map[string]string{"MEDS_DRIVER": "serial"}},
		{name: "UnknownLogLevel", env: map[string]string{"MEDS_LOG_LEVEL": "loud"}},
		{name: "BlankSimColors", overrides: CLIOverrides{SimColors: ptr(" , ,")}},
		{name: "MissingConfigFile", overrides: CLIOverrides{ConfigFile: "/definitely/not/here.yaml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			overrides := tc.overrides
			if _, err := Load(&overrides); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRejectsBadYAMLDuration(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "meds.yaml", "serial:\n  command_timeout: soon\n")
	if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(" a, ,b,"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("unexpected list: %v", got)
	}
	if got := splitList(" , "); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func ptr[T any](v T) *T {
	return &v
}
