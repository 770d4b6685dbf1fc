package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSim    = "sim"
	DriverSerial = "serial"

	defaultScheduleFile   = "medData.txt"
	defaultSerialBaud     = 115200
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables (.env included) > Defaults
type Config struct {
	SchedulePath string
	Driver       string
	LogLevel     string
	WaitForAck   bool

	Serial SerialConfig
	Sim    SimConfig
	MQTT   MQTTConfig

	// StatusAddr enables the HTTP status surface when non-empty.
	StatusAddr           string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// SerialConfig configures the serial machine driver.
type SerialConfig struct {
	Device           string
	Baud             int
	ReadTimeout      time.Duration
	CommandTimeout   time.Duration
	CalibrateTimeout time.Duration
}

// SimConfig configures the simulated machine.
type SimConfig struct {
	// Colors is the feed script. Empty means "exactly the scheduled pills".
	Colors []string
	Delay  time.Duration
}

// MQTTConfig configures event publishing. An empty broker disables it.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Schedule   string     `yaml:"schedule"`
	Driver     string     `yaml:"driver"`
	LogLevel   string     `yaml:"log_level"`
	WaitForAck *bool      `yaml:"wait_for_ack"`
	Serial     yamlSerial `yaml:"serial"`
	Sim        yamlSim    `yaml:"sim"`
	MQTT       yamlMQTT   `yaml:"mqtt"`
	Status     yamlStatus `yaml:"status"`
}

type yamlSerial struct {
	Device           string `yaml:"device"`
	Baud             int    `yaml:"baud"`
	ReadTimeout      string `yaml:"read_timeout"`
	CommandTimeout   string `yaml:"command_timeout"`
	CalibrateTimeout string `yaml:"calibrate_timeout"`
}

type yamlSim struct {
	Colors []string `yaml:"colors"`
	Delay  string   `yaml:"delay"`
}

type yamlMQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// yamlStatus represents the status server section in YAML.
type yamlStatus struct {
	Addr                 string        `yaml:"addr"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile   string
	EnvFile      string
	SchedulePath *string
	Driver       *string
	SerialDevice *string
	StatusAddr   *string
	LogLevel     *string
	SimColors    *string
	NoWait       bool
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load .env before anything reads the environment; existing variables win
	envFile := ""
	if overrides != nil {
		envFile = overrides.EnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Apply environment variables
	applyEnvConfig(&cfg)

	// Load from YAML file if specified (overrides env)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		SchedulePath: defaultScheduleFile,
		Driver:       DriverSim,
		LogLevel:     "info",
		WaitForAck:   true,
		Serial: SerialConfig{
			Baud:           defaultSerialBaud,
			ReadTimeout:    100 * time.Millisecond,
			CommandTimeout: 30 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:    "meds",
			TopicPrefix: "meds",
		},
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadEnvFile loads variables from path, or from ./.env when path is empty
// and the file exists.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.SchedulePath, yamlCfg.Schedule)
	setString(&cfg.Driver, yamlCfg.Driver)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	if yamlCfg.WaitForAck != nil {
		cfg.WaitForAck = *yamlCfg.WaitForAck
	}

	setString(&cfg.Serial.Device, yamlCfg.Serial.Device)
	if yamlCfg.Serial.Baud > 0 {
		cfg.Serial.Baud = yamlCfg.Serial.Baud
	}

	if len(yamlCfg.Sim.Colors) > 0 {
		cfg.Sim.Colors = yamlCfg.Sim.Colors
	}

	setString(&cfg.MQTT.Broker, yamlCfg.MQTT.Broker)
	setString(&cfg.MQTT.ClientID, yamlCfg.MQTT.ClientID)
	setString(&cfg.MQTT.TopicPrefix, yamlCfg.MQTT.TopicPrefix)

	setString(&cfg.StatusAddr, yamlCfg.Status.Addr)
	if yamlCfg.Status.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.Status.EnableRequestLogging
	}
	if rps := yamlCfg.Status.RateLimit.RPS; rps != nil && *rps >= 0 {
		cfg.RateLimitRPS = *rps
	}
	if burst := yamlCfg.Status.RateLimit.Burst; burst != nil && *burst >= 0 {
		cfg.RateLimitBurst = *burst
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"serial.read_timeout", yamlCfg.Serial.ReadTimeout, &cfg.Serial.ReadTimeout},
		{"serial.command_timeout", yamlCfg.Serial.CommandTimeout, &cfg.Serial.CommandTimeout},
		{"serial.calibrate_timeout", yamlCfg.Serial.CalibrateTimeout, &cfg.Serial.CalibrateTimeout},
		{"sim.delay", yamlCfg.Sim.Delay, &cfg.Sim.Delay},
		{"status.shutdown_grace_period", yamlCfg.Status.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"status.read_header_timeout", yamlCfg.Status.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"status.write_timeout", yamlCfg.Status.WriteTimeout, &cfg.WriteTimeout},
		{"status.idle_timeout", yamlCfg.Status.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = value
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	setString(&cfg.SchedulePath, env("MEDS_SCHEDULE"))
	setString(&cfg.Driver, env("MEDS_DRIVER"))
	setString(&cfg.LogLevel, env("MEDS_LOG_LEVEL"))
	setString(&cfg.Serial.Device, env("MEDS_SERIAL_DEVICE"))
	setString(&cfg.StatusAddr, env("MEDS_STATUS_ADDR"))
	setString(&cfg.MQTT.Broker, env("MEDS_MQTT_BROKER"))
	setString(&cfg.MQTT.TopicPrefix, env("MEDS_MQTT_TOPIC_PREFIX"))

	if raw := env("MEDS_SERIAL_BAUD"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Serial.Baud = value
		}
	}

	if raw := env("MEDS_SIM_COLORS"); raw != "" {
		cfg.Sim.Colors = splitList(raw)
	}

	if raw := env("MEDS_WAIT_FOR_ACK"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.WaitForAck = value
		}
	}

	if rps := env("MEDS_RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("MEDS_RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.SchedulePath != nil {
		setString(&cfg.SchedulePath, *overrides.SchedulePath)
	}
	if overrides.Driver != nil {
		setString(&cfg.Driver, *overrides.Driver)
	}
	if overrides.SerialDevice != nil {
		setString(&cfg.Serial.Device, *overrides.SerialDevice)
	}
	if overrides.StatusAddr != nil {
		setString(&cfg.StatusAddr, *overrides.StatusAddr)
	}
	if overrides.LogLevel != nil {
		setString(&cfg.LogLevel, *overrides.LogLevel)
	}
	if overrides.SimColors != nil && strings.TrimSpace(*overrides.SimColors) != "" {
		colors := splitList(*overrides.SimColors)
		if len(colors) == 0 {
			return fmt.Errorf("parse sim colors: no colors provided")
		}
		cfg.Sim.Colors = colors
	}
	if overrides.NoWait {
		cfg.WaitForAck = false
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SchedulePath) == "" {
		return fmt.Errorf("schedule path cannot be empty")
	}
	switch cfg.Driver {
	case DriverSim:
	case DriverSerial:
		if cfg.Serial.Device == "" {
			return fmt.Errorf("serial driver requires a device (MEDS_SERIAL_DEVICE)")
		}
		if cfg.Serial.Baud <= 0 {
			return fmt.Errorf("serial baud must be positive")
		}
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", cfg.Driver, DriverSim, DriverSerial)
	}
	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("MEDS_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("MEDS_RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.Sim.Delay < 0 {
		return fmt.Errorf("sim delay must be >= 0")
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
