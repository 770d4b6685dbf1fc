package application

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/samraisbeck/MEDS/internal/api"
	"github.com/samraisbeck/MEDS/internal/config"
	"github.com/samraisbeck/MEDS/internal/dispense"
	"github.com/samraisbeck/MEDS/internal/events"
	"github.com/samraisbeck/MEDS/internal/hardware"
	"github.com/samraisbeck/MEDS/internal/hardware/console"
	"github.com/samraisbeck/MEDS/internal/hardware/serial"
	"github.com/samraisbeck/MEDS/internal/hardware/sim"
	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/metrics"
	"github.com/samraisbeck/MEDS/internal/schedule"
	"github.com/samraisbeck/MEDS/internal/status"
)

// App encapsulates one dispense run and the surfaces observing it.
type App struct {
	grid       *inventory.Grid
	machine    hardware.Machine
	controller *dispense.Controller
	store      *status.MemoryStore
	registry   *prometheus.Registry
	publisher  *events.Publisher
	server     *http.Server
	logger     *zap.Logger

	closers []func() error
}

// Option customises how New builds the App.
type Option func(*options)

type options struct {
	machine hardware.Machine
	out     io.Writer
	in      io.Reader
	mqtt    events.Client
}

// WithMachine replaces the configured driver.
func WithMachine(m hardware.Machine) Option {
	return func(o *options) {
		o.machine = m
	}
}

// WithConsole sets the terminal the run result is reported on.
func WithConsole(out io.Writer, in io.Reader) Option {
	return func(o *options) {
		o.out = out
		o.in = in
	}
}

// WithMQTTClient publishes events on client instead of dialing the
// configured broker.
func WithMQTTClient(client events.Client) Option {
	return func(o *options) {
		o.mqtt = client
	}
}

// New loads the schedule and wires the machine driver, observers and the
// optional status server from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	grid, total, err := schedule.LoadFile(cfg.SchedulePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	logger.Info("schedule loaded",
		zap.String("path", cfg.SchedulePath),
		zap.Int("total_pills", total),
	)

	app := &App{
		grid:     grid,
		store:    status.NewMemoryStore(),
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	app.machine = o.machine
	if app.machine == nil {
		if app.machine, err = app.buildMachine(cfg); err != nil {
			return nil, err
		}
	}

	sink, err := metrics.NewPromSink(app.registry)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	observers := []dispense.Observer{app.store, sink}

	if o.mqtt != nil || cfg.MQTT.Broker != "" {
		mqttCfg := events.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         1,
		}
		client := o.mqtt
		if client == nil {
			if client, err = events.Connect(mqttCfg); err != nil {
				_ = app.Close()
				return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
			}
		}
		app.publisher = events.NewPublisher(client, mqttCfg, logger.Named("events"))
		app.closers = append(app.closers, func() error {
			app.publisher.Close()
			return nil
		})
		observers = append(observers, app.publisher)
	}

	reporter := console.New(o.out, o.in, cfg.WaitForAck)
	app.controller = dispense.New(grid, app.machine, reporter, logger.Named("dispense"),
		dispense.WithObserver(observers...),
	)

	if cfg.StatusAddr != "" {
		handler := api.NewHandler(app.store)
		apiRouter := api.NewRouter(handler, logger.Named("api"),
			api.WithLogging(cfg.EnableRequestLogging),
			api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
			api.WithMetrics(app.registry),
		)
		app.server = NewServer(cfg, BuildRootHandler(apiRouter))
	}

	return app, nil
}

func (a *App) buildMachine(cfg config.Config) (hardware.Machine, error) {
	switch cfg.Driver {
	case config.DriverSerial:
		scfg := serial.DefaultConfig(cfg.Serial.Device)
		scfg.Baud = cfg.Serial.Baud
		if cfg.Serial.ReadTimeout > 0 {
			scfg.ReadTimeout = cfg.Serial.ReadTimeout
		}
		if cfg.Serial.CommandTimeout > 0 {
			scfg.CommandTimeout = cfg.Serial.CommandTimeout
		}
		scfg.CalibrateTimeout = cfg.Serial.CalibrateTimeout

		port, err := serial.Open(scfg)
		if err != nil {
			return nil, err
		}
		machine := serial.New(port, scfg, a.logger.Named("serial"))
		a.closers = append(a.closers, machine.Close)
		return machine, nil

	case config.DriverSim, "":
		script := sim.ScriptFor(a.grid.Snapshot())
		if len(cfg.Sim.Colors) > 0 {
			var err error
			if script, err = sim.ParseScript(cfg.Sim.Colors); err != nil {
				return nil, err
			}
		}
		a.logger.Info("using simulated machine", zap.Int("script_length", len(script)))
		return sim.New(script, sim.WithDelay(cfg.Sim.Delay)), nil

	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// BuildRootHandler mounts the API router and sends the bare root to the
// status document.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/status", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.StatusAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the status server, if configured, and serves it in a
// goroutine. A bind failure is returned before any hardware moves. Server().Addr
// holds the bound address afterwards.
func (a *App) Start() error {
	if a.server == nil {
		return nil
	}
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind status server: %w", err)
	}
	a.server.Addr = ln.Addr().String()

	go func() {
		a.logger.Info("status server listening", zap.String("addr", a.server.Addr))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server error", zap.Error(err))
		}
	}()
	return nil
}

// Run performs the dispense run.
func (a *App) Run() (dispense.Result, error) {
	return a.controller.Run()
}

// Server returns the status server, or nil when it is disabled.
func (a *App) Server() *http.Server {
	return a.server
}

// Status returns the status store fed by the run.
func (a *App) Status() status.Store {
	return a.store
}

// Registry returns the Prometheus registry holding the run metrics.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Close releases the machine connection and the event publisher.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
