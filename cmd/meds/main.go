package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/samraisbeck/MEDS/internal/application"
	"github.com/samraisbeck/MEDS/internal/config"
	"github.com/samraisbeck/MEDS/internal/inventory"
	"github.com/samraisbeck/MEDS/internal/logging"
	"github.com/samraisbeck/MEDS/internal/schedule"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("meds", "M.E.D.S - sorts mixed pills into a weekly organizer")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file (defaults to ./.env when present)").String()
	schedulePath := kingpinApp.Flag("schedule", "Schedule file (text or YAML)").Short('s').String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn or error").String()

	runCmd := kingpinApp.Command("run", "Calibrate, sort every scheduled pill and eject the organizer").Default()
	driver := runCmd.Flag("driver", "Machine driver: sim or serial").Enum(config.DriverSim, config.DriverSerial)
	serialDevice := runCmd.Flag("serial-device", "Serial device of the machine controller").String()
	statusAddr := runCmd.Flag("status-addr", "Serve run status over HTTP on this address").String()
	simColors := runCmd.Flag("sim-colors", "Comma-separated feed script for the sim driver").String()
	noWait := runCmd.Flag("no-wait", "Do not wait for Enter after reporting").Bool()

	checkCmd := kingpinApp.Command("check", "Validate the schedule and print the pill grid")

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		NoWait:     *noWait,
	}
	setIfNotEmpty(&overrides.SchedulePath, *schedulePath)
	setIfNotEmpty(&overrides.LogLevel, *logLevel)
	setIfNotEmpty(&overrides.Driver, *driver)
	setIfNotEmpty(&overrides.SerialDevice, *serialDevice)
	setIfNotEmpty(&overrides.StatusAddr, *statusAddr)
	setIfNotEmpty(&overrides.SimColors, *simColors)

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if command == checkCmd.FullCommand() {
		if err := check(os.Stdout, cfg.SchedulePath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	code := run(cfg, logger)
	_ = logger.Sync()
	os.Exit(code)
}

func run(cfg config.Config, logger *zap.Logger) int {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to release hardware", zap.Error(err))
		}
	}()

	if err := app.Start(); err != nil {
		logger.Error("failed to start status server", zap.Error(err))
		return 1
	}

	res, err := app.Run()
	code := 0
	switch {
	case err != nil:
		logger.Error("run stopped", zap.Error(err))
		code = 1
	case res.Failed:
		code = 1
	}

	if server := app.Server(); server != nil {
		logger.Info("run finished; status server stays up until interrupted")
		shutdown(server, cfg.ShutdownGracePeriod, logger)
	}
	return code
}

// check prints the loaded grid, one row per color.
func check(w io.Writer, path string) error {
	grid, total, err := schedule.LoadFile(path)
	if err != nil {
		return fmt.Errorf("invalid schedule %s: %w", path, err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "COLOR")
	for _, day := range inventory.Days() {
		fmt.Fprintf(tw, "\t%s", day.String()[:3])
	}
	fmt.Fprintln(tw, "\tTOTAL")

	counts := grid.Snapshot()
	for _, color := range inventory.Colors() {
		fmt.Fprint(tw, color)
		rowTotal := 0
		for _, day := range inventory.Days() {
			fmt.Fprintf(tw, "\t%d", counts[color][day])
			rowTotal += counts[color][day]
		}
		fmt.Fprintf(tw, "\t%d\n", rowTotal)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%d pills scheduled\n", total)
	return err
}

func setIfNotEmpty(dst **string, value string) {
	if value != "" {
		*dst = &value
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down status server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
