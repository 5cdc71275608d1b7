package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/dispatcher"
	"github.com/ascentops/autopilot/internal/flight"
	"github.com/ascentops/autopilot/internal/logging"
	"github.com/ascentops/autopilot/internal/metrics"
	"github.com/ascentops/autopilot/internal/monitor"
	intOtel "github.com/ascentops/autopilot/internal/otel"
	"github.com/ascentops/autopilot/internal/telemetry/krpc"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "ascent_autopilot"
)

var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// FlightContext carries the live flight attributes into every log record
	FlightContext *flight.Context = flight.NewContext()
)

func main() {
	configDir := pflag.String("config-dir", ".", "directory holding "+config.FileName)
	logLevel := pflag.String("log-level", "", "override logLevel from the config file")
	pflag.Parse()

	if err := run(*configDir, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(configDir, logLevel string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	SlogManager = logging.NewSlogManager(AppName)
	SlogManager.Setup(logging.Outputs{Console: os.Stderr, Level: logLevel})
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}
	if logLevel == "" {
		logLevel = config.GetString("logLevel")
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile := logging.NewRotatingFile(logFilePath)
	defer logFile.Close()

	shutdownOTel := setupOTel(logFile)
	defer shutdownOTel()

	outputs := logging.Outputs{
		File:    logFile,
		Level:   logLevel,
		Context: FlightContext.Attrs,
	}
	if OTelProvider != nil {
		outputs.Provider = OTelProvider.LoggerProvider()
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			defer w.Close()
			outputs.Graylog = w
		}
	}
	SlogManager.Setup(outputs)
	Logger = SlogManager.Logger()
	Logger.Info("Starting up...", "version", Version, "buildDate", BuildDate, "log", logFilePath)

	zl := logging.NewZerolog(logFile, logLevel, FlightContext.Attrs)
	events, err := dispatcher.New(logging.NewDispatcherLogger(zl))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	flightMetrics := metrics.New()
	stopMetrics := serveMetrics(config.GetMetricsConfig(), flightMetrics)
	defer stopMetrics()

	backend, err := initStorage(zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage", "error", err)
		}
	}()

	vessel, err := krpc.Connect(ctx, config.GetKRPCConfig(), Logger)
	if err != nil {
		return fmt.Errorf("connect to simulator: %w", err)
	}
	defer vessel.Close()

	cfg := flightConfig()
	if cfg.Flight.VesselName == "" {
		cfg.Flight.VesselName = vessel.Name()
	}

	driver, err := flight.New(cfg, flight.Deps{
		Vessel:     vessel,
		Backend:    backend,
		Console:    os.Stdout,
		Logger:     Logger,
		Metrics:    flightMetrics,
		Dispatcher: events,
		Context:    FlightContext,
	})
	if err != nil {
		return err
	}

	statusMonitor := monitor.NewService(monitor.Dependencies{
		Context: FlightContext,
		Samples: driver.Recorder().Len,
		Path:    filepath.Join(logsDir, "status.json"),
		Logger:  Logger,
	})
	if err := statusMonitor.Start(); err != nil {
		Logger.Warn("Status monitor not started", "error", err)
	}
	defer statusMonitor.Stop()

	runErr := driver.Run(ctx)
	if runErr != nil {
		Logger.Error("Flight aborted", "error", runErr, "phase", driver.Autopilot().Phase().String())
		// the log collected so far is still worth keeping
		_ = driver.Drain(context.WithoutCancel(ctx))
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Println("interrupted by user")
		return nil
	}
	return runErr
}

func flightConfig() flight.Config {
	return flight.Config{
		Flight:   config.GetFlightConfig(),
		Guidance: config.GetGuidanceConfig(),
		Staging:  config.GetStagingConfig(),
		Maneuver: config.GetManeuverConfig(),
		Recorder: config.GetRecorderConfig(),
		Console:  config.GetConsoleConfig(),
		Version:  Version,
	}
}

// setupOTel starts the OTel provider when enabled and returns its shutdown.
func setupOTel(logFile io.Writer) func() {
	otelCfg := config.GetOTelConfig()
	if !otelCfg.Enabled {
		return func() {}
	}

	var err error
	OTelProvider, err = intOtel.New(intOtel.FromSettings(otelCfg, logFile, logFile))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
		return func() {}
	}
	if otelCfg.Endpoint != "" {
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	} else {
		Logger.Info("OTel provider initialized")
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush logs", "error", err)
		}
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
}

// serveMetrics exposes the flight registry over HTTP when enabled.
func serveMetrics(cfg config.MetricsConfig, m *metrics.Flight) func() {
	if !cfg.Enabled {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("Metrics server stopped", "error", err)
		}
	}()
	Logger.Info("Serving metrics", "address", cfg.Address, "path", cfg.Path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
