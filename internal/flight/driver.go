// Package flight wires the ascent components into one flight and drives them
// tick by tick.
package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ascentops/autopilot/internal/ascent"
	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/console"
	"github.com/ascentops/autopilot/internal/dispatcher"
	"github.com/ascentops/autopilot/internal/flightlog"
	"github.com/ascentops/autopilot/internal/maneuver"
	"github.com/ascentops/autopilot/internal/metrics"
	"github.com/ascentops/autopilot/internal/staging"
	"github.com/ascentops/autopilot/internal/storage"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("flight already started")
	// ErrNotStarted is returned by Tick before Start.
	ErrNotStarted = errors.New("flight not started")
)

// Config gathers the settings of every component of a flight.
type Config struct {
	Flight   config.FlightConfig
	Guidance config.GuidanceConfig
	Staging  config.StagingConfig
	Maneuver config.ManeuverConfig
	Recorder config.RecorderConfig
	Console  config.ConsoleConfig
	Version  string
}

// DefaultConfig returns the stock flight settings.
func DefaultConfig() Config {
	return Config{
		Flight:   config.FlightConfig{TickInterval: 50 * time.Millisecond},
		Guidance: config.DefaultGuidanceConfig(),
		Staging:  config.DefaultStagingConfig(),
		Maneuver: config.DefaultManeuverConfig(),
		Recorder: config.DefaultRecorderConfig(),
		Console:  config.ConsoleConfig{Interval: 500 * time.Millisecond},
	}
}

// Deps are the collaborators of a Driver. Vessel and Backend are required.
type Deps struct {
	Vessel     telemetry.Vessel
	Backend    storage.Backend
	Clock      clock.Clock
	Console    io.Writer
	Logger     *slog.Logger
	Metrics    *metrics.Flight
	Dispatcher *dispatcher.Dispatcher
	Context    *Context
}

// Driver owns one flight: the autopilot, the staging monitor, the flight log
// recorder and the storage backend.
type Driver struct {
	cfg     Config
	vessel  telemetry.Vessel
	backend storage.Backend
	clock   clock.Clock
	printer *console.Printer
	logger  *slog.Logger
	metrics *metrics.Flight
	events  *dispatcher.Dispatcher
	fctx    *Context

	autopilot *ascent.Autopilot
	monitor   *staging.Monitor
	recorder  *flightlog.Recorder

	flight  *core.Flight
	started bool
	drained bool
	ticks   int
}

// New builds a Driver and registers its event handlers.
func New(cfg Config, deps Deps) (*Driver, error) {
	if deps.Vessel == nil {
		return nil, errors.New("flight: vessel is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("flight: storage backend is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Context == nil {
		deps.Context = NewContext()
	}
	if deps.Dispatcher == nil {
		d, err := dispatcher.New(deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("create dispatcher: %w", err)
		}
		deps.Dispatcher = d
	}

	d := &Driver{
		cfg:     cfg,
		vessel:  deps.Vessel,
		backend: deps.Backend,
		clock:   deps.Clock,
		printer: console.NewPrinter(deps.Console, cfg.Console.Interval),
		logger:  deps.Logger.With("component", "flight"),
		metrics: deps.Metrics,
		events:  deps.Dispatcher,
		fctx:    deps.Context,
	}

	circ := maneuver.New(d.vessel, d.clock, cfg.Maneuver, d.printer, deps.Logger, d.events)
	d.recorder = flightlog.NewRecorder(d.vessel, d.clock, cfg.Recorder, deps.Logger)
	d.monitor = staging.NewMonitor(d.vessel, d.clock, cfg.Staging, deps.Logger, d.events)
	d.autopilot = ascent.New(cfg.Guidance, ascent.Deps{
		Actuator:     d.vessel,
		Circularizer: circ,
		Drainer:      d,
		Clock:        d.clock,
		Console:      d.printer,
		Logger:       deps.Logger,
		Events:       d.events,
	})

	d.registerHandlers()
	return d, nil
}

func (d *Driver) registerHandlers() {
	d.events.Register(core.EventStaging, func(e core.FlightEvent) error {
		d.printer.Println("%s", e.Message)
		return nil
	}, dispatcher.Named("console"))

	for _, kind := range []string{core.EventPhase, core.EventStaging, core.EventManeuver} {
		if d.metrics != nil {
			d.events.Register(kind, d.metrics.CountEvent, dispatcher.Named("metrics"))
		}
		d.events.Register(kind, func(e core.FlightEvent) error {
			return d.backend.RecordEvent(&e)
		}, dispatcher.Named("storage"), dispatcher.Logged())
	}
}

// Autopilot returns the ascent state machine.
func (d *Driver) Autopilot() *ascent.Autopilot { return d.autopilot }

// Monitor returns the staging monitor.
func (d *Driver) Monitor() *staging.Monitor { return d.monitor }

// Recorder returns the flight log recorder.
func (d *Driver) Recorder() *flightlog.Recorder { return d.recorder }

// Flight returns the flight registered by Start, nil before.
func (d *Driver) Flight() *core.Flight { return d.flight }

// Ticks returns how many snapshots have been evaluated.
func (d *Driver) Ticks() int { return d.ticks }

// Start registers the flight with storage and ignites the engines.
// A storage failure is logged; the flight goes on without it.
func (d *Driver) Start(ctx context.Context) error {
	if d.started {
		return ErrAlreadyStarted
	}

	d.flight = &core.Flight{
		FlightID:   uuid.NewString(),
		VesselName: d.cfg.Flight.VesselName,
		StartTime:  d.clock.Now(),
		Version:    d.cfg.Version,
		Params: map[string]float64{
			"turnStartSpeed":    d.cfg.Guidance.TurnStartSpeed,
			"pitchHoldAltitude": d.cfg.Guidance.PitchHoldAltitude,
			"pitchHoldSpeed":    d.cfg.Guidance.PitchHoldSpeed,
			"pitchHoldTarget":   d.cfg.Guidance.PitchHoldTarget,
			"startAltitude":     d.cfg.Guidance.Profile.StartAltitude,
			"endAltitude":       d.cfg.Guidance.Profile.EndAltitude,
			"startPitch":        d.cfg.Guidance.Profile.StartPitch,
			"endPitch":          d.cfg.Guidance.Profile.EndPitch,
		},
	}
	if err := d.backend.StartFlight(d.flight); err != nil {
		d.logger.Error("failed to register flight with storage", "error", err)
	}
	d.fctx.SetFlight(d.flight)
	d.fctx.Update(d.autopilot.Phase().String(), d.monitor.Level().String(), 0)

	if err := d.autopilot.Ignite(ctx); err != nil {
		return err
	}
	d.started = true
	d.logger.Info("flight started", "flightId", d.flight.FlightID)
	d.printer.Println("=== data collection started ===")
	d.printer.Println("sampling every %s as [time, x, y, altitude, speed]", d.cfg.Recorder.Interval)
	return nil
}

// Tick evaluates one snapshot: sample, guide, then check staging. A telemetry
// gap skips the tick; boundary loss and actuator failures are returned.
func (d *Driver) Tick(ctx context.Context) error {
	if !d.started {
		return ErrNotStarted
	}
	if d.autopilot.Done() {
		return nil
	}

	state, err := d.vessel.Snapshot(ctx)
	if err != nil {
		if telemetry.IsGap(err) {
			if d.metrics != nil {
				d.metrics.TelemetryGaps.Inc()
			}
			d.logger.Warn("skipping tick", "error", err)
			return nil
		}
		return fmt.Errorf("snapshot: %w", err)
	}
	d.ticks++

	if _, err := d.recorder.Poll(ctx, state); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	if err := d.autopilot.Tick(ctx, state); err != nil {
		return err
	}
	if !d.autopilot.Done() {
		if _, err := d.monitor.Check(ctx, state); err != nil {
			return fmt.Errorf("staging: %w", err)
		}
	}

	d.observe(state)
	return nil
}

func (d *Driver) observe(state core.VehicleState) {
	phase, level := d.autopilot.Phase(), d.monitor.Level()
	d.fctx.Update(phase.String(), level.String(), state.MET)

	if d.metrics == nil {
		return
	}
	d.metrics.Ticks.Inc()
	d.metrics.Observe(state)
	d.metrics.Phase.Set(float64(phase))
	d.metrics.StagingLevel.Set(float64(level))
	d.metrics.PitchAuthority.Set(d.autopilot.LastStep().Authority)
	d.metrics.Samples.Set(float64(d.recorder.Len()))
}

// Run starts the flight if needed and ticks every flight.tickInterval until
// the autopilot has drained the flight log.
func (d *Driver) Run(ctx context.Context) error {
	if !d.started {
		if err := d.Start(ctx); err != nil {
			return err
		}
	}

	for {
		if err := d.Tick(ctx); err != nil {
			return err
		}
		if d.autopilot.Done() {
			return nil
		}
		if err := d.clock.Sleep(ctx, d.cfg.Flight.TickInterval); err != nil {
			return err
		}
	}
}

// Drain stops sampling, persists the flight log and prints its statistics.
// Persistence failures are logged and never fail the flight. Later calls are no-ops.
func (d *Driver) Drain(ctx context.Context) error {
	if d.drained {
		return nil
	}
	d.drained = true

	d.recorder.Stop()
	samples := d.recorder.Drain()

	if err := d.persist(samples); err != nil {
		d.logger.Error("failed to save flight data", "error", err)
		d.printer.Println("flight data not saved: %v", err)
	} else if ex, ok := d.backend.(storage.Exportable); ok && ex.ExportedFilePath() != "" {
		d.printer.Println("flight data saved to %s (%d records)", ex.ExportedFilePath(), len(samples))
	}

	d.printer.Println("=== flight data ===")
	sum, ok := flightlog.Summarize(samples)
	if !ok {
		d.printer.Println("no flight data recorded")
		return nil
	}
	d.printer.Println("first record: t=%.1fs, h=%.1fkm", sum.First.Time, sum.First.Altitude/1000)
	d.printer.Println("last record: t=%.1fs, h=%.1fkm", sum.Last.Time, sum.Last.Altitude/1000)
	d.printer.Println("data points: %d", sum.Count)
	d.printer.Println("flight duration: %.1f seconds", sum.Duration)
	return nil
}

func (d *Driver) persist(samples []core.FlightSample) error {
	if err := d.backend.RecordSamples(samples); err != nil {
		return fmt.Errorf("record samples: %w", err)
	}
	if err := d.backend.EndFlight(); err != nil {
		return fmt.Errorf("end flight: %w", err)
	}
	return nil
}
