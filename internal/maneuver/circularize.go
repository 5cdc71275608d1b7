// Package maneuver runs the open-loop circularization burn at apoapsis.
package maneuver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/console"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

// Result is the orbit read after the burn. Nothing checks that it is closed.
type Result struct {
	Periapsis float64
	Apoapsis  float64
	BurnTicks int
}

// Circularizer holds the collaborators of the burn.
type Circularizer struct {
	vessel  telemetry.Vessel
	clock   clock.Clock
	cfg     config.ManeuverConfig
	console *console.Printer
	logger  *slog.Logger
	events  core.EventSink
}

// New returns a Circularizer.
func New(v telemetry.Vessel, clk clock.Clock, cfg config.ManeuverConfig, out *console.Printer, logger *slog.Logger, events core.EventSink) *Circularizer {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = core.NopSink{}
	}
	return &Circularizer{
		vessel:  v,
		clock:   clk,
		cfg:     cfg,
		console: out,
		logger:  logger.With("component", "maneuver"),
		events:  events,
	}
}

// Circularize blocks until the burn is over: point prograde, wait for
// apoapsis, burn at full throttle for a fixed number of ticks, cut throttle.
//
// Cancelling ctx stops the maneuver at any step, including mid-burn. The
// throttle cut after the burn is still written, under a context that
// ignores cancellation, so an interrupted burn never leaves the engine on.
func (c *Circularizer) Circularize(ctx context.Context) (Result, error) {
	c.console.Println("=== starting circularization ===")
	c.publish("circularization started")

	if err := telemetry.Apply(ctx, c.vessel, core.ControlCommand{SAS: core.Bool(true)}); err != nil {
		return Result{}, err
	}
	if err := c.clock.Sleep(ctx, c.cfg.SASSettle); err != nil {
		return Result{}, err
	}
	if err := telemetry.Apply(ctx, c.vessel, core.ControlCommand{SASMode: core.Mode(core.SASModePrograde)}); err != nil {
		return Result{}, err
	}
	c.console.Println("oriented prograde")

	tta, err := c.waitForApoapsis(ctx)
	if err != nil {
		return Result{}, err
	}

	c.console.Println("approaching maneuver point")
	if err := c.clock.Sleep(ctx, seconds(tta)-c.cfg.Margin); err != nil {
		return Result{}, err
	}

	c.console.Println("at apoapsis, throttle up")
	if err := telemetry.Apply(ctx, c.vessel, core.ControlCommand{Throttle: core.Float(1)}); err != nil {
		return Result{}, err
	}

	ticks, burnErr := c.burn(ctx)
	cutErr := telemetry.Apply(context.WithoutCancel(ctx), c.vessel, core.ControlCommand{Throttle: core.Float(0)})
	if err := errors.Join(burnErr, cutErr); err != nil {
		return Result{BurnTicks: ticks}, err
	}
	c.console.Println("engine off")

	res := Result{BurnTicks: ticks}
	state, err := c.vessel.Snapshot(ctx)
	switch {
	case err == nil:
		res.Periapsis, res.Apoapsis = state.Periapsis, state.Apoapsis
		c.console.Println("=== orbit reached ===")
		c.console.Println("periapsis: %.1fkm", state.Periapsis/1000)
		c.console.Println("apoapsis: %.1fkm", state.Apoapsis/1000)
	case telemetry.IsGap(err):
		c.logger.Warn("could not read final orbit", "error", err)
	default:
		return res, err
	}

	c.logger.Info("circularization complete", "periapsis", res.Periapsis, "apoapsis", res.Apoapsis, "ticks", ticks)
	c.publish(fmt.Sprintf("burn complete after %d ticks", ticks))
	return res, nil
}

// waitForApoapsis polls coarsely until apoapsis is within the lead time and
// returns the last time-to-apoapsis read, in seconds.
func (c *Circularizer) waitForApoapsis(ctx context.Context) (float64, error) {
	c.console.Println("waiting for apoapsis")
	lead := c.cfg.LeadTime.Seconds()
	for {
		state, err := c.vessel.Snapshot(ctx)
		switch {
		case err == nil:
			if state.TimeToApoapsis <= lead {
				return state.TimeToApoapsis, nil
			}
			c.console.Println("time to apoapsis: %.0fs", state.TimeToApoapsis)
		case telemetry.IsGap(err):
			c.logger.Warn("time to apoapsis unavailable", "error", err)
		default:
			return 0, err
		}
		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return 0, err
		}
	}
}

// burn holds the current throttle for BurnTicks ticks, reporting progress
// every ReportEvery ticks. It returns the number of ticks completed.
func (c *Circularizer) burn(ctx context.Context) (int, error) {
	c.console.Println("burning for %d ticks", c.cfg.BurnTicks)
	for i := 0; i < c.cfg.BurnTicks; i++ {
		if c.cfg.ReportEvery > 0 && i%c.cfg.ReportEvery == 0 {
			if err := c.report(ctx, i); err != nil {
				return i, err
			}
		}
		if err := c.clock.Sleep(ctx, c.cfg.BurnTick); err != nil {
			return i, err
		}
	}
	return c.cfg.BurnTicks, nil
}

func (c *Circularizer) report(ctx context.Context, tick int) error {
	state, err := c.vessel.Snapshot(ctx)
	if err != nil {
		if telemetry.IsGap(err) {
			c.logger.Debug("skipping burn report", "tick", tick, "error", err)
			return nil
		}
		return err
	}
	c.console.Println("%ds: periapsis %.1fkm, apoapsis %.1fkm", tick, state.Periapsis/1000, state.Apoapsis/1000)
	return nil
}

func (c *Circularizer) publish(msg string) {
	c.events.Publish(core.FlightEvent{
		Kind:    core.EventManeuver,
		Time:    c.clock.Now(),
		Message: msg,
	})
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
