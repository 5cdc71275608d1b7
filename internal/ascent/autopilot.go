// Package ascent implements the ascent phase state machine.
//
// The Autopilot owns the current phase and is driven one tick at a time by
// the flight loop. Each tick it reads a single telemetry snapshot, evaluates
// the guidance law for the current phase, writes actuator commands, and
// moves to the next phase when that phase's predicate holds. It has no retry
// logic of its own: errors from the actuator or the maneuver are returned.
package ascent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/console"
	"github.com/ascentops/autopilot/internal/guidance"
	"github.com/ascentops/autopilot/internal/maneuver"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

// ErrAlreadyIgnited is returned by a second call to Ignite.
var ErrAlreadyIgnited = errors.New("engines already ignited")

// Circularizer performs the orbit insertion burn.
type Circularizer interface {
	Circularize(ctx context.Context) (maneuver.Result, error)
}

// Drainer stops sampling and persists the flight log.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Autopilot is the ascent state machine for one vessel.
type Autopilot struct {
	act     telemetry.Actuator
	cfg     config.GuidanceConfig
	profile guidance.Profile
	circ    Circularizer
	drainer Drainer
	clock   clock.Clock
	console *console.Printer
	logger  *slog.Logger
	events  core.EventSink

	phase    Phase
	ignited  bool
	done     bool
	lastStep guidance.Step
	orbit    maneuver.Result
}

// Deps are the collaborators of an Autopilot.
type Deps struct {
	Actuator     telemetry.Actuator
	Circularizer Circularizer
	Drainer      Drainer
	Clock        clock.Clock
	Console      *console.Printer
	Logger       *slog.Logger
	Events       core.EventSink
}

// New returns an Autopilot in PoweredLiftoff.
func New(cfg config.GuidanceConfig, deps Deps) *Autopilot {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := deps.Events
	if events == nil {
		events = core.NopSink{}
	}
	return &Autopilot{
		act:     deps.Actuator,
		cfg:     cfg,
		profile: guidance.NewProfile(cfg.Profile),
		circ:    deps.Circularizer,
		drainer: deps.Drainer,
		clock:   deps.Clock,
		console: deps.Console,
		logger:  logger.With("component", "ascent"),
		events:  events,
	}
}

// Phase returns the current phase.
func (a *Autopilot) Phase() Phase { return a.phase }

// Done reports whether the terminal phase has run its entry action.
func (a *Autopilot) Done() bool { return a.done }

// LastStep returns the most recent guidance evaluation.
func (a *Autopilot) LastStep() guidance.Step { return a.lastStep }

// Orbit returns the result of the circularization burn.
func (a *Autopilot) Orbit() maneuver.Result { return a.orbit }

// Ignite runs the PoweredLiftoff entry action: full throttle, first stage, SAS on.
func (a *Autopilot) Ignite(ctx context.Context) error {
	if a.ignited {
		return ErrAlreadyIgnited
	}
	a.console.Println("=== engine ignition ===")
	cmd := core.ControlCommand{
		Throttle: core.Float(1),
		SAS:      core.Bool(true),
		Stage:    true,
	}
	if err := telemetry.Apply(ctx, a.act, cmd); err != nil {
		return fmt.Errorf("ignite: %w", err)
	}
	a.ignited = true
	a.console.Println("engines running")
	return nil
}

// Tick advances the state machine with one snapshot.
func (a *Autopilot) Tick(ctx context.Context, state core.VehicleState) error {
	switch a.phase {
	case PoweredLiftoff:
		return a.liftoff(ctx, state)
	case GravityTurn:
		return a.gravityTurn(ctx, state)
	case PitchHoldEntry:
		return a.pitchHold(ctx, state)
	case GravityTurnComplete:
		return a.insert(ctx, state)
	case Circularizing:
		a.summarize()
		a.transition(state, DataDrainOnly)
		return nil
	case DataDrainOnly:
		return a.drain(ctx)
	default:
		return fmt.Errorf("unknown phase %v", a.phase)
	}
}

func (a *Autopilot) liftoff(ctx context.Context, state core.VehicleState) error {
	a.console.Printf(state.MET, "speed now %.1f m/s", state.Speed)
	if state.Speed < a.cfg.TurnStartSpeed {
		return nil
	}
	if err := telemetry.Apply(ctx, a.act, core.ControlCommand{SAS: core.Bool(false)}); err != nil {
		return fmt.Errorf("release SAS: %w", err)
	}
	a.transition(state, GravityTurn)
	a.console.Println("starting gravity turn")
	return nil
}

func (a *Autopilot) gravityTurn(ctx context.Context, state core.VehicleState) error {
	if err := a.steer(ctx, state, a.profile.Target(state.Altitude)); err != nil {
		return err
	}
	if state.Altitude > a.cfg.PitchHoldAltitude && state.Speed > a.cfg.PitchHoldSpeed {
		a.console.Println("altitude %.0fkm reached with %.0f m/s", a.cfg.PitchHoldAltitude/1000, state.Speed)
		a.transition(state, PitchHoldEntry)
	}
	return nil
}

// pitchHold is a single corrective nudge toward the hold target.
func (a *Autopilot) pitchHold(ctx context.Context, state core.VehicleState) error {
	if err := a.steer(ctx, state, a.cfg.PitchHoldTarget); err != nil {
		return err
	}
	a.transition(state, GravityTurnComplete)
	return nil
}

func (a *Autopilot) insert(ctx context.Context, state core.VehicleState) error {
	a.console.Println("gravity turn complete")
	if err := telemetry.Apply(ctx, a.act, core.ControlCommand{Throttle: core.Float(0)}); err != nil {
		return fmt.Errorf("cut throttle: %w", err)
	}
	orbit, err := a.circ.Circularize(ctx)
	if err != nil {
		return fmt.Errorf("circularize: %w", err)
	}
	a.orbit = orbit
	a.transition(state, Circularizing)
	return nil
}

func (a *Autopilot) summarize() {
	a.console.Println("=== autopilot finished ===")
	a.console.Println("periapsis %.1fkm, apoapsis %.1fkm", a.orbit.Periapsis/1000, a.orbit.Apoapsis/1000)
	a.console.Println("continuing data collection")
}

func (a *Autopilot) drain(ctx context.Context) error {
	if a.done {
		return nil
	}
	if a.drainer != nil {
		if err := a.drainer.Drain(ctx); err != nil {
			return fmt.Errorf("drain flight log: %w", err)
		}
	}
	a.done = true
	return nil
}

// steer writes one pitch command toward target with roll held at zero.
func (a *Autopilot) steer(ctx context.Context, state core.VehicleState, target float64) error {
	step := guidance.Evaluate(target, state.Pitch)
	a.lastStep = step
	cmd := core.ControlCommand{
		Pitch: core.Float(step.Authority),
		Roll:  core.Float(0),
	}
	if err := telemetry.Apply(ctx, a.act, cmd); err != nil {
		return fmt.Errorf("steer: %w", err)
	}
	a.console.Printf(state.MET, "Alt: %5.1fkm | Target: %4.0f° | Current: %5.1f° | Error: %+6.1f° | Control: %6.3f",
		state.Altitude/1000, step.Target, step.Current, step.Error, step.Authority)
	return nil
}

func (a *Autopilot) transition(state core.VehicleState, next Phase) {
	if next <= a.phase {
		a.logger.Error("refusing phase regression", "from", a.phase, "to", next)
		return
	}
	from := a.phase
	a.phase = next
	a.logger.Info("phase change", "from", from.String(), "to", next.String(), "met", state.MET)
	ev := core.FlightEvent{
		Kind: core.EventPhase,
		MET:  state.MET,
		From: from.String(),
		To:   next.String(),
	}
	if a.clock != nil {
		ev.Time = a.clock.Now()
	}
	a.events.Publish(ev)
}
