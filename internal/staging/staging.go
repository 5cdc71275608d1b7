// Package staging watches for booster burnout and fires stage separations.
//
// The monitor runs every tick, independently of the ascent phase. Each
// boundary fires at most once: the level only moves forward and a tick
// advances it by at most one step.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

// Level counts the staging boundaries already crossed.
type Level int

const (
	NoneDropped Level = iota
	SrbDropped
	SecondStageIgnited
)

func (l Level) String() string {
	switch l {
	case NoneDropped:
		return "none_dropped"
	case SrbDropped:
		return "srb_dropped"
	case SecondStageIgnited:
		return "second_stage_ignited"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Monitor tracks the staging level of one vessel.
type Monitor struct {
	act    telemetry.Actuator
	clock  clock.Clock
	cfg    config.StagingConfig
	logger *slog.Logger
	events core.EventSink

	level Level
	// armed is set once thrust has been observed, so a vessel sitting on the
	// pad with zero thrust never looks like a burnout.
	armed   bool
	starved []string
}

// NewMonitor returns a monitor at NoneDropped.
func NewMonitor(act telemetry.Actuator, clk clock.Clock, cfg config.StagingConfig, logger *slog.Logger, events core.EventSink) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = core.NopSink{}
	}
	return &Monitor{
		act:    act,
		clock:  clk,
		cfg:    cfg,
		logger: logger.With("component", "staging"),
		events: events,
	}
}

// Level returns the current staging level.
func (m *Monitor) Level() Level { return m.level }

// Check evaluates both staging triggers against state and reports whether
// the level advanced. Settle delays block the caller.
func (m *Monitor) Check(ctx context.Context, state core.VehicleState) (bool, error) {
	if state.Thrust > 0 {
		m.armed = true
	}
	m.reportStarved(state)

	switch m.level {
	case NoneDropped:
		if !SRBDepleted(state.Engines, m.cfg.SolidFuelThreshold) {
			return false, nil
		}
		return true, m.dropBoosters(ctx, state)
	case SrbDropped:
		if !m.armed || state.Thrust != 0 {
			return false, nil
		}
		return true, m.igniteSecondStage(ctx, state)
	default:
		return false, nil
	}
}

func (m *Monitor) dropBoosters(ctx context.Context, state core.VehicleState) error {
	if err := m.clock.Sleep(ctx, m.cfg.SettleDelay); err != nil {
		return err
	}
	m.logger.Info("separating solid boosters", "met", state.MET)
	if err := telemetry.Apply(ctx, m.act, core.ControlCommand{Stage: true}); err != nil {
		return fmt.Errorf("separate boosters: %w", err)
	}
	m.advance(state, SrbDropped, "solid boosters separated")
	return nil
}

func (m *Monitor) igniteSecondStage(ctx context.Context, state core.VehicleState) error {
	if err := m.clock.Sleep(ctx, m.cfg.SettleDelay); err != nil {
		return err
	}
	m.logger.Info("main stage burnout, staging", "met", state.MET)
	cmd := core.ControlCommand{SAS: core.Bool(true), Stage: true}
	if err := telemetry.Apply(ctx, m.act, cmd); err != nil {
		return fmt.Errorf("stage after burnout: %w", err)
	}
	if err := m.clock.Sleep(ctx, m.cfg.SASInitDelay); err != nil {
		return err
	}
	mode := core.ControlCommand{SASMode: core.Mode(core.SASModeStabilityAssist)}
	if err := telemetry.Apply(ctx, m.act, mode); err != nil {
		return fmt.Errorf("stability assist: %w", err)
	}
	m.advance(state, SecondStageIgnited, "second stage ignited")
	return nil
}

func (m *Monitor) advance(state core.VehicleState, to Level, msg string) {
	from := m.level
	m.level = to
	m.events.Publish(core.FlightEvent{
		Kind:    core.EventStaging,
		MET:     state.MET,
		Time:    m.clock.Now(),
		From:    from.String(),
		To:      to.String(),
		Message: msg,
	})
}

// reportStarved logs active engines without fuel whenever that set changes.
func (m *Monitor) reportStarved(state core.VehicleState) {
	starved := StarvedEngines(state.Engines)
	if slices.Equal(starved, m.starved) {
		return
	}
	m.starved = starved
	if len(starved) > 0 {
		m.logger.Warn("engines without fuel", "engines", starved, "met", state.MET)
	}
}

// SRBDepleted reports whether any solid booster with a known fuel level is
// below threshold of its capacity. Engines with unknown fuel never count.
func SRBDepleted(engines []core.EngineState, threshold float64) bool {
	for _, e := range engines {
		if e.IsSolidBooster && e.FuelKnown && e.FuelFraction < threshold {
			return true
		}
	}
	return false
}

// StarvedEngines returns the names of active engines that report no fuel.
func StarvedEngines(engines []core.EngineState) []string {
	var out []string
	for _, e := range engines {
		if e.Active && !e.HasFuel {
			out = append(out, e.Name)
		}
	}
	return out
}
