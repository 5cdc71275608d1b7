// Package telemetry defines the boundary between the autopilot and the live simulation.
//
// Reads are best-effort snapshots: a core.VehicleState is assembled from
// sequential reads and its fields may straddle simulation ticks. Position is a
// separate read. Writes are last-write-wins actuator settings; there is a single
// writer (the flight loop), so no locking is done here.
//
// Read failures are classified. ErrTelemetryGap marks a transient miss that the
// caller may skip for one tick. ErrBoundaryLost marks a disconnect or malformed
// state; the flight loop treats it as fatal.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ascentops/autopilot/pkg/core"
)

var (
	// ErrTelemetryGap is a recoverable read failure.
	ErrTelemetryGap = errors.New("telemetry unavailable")
	// ErrBoundaryLost is a fatal loss of the simulation connection.
	ErrBoundaryLost = errors.New("simulation boundary lost")
)

// Reader supplies vehicle state.
type Reader interface {
	Snapshot(ctx context.Context) (core.VehicleState, error)
	// Position returns the vessel position in the orbited body's frame.
	Position(ctx context.Context) (core.Position, error)
}

// Actuator accepts control writes.
type Actuator interface {
	SetThrottle(ctx context.Context, v float64) error
	SetPitch(ctx context.Context, v float64) error
	SetRoll(ctx context.Context, v float64) error
	SetSAS(ctx context.Context, on bool) error
	SetSASMode(ctx context.Context, mode core.SASMode) error
	ActivateNextStage(ctx context.Context) error
}

// Vessel is the full boundary.
type Vessel interface {
	Reader
	Actuator
}

// Gap wraps err as a recoverable telemetry gap.
func Gap(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrTelemetryGap, err)
}

// Lost wraps err as a fatal boundary loss.
func Lost(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrBoundaryLost, err)
}

// IsGap reports whether err is recoverable by skipping a tick.
func IsGap(err error) bool {
	return err != nil && errors.Is(err, ErrTelemetryGap) && !errors.Is(err, ErrBoundaryLost)
}

// Apply writes the set fields of cmd to a. Staging is issued last so the
// attitude and throttle writes of the same command land before separation.
func Apply(ctx context.Context, a Actuator, cmd core.ControlCommand) error {
	if cmd.Throttle != nil {
		if err := a.SetThrottle(ctx, *cmd.Throttle); err != nil {
			return fmt.Errorf("set throttle: %w", err)
		}
	}
	if cmd.Pitch != nil {
		if err := a.SetPitch(ctx, *cmd.Pitch); err != nil {
			return fmt.Errorf("set pitch: %w", err)
		}
	}
	if cmd.Roll != nil {
		if err := a.SetRoll(ctx, *cmd.Roll); err != nil {
			return fmt.Errorf("set roll: %w", err)
		}
	}
	if cmd.SAS != nil {
		if err := a.SetSAS(ctx, *cmd.SAS); err != nil {
			return fmt.Errorf("set SAS: %w", err)
		}
	}
	if cmd.SASMode != nil {
		if err := a.SetSASMode(ctx, *cmd.SASMode); err != nil {
			return fmt.Errorf("set SAS mode: %w", err)
		}
	}
	if cmd.Stage {
		if err := a.ActivateNextStage(ctx); err != nil {
			return fmt.Errorf("activate next stage: %w", err)
		}
	}
	return nil
}
