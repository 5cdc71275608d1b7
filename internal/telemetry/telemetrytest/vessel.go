// Package telemetrytest provides a scripted vessel for exercising the flight
// loop without a simulator.
package telemetrytest

import (
	"context"
	"sync"

	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

// Vessel replays scripted snapshots and records every actuator write.
type Vessel struct {
	telemetry.Recording

	mu     sync.Mutex
	states []core.VehicleState
	calls  int

	// Script, when set, replaces the replayed states. call counts from 0.
	Script func(call int) (core.VehicleState, error)
	// PositionAt returns the position for the most recent snapshot.
	PositionAt  func(state core.VehicleState) core.Position
	PositionErr error
	last        core.VehicleState
}

// New returns a vessel replaying states in order and repeating the last one.
func New(states ...core.VehicleState) *Vessel {
	return &Vessel{states: states}
}

func (v *Vessel) Snapshot(ctx context.Context) (core.VehicleState, error) {
	if err := ctx.Err(); err != nil {
		return core.VehicleState{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	call := v.calls
	v.calls++

	var (
		s   core.VehicleState
		err error
	)
	switch {
	case v.Script != nil:
		s, err = v.Script(call)
	case len(v.states) == 0:
		return s, telemetry.Gap("snapshot", context.DeadlineExceeded)
	case call < len(v.states):
		s = v.states[call]
	default:
		s = v.states[len(v.states)-1]
	}
	if err == nil {
		v.last = s
	}
	return s, err
}

func (v *Vessel) Position(ctx context.Context) (core.Position, error) {
	if err := ctx.Err(); err != nil {
		return core.Position{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.PositionErr != nil {
		return core.Position{}, v.PositionErr
	}
	if v.PositionAt != nil {
		return v.PositionAt(v.last), nil
	}
	return core.Position{X: v.last.Altitude, Y: v.last.MET}, nil
}

// Calls returns how many snapshots were requested.
func (v *Vessel) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

var _ telemetry.Vessel = (*Vessel)(nil)
