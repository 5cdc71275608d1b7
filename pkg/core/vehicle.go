// pkg/core/vehicle.go
package core

// Position is a point in the orbited body's reference frame, in metres.
type Position struct {
	X float64
	Y float64
	Z float64
}

// EngineState is the per-engine part of a telemetry snapshot.
type EngineState struct {
	Name string
	// IsSolidBooster is set by the telemetry boundary for non-throttleable solid motors.
	IsSolidBooster bool
	Active         bool
	HasFuel        bool
	// FuelFraction is remaining propellant over capacity, in [0, 1].
	FuelFraction float64
	// FuelKnown is false when the boundary could not read this engine's fuel.
	FuelKnown bool
}

// VehicleState is a read-only snapshot of the vessel, read field by field.
type VehicleState struct {
	MET            float64 // mission elapsed time, s
	Speed          float64 // m/s, body reference frame
	Altitude       float64 // mean altitude, m
	Pitch          float64 // deg, signed
	Apoapsis       float64 // apoapsis altitude, m
	Periapsis      float64 // periapsis altitude, m
	TimeToApoapsis float64 // s
	Thrust         float64 // N
	Engines        []EngineState
}

// SASMode is the attitude-hold mode requested from the stability-assist system.
type SASMode int

const (
	SASModeStabilityAssist SASMode = iota
	SASModePrograde
)

func (m SASMode) String() string {
	switch m {
	case SASModeStabilityAssist:
		return "stability_assist"
	case SASModePrograde:
		return "prograde"
	default:
		return "unknown"
	}
}

// ControlCommand is a set of actuator writes produced within one tick.
// Nil fields leave the actuator untouched; Stage fires the next stage.
type ControlCommand struct {
	Pitch    *float64
	Roll     *float64
	Throttle *float64
	SAS      *bool
	SASMode  *SASMode
	Stage    bool
}

// Float returns a pointer to v, for building commands.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for building commands.
func Bool(v bool) *bool { return &v }

// Mode returns a pointer to m, for building commands.
func Mode(m SASMode) *SASMode { return &m }
