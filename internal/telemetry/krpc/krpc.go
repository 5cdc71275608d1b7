// Package krpc adapts a kRPC connection to the telemetry boundary.
package krpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	krpcgo "github.com/atburke/krpc-go"
	"github.com/atburke/krpc-go/spacecenter"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

const solidFuel = "SolidFuel"

// Vessel is the active vessel seen through a kRPC connection.
type Vessel struct {
	client  *krpcgo.KRPCClient
	vessel  *spacecenter.Vessel
	control *spacecenter.Control
	orbit   *spacecenter.Orbit
	// surface gives pitch and mean altitude; body gives speed and position.
	surface   *spacecenter.Flight
	body      *spacecenter.Flight
	bodyFrame *spacecenter.ReferenceFrame
	name      string
	logger    *slog.Logger
}

// Connect dials the kRPC server and resolves the active vessel.
func Connect(ctx context.Context, cfg config.KRPCConfig, logger *slog.Logger) (*Vessel, error) {
	client := krpcgo.DefaultKRPCClient()
	if cfg.Host != "" {
		client.Host = cfg.Host
	}
	if err := client.Connect(ctx); err != nil {
		return nil, telemetry.Lost("connect to kRPC", err)
	}

	v, err := resolve(client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("connected to kRPC", "host", client.Host, "vessel", v.name)
	return v, nil
}

func resolve(client *krpcgo.KRPCClient, logger *slog.Logger) (*Vessel, error) {
	sc := spacecenter.New(client)
	vessel, err := sc.ActiveVessel()
	if err != nil {
		return nil, telemetry.Lost("active vessel", err)
	}
	control, err := vessel.Control()
	if err != nil {
		return nil, telemetry.Lost("vessel control", err)
	}
	orbit, err := vessel.Orbit()
	if err != nil {
		return nil, telemetry.Lost("vessel orbit", err)
	}
	body, err := orbit.Body()
	if err != nil {
		return nil, telemetry.Lost("orbit body", err)
	}
	bodyFrame, err := body.ReferenceFrame()
	if err != nil {
		return nil, telemetry.Lost("body reference frame", err)
	}
	surfaceFrame, err := vessel.SurfaceReferenceFrame()
	if err != nil {
		return nil, telemetry.Lost("surface reference frame", err)
	}
	surfaceFlight, err := vessel.Flight(surfaceFrame)
	if err != nil {
		return nil, telemetry.Lost("surface flight", err)
	}
	bodyFlight, err := vessel.Flight(bodyFrame)
	if err != nil {
		return nil, telemetry.Lost("body flight", err)
	}
	name, err := vessel.Name()
	if err != nil {
		name = "unknown"
	}

	return &Vessel{
		client:    client,
		vessel:    vessel,
		control:   control,
		orbit:     orbit,
		surface:   surfaceFlight,
		body:      bodyFlight,
		bodyFrame: bodyFrame,
		name:      name,
		logger:    logger,
	}, nil
}

// Name returns the vessel name reported at connect time.
func (v *Vessel) Name() string { return v.name }

// Close releases the kRPC connection.
func (v *Vessel) Close() error {
	return v.client.Close()
}

// Snapshot reads every field of the vessel state. The first failing read
// decides the classification of the whole snapshot, except for per-engine
// fuel reads, which only leave that engine's fuel unknown.
func (v *Vessel) Snapshot(ctx context.Context) (core.VehicleState, error) {
	var s core.VehicleState
	if err := ctx.Err(); err != nil {
		return s, err
	}

	var err error
	if s.MET, err = v.vessel.MET(); err != nil {
		return s, classify("mission elapsed time", err)
	}
	if s.Speed, err = v.body.Speed(); err != nil {
		return s, classify("speed", err)
	}
	if s.Altitude, err = v.surface.MeanAltitude(); err != nil {
		return s, classify("mean altitude", err)
	}
	pitch, err := v.surface.Pitch()
	if err != nil {
		return s, classify("pitch", err)
	}
	s.Pitch = float64(pitch)
	if s.Apoapsis, err = v.orbit.ApoapsisAltitude(); err != nil {
		return s, classify("apoapsis", err)
	}
	if s.Periapsis, err = v.orbit.PeriapsisAltitude(); err != nil {
		return s, classify("periapsis", err)
	}
	if s.TimeToApoapsis, err = v.orbit.TimeToApoapsis(); err != nil {
		return s, classify("time to apoapsis", err)
	}
	thrust, err := v.vessel.Thrust()
	if err != nil {
		return s, classify("thrust", err)
	}
	s.Thrust = float64(thrust)
	if s.Engines, err = v.engines(); err != nil {
		return s, err
	}
	return s, nil
}

func (v *Vessel) engines() ([]core.EngineState, error) {
	parts, err := v.vessel.Parts()
	if err != nil {
		return nil, classify("parts", err)
	}
	engines, err := parts.Engines()
	if err != nil {
		return nil, classify("engines", err)
	}

	reads := make([]engineReads, 0, len(engines))
	for _, e := range engines {
		part, err := e.Part()
		if err != nil {
			return nil, classify("engine part", err)
		}
		reads = append(reads, partEngine{engine: e, part: part})
	}
	return readEngines(reads, v.logger)
}

func readEngines(engines []engineReads, logger *slog.Logger) ([]core.EngineState, error) {
	out := make([]core.EngineState, 0, len(engines))
	for _, e := range engines {
		state, err := readEngine(e, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, nil
}

// engineReads are the per-engine kRPC calls a snapshot makes.
type engineReads interface {
	Title() (string, error)
	Active() (bool, error)
	HasFuel() (bool, error)
	PropellantNames() ([]string, error)
	SolidFuel() (amount, capacity float64, err error)
}

type partEngine struct {
	engine *spacecenter.Engine
	part   *spacecenter.Part
}

func (p partEngine) Title() (string, error)             { return p.part.Title() }
func (p partEngine) Active() (bool, error)              { return p.engine.Active() }
func (p partEngine) HasFuel() (bool, error)             { return p.engine.HasFuel() }
func (p partEngine) PropellantNames() ([]string, error) { return p.engine.PropellantNames() }

func (p partEngine) SolidFuel() (float64, float64, error) {
	resources, err := p.part.Resources()
	if err != nil {
		return 0, 0, fmt.Errorf("resources: %w", err)
	}
	amount, err := resources.Amount(solidFuel)
	if err != nil {
		return 0, 0, fmt.Errorf("amount: %w", err)
	}
	capacity, err := resources.Max(solidFuel)
	if err != nil {
		return 0, 0, fmt.Errorf("capacity: %w", err)
	}
	return float64(amount), float64(capacity), nil
}

// readEngine reads one engine. A failed fuel read only affects this engine:
// it is logged and the fuel state is left unknown. Disconnects stay fatal.
func readEngine(e engineReads, logger *slog.Logger) (core.EngineState, error) {
	var s core.EngineState
	var err error
	if s.Name, err = e.Title(); err != nil {
		return s, classify("engine title", err)
	}
	if s.Active, err = e.Active(); err != nil {
		return s, classify("engine active", err)
	}
	propellants, err := e.PropellantNames()
	if err != nil {
		return s, classify("engine propellants", err)
	}
	s.IsSolidBooster = isSolid(propellants)

	hasFuel, err := e.HasFuel()
	if err != nil {
		if isDisconnect(err) {
			return s, telemetry.Lost("engine has fuel", err)
		}
		logger.Warn("could not read engine fuel state", "engine", s.Name, "error", err)
		return s, nil
	}
	s.HasFuel = hasFuel
	if !s.IsSolidBooster {
		return s, nil
	}

	amount, capacity, err := e.SolidFuel()
	if err != nil {
		if isDisconnect(err) {
			return s, telemetry.Lost("solid fuel", err)
		}
		logger.Warn("could not read solid fuel", "engine", s.Name, "error", err)
		s.HasFuel = false
		return s, nil
	}
	s.FuelFraction, s.FuelKnown = fuelFraction(amount, capacity)
	return s, nil
}

func isSolid(propellants []string) bool {
	for _, p := range propellants {
		if strings.EqualFold(p, solidFuel) {
			return true
		}
	}
	return false
}

// fuelFraction is unknown when the part reports no capacity.
func fuelFraction(amount, maximum float64) (float64, bool) {
	if maximum <= 0 {
		return 0, false
	}
	return amount / maximum, true
}

// Position reads the vessel position in the orbited body's frame.
func (v *Vessel) Position(ctx context.Context) (core.Position, error) {
	if err := ctx.Err(); err != nil {
		return core.Position{}, err
	}
	p, err := v.vessel.Position(v.bodyFrame)
	if err != nil {
		return core.Position{}, classify("position", err)
	}
	return core.Position{X: p.A, Y: p.B, Z: p.C}, nil
}

func (v *Vessel) SetThrottle(ctx context.Context, val float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyWrite("throttle", v.control.SetThrottle(float32(val)))
}

func (v *Vessel) SetPitch(ctx context.Context, val float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyWrite("pitch", v.control.SetPitch(float32(val)))
}

func (v *Vessel) SetRoll(ctx context.Context, val float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyWrite("roll", v.control.SetRoll(float32(val)))
}

func (v *Vessel) SetSAS(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyWrite("SAS", v.control.SetSAS(on))
}

func (v *Vessel) SetSASMode(ctx context.Context, mode core.SASMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyWrite("SAS mode", v.control.SetSASMode(sasMode(mode)))
}

func (v *Vessel) ActivateNextStage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := v.control.ActivateNextStage()
	return classifyWrite("next stage", err)
}

func sasMode(m core.SASMode) spacecenter.SASMode {
	switch m {
	case core.SASModePrograde:
		return spacecenter.SASMode_Prograde
	default:
		return spacecenter.SASMode_StabilityAssist
	}
}

// classify maps a transport error to a telemetry gap or a boundary loss.
func classify(what string, err error) error {
	if isDisconnect(err) {
		return telemetry.Lost(what, err)
	}
	return telemetry.Gap(what, err)
}

// Failed writes are never retried, so every write failure is fatal.
func classifyWrite(what string, err error) error {
	if err == nil {
		return nil
	}
	return telemetry.Lost("write "+what, err)
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

var _ telemetry.Vessel = (*Vessel)(nil)

// String is used in log lines.
func (v *Vessel) String() string {
	return fmt.Sprintf("%s@%s", v.name, v.client.Host)
}
