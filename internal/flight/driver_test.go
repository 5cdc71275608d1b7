package flight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ascentops/autopilot/internal/ascent"
	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/metrics"
	"github.com/ascentops/autopilot/internal/staging"
	"github.com/ascentops/autopilot/internal/storage/memory"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/internal/telemetry/telemetrytest"
	"github.com/ascentops/autopilot/pkg/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var liftoff = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type harness struct {
	driver  *Driver
	vessel  *telemetrytest.Vessel
	backend *memory.Backend
	clock   *clock.Fake
	metrics *metrics.Flight
	fctx    *Context
	out     *bytes.Buffer
}

func newHarness(t *testing.T, script func(call int) (core.VehicleState, error)) *harness {
	t.Helper()
	h := &harness{
		vessel:  &telemetrytest.Vessel{Script: script},
		backend: memory.New(config.MemoryConfig{OutputDir: t.TempDir()}),
		clock:   clock.NewFake(liftoff),
		metrics: metrics.New(),
		fctx:    NewContext(),
		out:     &bytes.Buffer{},
	}
	cfg := DefaultConfig()
	cfg.Flight.VesselName = "Kerbal X"
	cfg.Version = "test"

	d, err := New(cfg, Deps{
		Vessel:  h.vessel,
		Backend: h.backend,
		Clock:   h.clock,
		Console: h.out,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: h.metrics,
		Context: h.fctx,
	})
	require.NoError(t, err)
	h.driver = d
	return h
}

// ascentScript crosses 100 m/s on tick 12 and reaches 71 km above 1500 m/s on
// tick 400. Tick k is snapshot call k-1.
func ascentScript(call int) (core.VehicleState, error) {
	k := call + 1
	s := core.VehicleState{
		MET:            float64(k) * 0.05,
		Pitch:          90,
		Apoapsis:       80000,
		Periapsis:      75000,
		TimeToApoapsis: 20,
		Thrust:         215000,
	}
	if k < 12 {
		s.Speed = 8 * float64(k)
	} else {
		s.Speed = 100 + 5*float64(k-12)
	}
	if k < 400 {
		s.Altitude = 175 * float64(k)
	} else {
		s.Altitude = 71500
	}
	return s, nil
}

func TestNew_RequiresVesselAndBackend(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{Backend: memory.New(config.MemoryConfig{})})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), Deps{Vessel: telemetrytest.New()})
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	h := newHarness(t, ascentScript)
	ctx := context.Background()

	assert.ErrorIs(t, h.driver.Tick(ctx), ErrNotStarted)
	require.NoError(t, h.driver.Start(ctx))
	assert.ErrorIs(t, h.driver.Start(ctx), ErrAlreadyStarted)

	f := h.driver.Flight()
	require.NotNil(t, f)
	assert.NotEmpty(t, f.FlightID)
	assert.Equal(t, uint(1), f.ID, "assigned by the backend")
	assert.Equal(t, "Kerbal X", f.VesselName)
	assert.Equal(t, liftoff, f.StartTime)
	assert.Equal(t, 100.0, f.Params["turnStartSpeed"])

	assert.Equal(t, 1, h.vessel.Stages(), "ignition fires the first stage")
	assert.Same(t, f, h.fctx.Flight())
	assert.Contains(t, h.out.String(), "=== engine ignition ===")
}

func TestEndToEnd_PhaseTransitions(t *testing.T) {
	h := newHarness(t, ascentScript)
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))

	phases := map[int]ascent.Phase{}
	prev := ascent.PoweredLiftoff
	for k := 1; !h.driver.Autopilot().Done(); k++ {
		require.Less(t, k, 1000, "flight never finished")
		require.NoError(t, h.driver.Tick(ctx))

		p := h.driver.Autopilot().Phase()
		require.GreaterOrEqual(t, p, prev, "phase regressed at tick %d", k)
		phases[k], prev = p, p
		h.clock.Advance(50 * time.Millisecond)
	}

	assert.Equal(t, ascent.PoweredLiftoff, phases[11])
	assert.Equal(t, ascent.GravityTurn, phases[12])
	assert.Equal(t, ascent.GravityTurn, phases[399])
	assert.Equal(t, ascent.PitchHoldEntry, phases[400])
	assert.Equal(t, ascent.GravityTurnComplete, phases[401])
	assert.Equal(t, ascent.Circularizing, phases[402])
	assert.Equal(t, ascent.DataDrainOnly, phases[403])
	assert.Len(t, phases, 404)

	var phaseEvents, maneuverEvents int
	for _, e := range h.backend.Events() {
		switch e.Kind {
		case core.EventPhase:
			phaseEvents++
		case core.EventManeuver:
			maneuverEvents++
		}
	}
	assert.Equal(t, 5, phaseEvents)
	assert.Equal(t, 2, maneuverEvents)
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.Events.WithLabelValues(core.EventPhase)))
	assert.Equal(t, float64(ascent.DataDrainOnly), testutil.ToFloat64(h.metrics.Phase))
	assert.Equal(t, "data_drain_only", h.fctx.Phase())
}

func TestEndToEnd_FlightLogPersisted(t *testing.T) {
	h := newHarness(t, ascentScript)
	ctx := context.Background()

	require.NoError(t, h.driver.Run(ctx))
	assert.True(t, h.driver.Autopilot().Done())

	samples := h.backend.Samples()
	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i].Time, samples[i-1].Time)
	}
	assert.Zero(t, h.driver.Recorder().Len(), "log drained into storage")
	assert.False(t, h.driver.Recorder().Active())

	path := h.backend.ExportedFilePath()
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows [][5]float64
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Len(t, rows, len(samples))

	out := h.out.String()
	assert.Contains(t, out, "flight data saved to "+path)
	assert.Contains(t, out, "=== flight data ===")
	assert.Contains(t, out, "data points: ")

	for _, d := range h.clock.Sleeps()[:3] {
		assert.Equal(t, 50*time.Millisecond, d, "run loop sleeps one tick interval")
	}
}

func TestStaging_FiresOncePerBoundary(t *testing.T) {
	script := func(call int) (core.VehicleState, error) {
		k := call + 1
		srb := 0.5
		if k >= 5 {
			srb = 0.005
		}
		thrust := 200000.0
		if k >= 15 {
			thrust = 0
		}
		return core.VehicleState{
			MET:    float64(k),
			Speed:  50,
			Pitch:  90,
			Thrust: thrust,
			Engines: []core.EngineState{
				{Name: "RT-10", IsSolidBooster: true, Active: true, HasFuel: true, FuelFraction: srb, FuelKnown: true},
				{Name: "LV-T45", Active: true, HasFuel: true, FuelFraction: 0.8, FuelKnown: true},
			},
		}, nil
	}
	h := newHarness(t, script)
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))

	for k := 1; k <= 9; k++ {
		require.NoError(t, h.driver.Tick(ctx))
	}
	assert.Equal(t, 2, h.vessel.Stages(), "ignition plus one booster separation")
	assert.Equal(t, staging.SrbDropped, h.driver.Monitor().Level())

	for k := 10; k <= 20; k++ {
		require.NoError(t, h.driver.Tick(ctx))
	}
	assert.Equal(t, 3, h.vessel.Stages())
	assert.Equal(t, staging.SecondStageIgnited, h.driver.Monitor().Level())
	assert.Contains(t, h.out.String(), "solid boosters separated")
	assert.Contains(t, h.out.String(), "second stage ignited")
	assert.Equal(t, float64(staging.SecondStageIgnited), testutil.ToFloat64(h.metrics.StagingLevel))
}

func TestTick_GapSkipsTick(t *testing.T) {
	script := func(call int) (core.VehicleState, error) {
		if call == 1 {
			return core.VehicleState{}, telemetry.Gap("snapshot", errors.New("timeout"))
		}
		return core.VehicleState{MET: float64(call), Speed: 10, Thrust: 1}, nil
	}
	h := newHarness(t, script)
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, h.driver.Tick(ctx))
	}
	assert.Equal(t, 2, h.driver.Ticks())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TelemetryGaps))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Ticks))
}

func TestRun_BoundaryLostIsFatal(t *testing.T) {
	script := func(call int) (core.VehicleState, error) {
		if call == 2 {
			return core.VehicleState{}, telemetry.Lost("snapshot", io.EOF)
		}
		return core.VehicleState{MET: float64(call), Speed: 10, Thrust: 1}, nil
	}
	h := newHarness(t, script)

	err := h.driver.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, telemetry.ErrBoundaryLost)
	assert.False(t, h.driver.Autopilot().Done())

	// the binary still saves what was recorded
	require.NoError(t, h.driver.Drain(context.Background()))
	assert.NotEmpty(t, h.backend.ExportedFilePath())
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t, func(call int) (core.VehicleState, error) {
		return core.VehicleState{MET: float64(call), Speed: 10, Thrust: 1}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.driver.Start(ctx))
	cancel()

	assert.ErrorIs(t, h.driver.Run(ctx), context.Canceled)
}

type failingBackend struct {
	*memory.Backend
}

func (failingBackend) EndFlight() error { return errors.New("disk full") }

func TestDrain_PersistenceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, ascentScript)
	h.driver.backend = failingBackend{h.backend}
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))
	require.NoError(t, h.driver.Tick(ctx))

	require.NoError(t, h.driver.Drain(ctx))
	assert.Contains(t, h.out.String(), "flight data not saved: end flight: disk full")
	assert.Contains(t, h.out.String(), "data points: 1")
}

func TestDrain_Idempotent(t *testing.T) {
	h := newHarness(t, ascentScript)
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))
	require.NoError(t, h.driver.Tick(ctx))

	require.NoError(t, h.driver.Drain(ctx))
	first := h.backend.ExportedFilePath()
	require.NoError(t, h.driver.Drain(ctx))

	assert.Equal(t, first, h.backend.ExportedFilePath())
	assert.Len(t, h.backend.Samples(), 1)
}

func TestDrain_EmptyLog(t *testing.T) {
	h := newHarness(t, ascentScript)
	ctx := context.Background()
	require.NoError(t, h.driver.Start(ctx))

	require.NoError(t, h.driver.Drain(ctx))
	assert.Contains(t, h.out.String(), "no flight data recorded")

	data, err := os.ReadFile(h.backend.ExportedFilePath())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
