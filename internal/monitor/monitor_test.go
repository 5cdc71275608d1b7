package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ascentops/autopilot/internal/flight"
	"github.com/ascentops/autopilot/pkg/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func flyingContext() *flight.Context {
	c := flight.NewContext()
	c.SetFlight(&core.Flight{FlightID: "f-1", VesselName: "Kerbal X"})
	c.Update("gravity_turn", "srb_dropped", 61.5)
	return c
}

func readStatus(t *testing.T, path string) Status {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	return st
}

func TestGetStatus(t *testing.T) {
	s := NewService(Dependencies{
		Context: flyingContext(),
		Samples: func() int { return 42 },
	})

	st := s.GetStatus()
	assert.Equal(t, "f-1", st.FlightID)
	assert.Equal(t, "Kerbal X", st.Vessel)
	assert.Equal(t, "gravity_turn", st.Phase)
	assert.Equal(t, "srb_dropped", st.StagingLevel)
	assert.Equal(t, 61.5, st.MET)
	assert.Equal(t, 42, st.Samples)
	assert.False(t, st.Time.IsZero())
}

func TestGetStatus_NoFlight(t *testing.T) {
	st := NewService(Dependencies{}).GetStatus()
	assert.Empty(t, st.FlightID)
	assert.Zero(t, st.Samples)
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{Context: flyingContext(), Path: path})

	require.NoError(t, s.WriteStatus())
	assert.Equal(t, "gravity_turn", readStatus(t, path).Phase)
}

func TestWriteStatus_NoPath(t *testing.T) {
	assert.Error(t, NewService(Dependencies{}).WriteStatus())
	assert.Error(t, NewService(Dependencies{}).Start())
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	fctx := flyingContext()
	s := NewService(Dependencies{Context: fctx, Path: path, Interval: 5 * time.Millisecond})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	fctx.Update("data_drain_only", "second_stage_ignited", 240)
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	st := readStatus(t, path)
	assert.Equal(t, "data_drain_only", st.Phase, "stop writes the final status")
	assert.Equal(t, 240.0, st.MET)
}

func TestRun_WaitsForFlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{Context: flight.NewContext(), Path: path, Interval: time.Millisecond})

	require.NoError(t, s.Start())
	time.Sleep(20 * time.Millisecond)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing written before a flight starts")
	s.Stop()
}
