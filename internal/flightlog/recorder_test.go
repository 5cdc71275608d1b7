package flightlog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

type positionReader struct {
	pos  core.Position
	errs []error
}

func (p *positionReader) Snapshot(context.Context) (core.VehicleState, error) {
	return core.VehicleState{}, nil
}

func (p *positionReader) Position(context.Context) (core.Position, error) {
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return core.Position{}, err
		}
	}
	return p.pos, nil
}

func newTestRecorder(reader telemetry.Reader, clk clock.Clock) *Recorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecorder(reader, clk, config.DefaultRecorderConfig(), logger)
}

func TestPoll_SamplesOncePerInterval(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	rec := newTestRecorder(&positionReader{pos: core.Position{X: 1, Y: 2, Z: 3}}, clk)
	ctx := context.Background()

	// 50 ms ticks for 3 s of wall time
	taken := 0
	for i := 0; i < 60; i++ {
		ok, err := rec.Poll(ctx, core.VehicleState{MET: float64(i) * 0.05, Altitude: 100, Speed: 10})
		require.NoError(t, err)
		if ok {
			taken++
		}
		clk.Advance(50 * time.Millisecond)
	}

	assert.Equal(t, 3, taken)
	assert.Equal(t, 3, rec.Len())

	want := []core.FlightSample{
		{Time: 0, X: 1, Y: 2, Altitude: 100, Speed: 10},
		{Time: 1, X: 1, Y: 2, Altitude: 100, Speed: 10},
		{Time: 2, X: 1, Y: 2, Altitude: 100, Speed: 10},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return a-b < 1e-9 && b-a < 1e-9 })
	if diff := cmp.Diff(want, rec.Samples(), approx); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestPoll_TimesNonDecreasing(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	rec := newTestRecorder(&positionReader{}, clk)
	ctx := context.Background()

	mets := []float64{1, 2, 1.5, 3, 3, 2.9, 4}
	for _, met := range mets {
		_, err := rec.Poll(ctx, core.VehicleState{MET: met})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	samples := rec.Samples()
	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i].Time, samples[i-1].Time)
	}
	assert.Len(t, samples, 5)
}

func TestPoll_GapSkipsSample(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	reader := &positionReader{errs: []error{telemetry.Gap("position", io.ErrUnexpectedEOF)}}
	rec := newTestRecorder(reader, clk)
	ctx := context.Background()

	ok, err := rec.Poll(ctx, core.VehicleState{MET: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	// retried on the next tick, not a full interval later
	clk.Advance(50 * time.Millisecond)
	ok, err = rec.Poll(ctx, core.VehicleState{MET: 1.05})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPoll_BoundaryLostIsReturned(t *testing.T) {
	reader := &positionReader{errs: []error{telemetry.Lost("position", io.EOF)}}
	rec := newTestRecorder(reader, clock.NewFake(time.Unix(0, 0)))

	_, err := rec.Poll(context.Background(), core.VehicleState{MET: 1})
	assert.ErrorIs(t, err, telemetry.ErrBoundaryLost)
}

func TestStop_BeforeFirstSample(t *testing.T) {
	rec := newTestRecorder(&positionReader{}, clock.NewFake(time.Unix(0, 0)))
	rec.Stop()

	ok, err := rec.Poll(context.Background(), core.VehicleState{MET: 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, rec.Active())
	assert.Equal(t, 0, rec.Len())
	assert.Empty(t, rec.Drain())
}

func TestAnnounce_EveryTenSeconds(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	clk := clock.NewFake(time.Unix(0, 0))
	rec := NewRecorder(&positionReader{}, clk, config.DefaultRecorderConfig(), logger)

	for met := 0; met <= 25; met++ {
		_, err := rec.Poll(context.Background(), core.VehicleState{MET: float64(met), Altitude: 1500})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	assert.Equal(t, 2, strings.Count(buf.String(), "[data]"))
	assert.Contains(t, buf.String(), "h_km=1.5")
}

func TestDrain(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	rec := newTestRecorder(&positionReader{}, clk)

	_, err := rec.Poll(context.Background(), core.VehicleState{MET: 1})
	require.NoError(t, err)

	assert.Len(t, rec.Drain(), 1)
	assert.Equal(t, 0, rec.Len())
}

func TestSummarize(t *testing.T) {
	_, ok := Summarize(nil)
	assert.False(t, ok)

	s, ok := Summarize([]core.FlightSample{
		{Time: 2, Altitude: 80},
		{Time: 5, Altitude: 900},
		{Time: 12.5, Altitude: 75000},
	})
	require.True(t, ok)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2.0, s.First.Time)
	assert.Equal(t, 75000.0, s.Last.Altitude)
	assert.InDelta(t, 10.5, s.Duration, 1e-9)
}

type countingReader struct{ reads int }

func (c *countingReader) Snapshot(context.Context) (core.VehicleState, error) {
	return core.VehicleState{}, nil
}

func (c *countingReader) Position(context.Context) (core.Position, error) {
	c.reads++
	return core.Position{X: float64(c.reads)}, nil
}

func TestPoll_PositionReadSeparatelyPerSample(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	reader := &countingReader{}
	rec := newTestRecorder(reader, clk)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		_, err := rec.Poll(ctx, core.VehicleState{MET: float64(i) * 0.05, Altitude: float64(i)})
		require.NoError(t, err)
		clk.Advance(50 * time.Millisecond)
	}

	// position is only read for ticks that become samples
	assert.Equal(t, 2, reader.reads)
	samples := rec.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 1.0, samples[0].X)
	assert.Equal(t, 0.0, samples[0].Altitude, "altitude comes from the state passed in")
	assert.Equal(t, 2.0, samples[1].X)
	assert.Equal(t, 20.0, samples[1].Altitude)
}
