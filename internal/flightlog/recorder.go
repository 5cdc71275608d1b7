// Package flightlog samples the vessel into an ordered, append-only flight log.
package flightlog

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ascentops/autopilot/internal/clock"
	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/queue"
	"github.com/ascentops/autopilot/internal/telemetry"
	"github.com/ascentops/autopilot/pkg/core"
)

// Recorder appends one FlightSample per sampling interval of wall-clock time.
// Samples are best-effort: a tick that arrives late is simply sampled late.
type Recorder struct {
	mu sync.Mutex

	reader telemetry.Reader
	clock  clock.Clock
	cfg    config.RecorderConfig
	logger *slog.Logger

	samples *queue.Queue[core.FlightSample]

	active       bool
	lastSampleAt time.Time
	sampled      bool
	announced    int64
}

// NewRecorder returns an active recorder.
func NewRecorder(reader telemetry.Reader, clk clock.Clock, cfg config.RecorderConfig, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		reader:  reader,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With("component", "flightlog"),
		samples: queue.New[core.FlightSample](1024),
		active:  true,
	}
}

// Poll takes a sample from state if the sampling interval has elapsed.
// Position is read after state, so X and Y may lag the other fields by a tick.
// A position gap skips the sample and returns nil; boundary loss is returned.
func (r *Recorder) Poll(ctx context.Context, state core.VehicleState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return false, nil
	}
	now := r.clock.Now()
	if r.sampled && now.Sub(r.lastSampleAt) < r.cfg.Interval {
		return false, nil
	}

	pos, err := r.reader.Position(ctx)
	if err != nil {
		if telemetry.IsGap(err) {
			r.logger.Warn("skipping flight sample", "error", err, "met", state.MET)
			return false, nil
		}
		return false, err
	}

	if last, ok := r.samples.Last(); ok && state.MET < last.Time {
		r.logger.Debug("dropping out-of-order sample", "met", state.MET, "last", last.Time)
		return false, nil
	}

	r.samples.Push(core.FlightSample{
		Time:     state.MET,
		X:        pos.X,
		Y:        pos.Y,
		Altitude: state.Altitude,
		Speed:    state.Speed,
	})
	r.lastSampleAt = now
	r.sampled = true
	r.announce(state)
	return true, nil
}

// announce logs a data line whenever mission time enters a new announce window.
func (r *Recorder) announce(state core.VehicleState) {
	every := r.cfg.AnnounceEvery.Seconds()
	if every <= 0 || state.MET <= 0 {
		return
	}
	window := int64(math.Floor(state.MET / every))
	if window <= r.announced {
		return
	}
	r.announced = window
	r.logger.Info("[data]",
		"t", round1(state.MET),
		"h_km", round1(state.Altitude/1000),
		"v_ms", round1(state.Speed))
}

// Stop disables sampling. Later polls are no-ops.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
}

// Active reports whether sampling is enabled.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Len returns the number of samples taken.
func (r *Recorder) Len() int {
	return r.samples.Len()
}

// Samples returns a copy of the log.
func (r *Recorder) Samples() []core.FlightSample {
	return r.samples.Snapshot()
}

// Drain returns the log and empties it.
func (r *Recorder) Drain() []core.FlightSample {
	return r.samples.GetAndEmpty()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
