// Package influxstorage streams the flight log and events to InfluxDB as points.
package influxstorage

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ascentops/autopilot/internal/influx"
	"github.com/ascentops/autopilot/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	// MeasurementSample holds one point per flight log row.
	MeasurementSample = "flight_sample"
	// MeasurementEvent holds one point per flight event.
	MeasurementEvent = "flight_event"
)

var errNoFlight = errors.New("no flight started")

// PointWriter is the part of influx.Manager the backend needs.
type PointWriter interface {
	Connect(ctx context.Context) error
	WritePoint(point *influxdb2_write.Point) error
	Flush() error
	Close() error
}

var _ PointWriter = (*influx.Manager)(nil)

// Backend implements storage.Backend on an InfluxDB manager.
type Backend struct {
	w       PointWriter
	timeout time.Duration

	mu     sync.RWMutex
	flight *core.Flight
}

// New creates a backend that connects on Init, waiting at most timeout.
func New(w PointWriter, timeout time.Duration) *Backend {
	return &Backend{w: w, timeout: timeout}
}

func (b *Backend) Init() error {
	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.w.Connect(ctx)
}

func (b *Backend) Close() error {
	return b.w.Close()
}

func (b *Backend) StartFlight(f *core.Flight) error {
	b.mu.Lock()
	b.flight = f
	b.mu.Unlock()

	return b.w.WritePoint(EventPoint(*f, core.FlightEvent{
		Kind:    "flight",
		Time:    f.StartTime,
		Message: "start",
	}))
}

func (b *Backend) EndFlight() error {
	if b.current() == nil {
		return errNoFlight
	}
	return b.w.Flush()
}

func (b *Backend) RecordSamples(samples []core.FlightSample) error {
	f := b.current()
	if f == nil {
		return errNoFlight
	}

	var errs []error
	for _, s := range samples {
		if err := b.w.WritePoint(SamplePoint(*f, s)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) RecordEvent(e *core.FlightEvent) error {
	f := b.current()
	if f == nil {
		return errNoFlight
	}
	return b.w.WritePoint(EventPoint(*f, *e))
}

func (b *Backend) current() *core.Flight {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.flight
}

// SamplePoint stamps s at flight start plus its mission time.
func SamplePoint(f core.Flight, s core.FlightSample) *influxdb2_write.Point {
	met := time.Duration(math.Round(s.Time * float64(time.Second)))
	return influxdb2_write.NewPoint(MeasurementSample,
		map[string]string{
			"flight_id": f.FlightID,
			"vessel":    f.VesselName,
		},
		map[string]interface{}{
			"met":      s.Time,
			"x":        s.X,
			"y":        s.Y,
			"altitude": s.Altitude,
			"speed":    s.Speed,
		},
		f.StartTime.Add(met),
	)
}

// EventPoint converts a flight event.
func EventPoint(f core.Flight, e core.FlightEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementEvent,
		map[string]string{
			"flight_id": f.FlightID,
			"vessel":    f.VesselName,
			"kind":      e.Kind,
		},
		map[string]interface{}{
			"met":     e.MET,
			"from":    e.From,
			"to":      e.To,
			"message": e.Message,
		},
		e.Time,
	)
}
