// Package metrics exposes live flight values as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ascentops/autopilot/pkg/core"
)

// Flight holds the collectors of one flight.
type Flight struct {
	registry *prometheus.Registry

	Altitude       prometheus.Gauge
	Speed          prometheus.Gauge
	Pitch          prometheus.Gauge
	Apoapsis       prometheus.Gauge
	Periapsis      prometheus.Gauge
	TimeToApoapsis prometheus.Gauge
	Thrust         prometheus.Gauge
	MET            prometheus.Gauge
	PitchAuthority prometheus.Gauge
	Phase          prometheus.Gauge
	StagingLevel   prometheus.Gauge
	Samples        prometheus.Gauge

	Ticks         prometheus.Counter
	TelemetryGaps prometheus.Counter
	Events        *prometheus.CounterVec
}

// New registers the flight collectors on a fresh registry.
func New() *Flight {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: "ascent", Name: name, Help: help})
	}

	return &Flight{
		registry:       reg,
		Altitude:       gauge("altitude_meters", "Mean altitude of the vessel"),
		Speed:          gauge("speed_meters_per_second", "Speed in the orbited body's frame"),
		Pitch:          gauge("pitch_degrees", "Vessel pitch"),
		Apoapsis:       gauge("apoapsis_meters", "Apoapsis altitude"),
		Periapsis:      gauge("periapsis_meters", "Periapsis altitude"),
		TimeToApoapsis: gauge("time_to_apoapsis_seconds", "Time until apoapsis"),
		Thrust:         gauge("thrust_newtons", "Net vessel thrust"),
		MET:            gauge("mission_elapsed_seconds", "Mission elapsed time"),
		PitchAuthority: gauge("pitch_authority", "Last pitch control output"),
		Phase:          gauge("phase", "Ascent phase index"),
		StagingLevel:   gauge("staging_level", "Staging boundaries crossed"),
		Samples:        gauge("flight_log_samples", "Samples in the flight log"),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ascent", Name: "ticks_total", Help: "Control ticks evaluated",
		}),
		TelemetryGaps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ascent", Name: "telemetry_gaps_total", Help: "Ticks skipped for missing telemetry",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascent", Name: "events_total", Help: "Flight events by kind",
		}, []string{"kind"}),
	}
}

// Observe records a telemetry snapshot.
func (f *Flight) Observe(s core.VehicleState) {
	f.Altitude.Set(s.Altitude)
	f.Speed.Set(s.Speed)
	f.Pitch.Set(s.Pitch)
	f.Apoapsis.Set(s.Apoapsis)
	f.Periapsis.Set(s.Periapsis)
	f.TimeToApoapsis.Set(s.TimeToApoapsis)
	f.Thrust.Set(s.Thrust)
	f.MET.Set(s.MET)
}

// CountEvent is a dispatcher handler counting events by kind.
func (f *Flight) CountEvent(e core.FlightEvent) error {
	f.Events.WithLabelValues(e.Kind).Inc()
	return nil
}

// Registry returns the registry holding the flight collectors.
func (f *Flight) Registry() *prometheus.Registry { return f.registry }

// Handler serves the flight collectors.
func (f *Flight) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{Registry: f.registry})
}
