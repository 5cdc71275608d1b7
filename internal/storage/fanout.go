package storage

import (
	"errors"

	"github.com/ascentops/autopilot/pkg/core"
)

// Fanout forwards every call to each backend in order and joins their errors.
type Fanout []Backend

func (f Fanout) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range f {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Init() error {
	return f.each(Backend.Init)
}

func (f Fanout) Close() error {
	return f.each(Backend.Close)
}

func (f Fanout) StartFlight(flight *core.Flight) error {
	return f.each(func(b Backend) error { return b.StartFlight(flight) })
}

func (f Fanout) EndFlight() error {
	return f.each(Backend.EndFlight)
}

func (f Fanout) RecordSamples(samples []core.FlightSample) error {
	return f.each(func(b Backend) error { return b.RecordSamples(samples) })
}

func (f Fanout) RecordEvent(e *core.FlightEvent) error {
	return f.each(func(b Backend) error { return b.RecordEvent(e) })
}

// ExportedFilePath returns the first non-empty export path among the backends.
func (f Fanout) ExportedFilePath() string {
	for _, b := range f {
		if ex, ok := b.(Exportable); ok {
			if p := ex.ExportedFilePath(); p != "" {
				return p
			}
		}
	}
	return ""
}
