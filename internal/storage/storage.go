package storage

import (
	"errors"

	"github.com/ascentops/autopilot/pkg/core"
)

// ErrUnknownBackend is returned for an unrecognised storage.type.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartFlight registers a new flight and assigns its ID to the passed pointer.
	StartFlight(f *core.Flight) error
	// EndFlight persists anything still buffered for the current flight.
	EndFlight() error

	// Recording
	RecordSamples(samples []core.FlightSample) error
	RecordEvent(e *core.FlightEvent) error
}

// Exportable is an optional interface for backends that write the flight log to a file.
type Exportable interface {
	ExportedFilePath() string
}
