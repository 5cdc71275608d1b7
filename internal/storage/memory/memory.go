// Package memory keeps the flight in memory and exports the flight log as JSON.
package memory

import (
	"errors"
	"sync"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/pkg/core"
)

var errNoFlight = errors.New("no flight started")

// Backend stores flight data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	flight *core.Flight

	samples []core.FlightSample
	events  []core.FlightEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartFlight begins recording a new flight and resets previous data.
func (b *Backend) StartFlight(f *core.Flight) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	f.ID = b.idCounter
	b.flight = f
	b.samples = nil
	b.events = nil
	b.lastExportPath = ""
	return nil
}

// EndFlight writes the flight log to disk.
func (b *Backend) EndFlight() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return errNoFlight
	}
	return b.exportJSON()
}

// RecordSamples appends flight log rows.
func (b *Backend) RecordSamples(samples []core.FlightSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, samples...)
	return nil
}

// RecordEvent appends a flight event.
func (b *Backend) RecordEvent(e *core.FlightEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// Samples returns a copy of the recorded flight log.
func (b *Backend) Samples() []core.FlightSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FlightSample(nil), b.samples...)
}

// Events returns a copy of the recorded events.
func (b *Backend) Events() []core.FlightEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FlightEvent(nil), b.events...)
}

// ExportedFilePath returns the path of the last exported file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
