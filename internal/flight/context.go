package flight

import (
	"log/slog"
	"sync"

	"github.com/ascentops/autopilot/pkg/core"
)

// Context holds the live state of the current flight for loggers and handlers.
type Context struct {
	mu     sync.RWMutex
	flight *core.Flight
	phase  string
	level  string
	met    float64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		flight: &core.Flight{VesselName: "No flight loaded"},
	}
}

// Flight returns the current flight
func (c *Context) Flight() *core.Flight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flight
}

// SetFlight sets the current flight
func (c *Context) SetFlight(f *core.Flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flight = f
}

// Update records the latest phase, staging level and mission time.
func (c *Context) Update(phase, level string, met float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
	c.level = level
	c.met = met
}

// Phase returns the last recorded phase name.
func (c *Context) Phase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Level returns the last recorded staging level name.
func (c *Context) Level() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// MET returns the mission elapsed time of the last evaluated snapshot.
func (c *Context) MET() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.met
}

// Attrs returns the flight attributes attached to every log record.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.flight == nil || c.flight.FlightID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("flight_id", c.flight.FlightID),
		slog.String("phase", c.phase),
		slog.String("staging_level", c.level),
		slog.Float64("met", c.met),
	}
}
