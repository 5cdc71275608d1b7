// pkg/core/events.go
package core

import "time"

// Event kinds published while flying.
const (
	EventPhase    = "phase"
	EventStaging  = "staging"
	EventManeuver = "maneuver"
)

// FlightEvent is a discrete flight milestone such as a phase change or a stage separation.
type FlightEvent struct {
	Kind    string
	MET     float64
	Time    time.Time
	From    string
	To      string
	Message string
}

// EventSink receives flight events. Implementations must not block the flight loop.
type EventSink interface {
	Publish(FlightEvent)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(FlightEvent) {}
