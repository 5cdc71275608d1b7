package core

import "time"

// Flight describes one recorded ascent.
type Flight struct {
	ID         uint
	FlightID   string
	VesselName string
	StartTime  time.Time
	Version    string
	// Params holds the guidance thresholds the flight was flown with.
	Params map[string]float64
}

// FlightSample is one row of the flight log.
type FlightSample struct {
	Time     float64 // mission elapsed time, s
	X        float64
	Y        float64
	Altitude float64
	Speed    float64
}

// Tuple returns the sample in its persisted order: time, x, y, altitude, speed.
func (s FlightSample) Tuple() [5]float64 {
	return [5]float64{s.Time, s.X, s.Y, s.Altitude, s.Speed}
}
