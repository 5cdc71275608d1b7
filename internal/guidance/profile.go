// Package guidance holds the pure ascent guidance law: a piecewise-linear
// pitch program over altitude and a gain-scheduled proportional controller.
package guidance

import "github.com/ascentops/autopilot/internal/config"

// Profile is a pitch program: vertical below StartAltitude, a linear tilt
// from StartPitch to EndPitch up to EndAltitude, then EndPitch.
type Profile struct {
	StartAltitude float64
	EndAltitude   float64
	StartPitch    float64
	EndPitch      float64
}

// DefaultProfile tilts from 90° at 1 km to 5° at 70 km.
var DefaultProfile = Profile{
	StartAltitude: 1000,
	EndAltitude:   70000,
	StartPitch:    90,
	EndPitch:      5,
}

// NewProfile builds a Profile from configuration.
func NewProfile(cfg config.ProfileConfig) Profile {
	return Profile{
		StartAltitude: cfg.StartAltitude,
		EndAltitude:   cfg.EndAltitude,
		StartPitch:    cfg.StartPitch,
		EndPitch:      cfg.EndPitch,
	}
}

// Target returns the pitch target in degrees for altitude in metres.
// Negative altitudes fall in the vertical regime.
func (p Profile) Target(altitude float64) float64 {
	switch {
	case altitude < p.StartAltitude:
		return p.StartPitch
	case altitude >= p.EndAltitude:
		return p.EndPitch
	}
	span := p.StartPitch - p.EndPitch
	return p.StartPitch - span*(altitude-p.StartAltitude)/(p.EndAltitude-p.StartAltitude)
}

// TargetPitch evaluates DefaultProfile.
func TargetPitch(altitude float64) float64 {
	return DefaultProfile.Target(altitude)
}
