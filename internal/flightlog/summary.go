package flightlog

import "github.com/ascentops/autopilot/pkg/core"

// Summary describes a finished flight log.
type Summary struct {
	Count    int
	First    core.FlightSample
	Last     core.FlightSample
	Duration float64 // s, last minus first sample time
}

// Summarize returns false for an empty log.
func Summarize(samples []core.FlightSample) (Summary, bool) {
	if len(samples) == 0 {
		return Summary{}, false
	}
	first, last := samples[0], samples[len(samples)-1]
	return Summary{
		Count:    len(samples),
		First:    first,
		Last:     last,
		Duration: last.Time - first.Time,
	}, true
}
