package guidance

import (
	"math"
	"time"

	"go.einride.tech/pid"
)

// MaxAuthority bounds the pitch control output in both directions.
const MaxAuthority = 0.4

// Gain tiers. Larger errors get a coarser gain.
const (
	coarseBand = 30.0
	mediumBand = 15.0

	coarseGain = 1.0 / 40
	mediumGain = 1.0 / 30
	fineGain   = 1.0 / 50
)

// Gain returns the proportional gain scheduled for an error of absErr degrees.
// Band edges belong to the finer tier.
func Gain(absErr float64) float64 {
	switch {
	case absErr > coarseBand:
		return coarseGain
	case absErr > mediumBand:
		return mediumGain
	default:
		return fineGain
	}
}

// Step is one controller evaluation.
type Step struct {
	Target    float64
	Current   float64
	Error     float64
	Gain      float64
	Authority float64
}

// Evaluate runs the controller from current toward target, both in degrees.
func Evaluate(target, current float64) Step {
	e := target - current
	gain := Gain(math.Abs(e))

	// A fresh controller per call keeps the law stateless: with no integral
	// or derivative gain the signal is gain*error.
	c := pid.Controller{
		Config: pid.ControllerConfig{ProportionalGain: gain},
	}
	c.Update(pid.ControllerInput{
		ReferenceSignal:  target,
		ActualSignal:     current,
		SamplingInterval: time.Second,
	})

	return Step{
		Target:    target,
		Current:   current,
		Error:     e,
		Gain:      gain,
		Authority: clamp(c.State.ControlSignal, -MaxAuthority, MaxAuthority),
	}
}

// PitchAuthority returns the saturated control output in [-0.4, 0.4].
func PitchAuthority(target, current float64) float64 {
	return Evaluate(target, current).Authority
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
