package ascent

import "fmt"

// Phase is a step of the ascent. Phases only move forward.
type Phase int

const (
	PoweredLiftoff Phase = iota
	GravityTurn
	PitchHoldEntry
	GravityTurnComplete
	Circularizing
	DataDrainOnly
)

var phaseNames = [...]string{
	PoweredLiftoff:      "powered_liftoff",
	GravityTurn:         "gravity_turn",
	PitchHoldEntry:      "pitch_hold_entry",
	GravityTurnComplete: "gravity_turn_complete",
	Circularizing:       "circularizing",
	DataDrainOnly:       "data_drain_only",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Terminal reports whether p is the last phase.
func (p Phase) Terminal() bool { return p == DataDrainOnly }
