package telemetry

import (
	"context"
	"sync"

	"github.com/ascentops/autopilot/pkg/core"
)

// Write is one actuator write captured by a Recording.
type Write struct {
	Field string
	Value float64
	Mode  core.SASMode
}

// Recording is an Actuator that captures writes instead of sending them.
// It backs dry runs and tests.
type Recording struct {
	mu     sync.Mutex
	writes []Write
	stages int
}

func (r *Recording) add(w Write) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, w)
	return nil
}

func (r *Recording) SetThrottle(_ context.Context, v float64) error {
	return r.add(Write{Field: "throttle", Value: v})
}

func (r *Recording) SetPitch(_ context.Context, v float64) error {
	return r.add(Write{Field: "pitch", Value: v})
}

func (r *Recording) SetRoll(_ context.Context, v float64) error {
	return r.add(Write{Field: "roll", Value: v})
}

func (r *Recording) SetSAS(_ context.Context, on bool) error {
	v := 0.0
	if on {
		v = 1
	}
	return r.add(Write{Field: "sas", Value: v})
}

func (r *Recording) SetSASMode(_ context.Context, mode core.SASMode) error {
	return r.add(Write{Field: "sas_mode", Mode: mode})
}

func (r *Recording) ActivateNextStage(_ context.Context) error {
	r.mu.Lock()
	r.stages++
	r.mu.Unlock()
	return r.add(Write{Field: "stage"})
}

// Writes returns all captured writes in order.
func (r *Recording) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Write, len(r.writes))
	copy(out, r.writes)
	return out
}

// Stages returns how many times the next stage was activated.
func (r *Recording) Stages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stages
}

// Last returns the most recent write to field.
func (r *Recording) Last(field string) (Write, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.writes) - 1; i >= 0; i-- {
		if r.writes[i].Field == field {
			return r.writes[i], true
		}
	}
	return Write{}, false
}

// Count returns how many writes were made to field.
func (r *Recording) Count(field string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.writes {
		if w.Field == field {
			n++
		}
	}
	return n
}
