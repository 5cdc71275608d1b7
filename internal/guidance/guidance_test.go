package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ascentops/autopilot/internal/config"
)

func TestTargetPitch(t *testing.T) {
	tests := []struct {
		altitude float64
		want     float64
	}{
		{-250, 90},
		{0, 90},
		{500, 90},
		{1000, 90},
		{35500, 47.5},
		{70000, 5},
		{90000, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TargetPitch(tt.altitude), 1e-9, "altitude %v", tt.altitude)
	}
}

func TestTargetPitch_MonotonicOverTurn(t *testing.T) {
	prev := TargetPitch(1000)
	for alt := 1000.0; alt <= 70000; alt += 250 {
		got := TargetPitch(alt)
		assert.LessOrEqual(t, got, prev, "altitude %v", alt)
		prev = got
	}
}

func TestNewProfile_FromConfig(t *testing.T) {
	p := NewProfile(config.DefaultGuidanceConfig().Profile)
	assert.Equal(t, DefaultProfile, p)
}

func TestGain_Tiers(t *testing.T) {
	assert.Equal(t, coarseGain, Gain(30.0001))
	assert.Equal(t, mediumGain, Gain(30))
	assert.Equal(t, mediumGain, Gain(15.5))
	assert.Equal(t, fineGain, Gain(15))
	assert.Equal(t, fineGain, Gain(0))
}

func TestPitchAuthority_Saturates(t *testing.T) {
	assert.Equal(t, MaxAuthority, PitchAuthority(95, 0))
	assert.Equal(t, -MaxAuthority, PitchAuthority(0, 95))

	for target := -180.0; target <= 180; target += 7.5 {
		for current := -90.0; current <= 90; current += 4.5 {
			got := PitchAuthority(target, current)
			assert.LessOrEqual(t, got, MaxAuthority)
			assert.GreaterOrEqual(t, got, -MaxAuthority)
		}
	}
}

func TestEvaluate(t *testing.T) {
	step := Evaluate(95, 0)
	assert.Equal(t, 95.0, step.Error)
	assert.Equal(t, coarseGain, step.Gain)
	assert.Equal(t, 0.4, step.Authority)

	step = Evaluate(40, 10)
	assert.Equal(t, mediumGain, step.Gain)
	assert.InDelta(t, 1.0, step.Error*step.Gain, 1e-9)
	assert.Equal(t, 0.4, step.Authority)

	step = Evaluate(50, 45)
	assert.Equal(t, fineGain, step.Gain)
	assert.InDelta(t, 0.1, step.Authority, 1e-9)

	step = Evaluate(1, 6)
	assert.InDelta(t, -0.1, step.Authority, 1e-9)
}
