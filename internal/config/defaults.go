package config

import "time"

// DefaultGuidanceConfig returns the stock ascent thresholds.
func DefaultGuidanceConfig() GuidanceConfig {
	return GuidanceConfig{
		TurnStartSpeed:    100,
		PitchHoldAltitude: 71000,
		PitchHoldSpeed:    1500,
		PitchHoldTarget:   1,
		Profile: ProfileConfig{
			StartAltitude: 1000,
			EndAltitude:   70000,
			StartPitch:    90,
			EndPitch:      5,
		},
	}
}

// DefaultStagingConfig returns the stock separation settings.
func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		SolidFuelThreshold: 0.01,
		SettleDelay:        time.Second,
		SASInitDelay:       200 * time.Millisecond,
	}
}

// DefaultManeuverConfig returns the stock circularization timing.
func DefaultManeuverConfig() ManeuverConfig {
	return ManeuverConfig{
		LeadTime:     30 * time.Second,
		PollInterval: 5 * time.Second,
		Margin:       5 * time.Second,
		SASSettle:    time.Second,
		BurnTicks:    30,
		BurnTick:     time.Second,
		ReportEvery:  5,
	}
}

// DefaultRecorderConfig returns the stock sampling cadence.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Interval:      time.Second,
		AnnounceEvery: 10 * time.Second,
	}
}
