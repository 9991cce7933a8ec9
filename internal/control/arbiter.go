package control

import (
	"time"

	"drive-service/internal/types"
)

// Indicator timing and thresholds
const (
	// TurnSignalThreshold is the steering offset from the captured
	// baseline, in microseconds, past which a turn indicator blinks.
	TurnSignalThreshold = 80

	// BrakeBelowBaseline is how far below the throttle baseline the
	// output must fall before the brake lamp lights.
	BrakeBelowBaseline = 5

	turnBlinkPeriod  = 400 * time.Millisecond
	debugBlinkPeriod = 150 * time.Millisecond

	// Status lamp sweep while awaiting signal
	sweepInterval = 15 * time.Second
	sweepPulse    = 500 * time.Millisecond
)

// Snapshot is everything one control cycle needs to decide the actuator
// outputs. It is assembled by DriveSystem and consumed by the pure
// Arbitrate / DeriveIndicators pair so the arbitration rules are
// testable without hardware or goroutines.
type Snapshot struct {
	Mode types.Mode
	Now  time.Duration

	Steering      types.ChannelSample
	Throttle      types.ChannelSample
	SteeringFresh bool
	ThrottleFresh bool

	Remote       types.RemoteCommand
	RemoteActive bool

	// Script, when non-nil, owns both actuators outright (boot sweep,
	// dance, self-test, neutral hold).
	Script *types.ActuatorOutput

	ObstacleStop bool

	SteeringBaseline int
	ThrottleBaseline int

	SignalPresent bool
	SweepStart    time.Duration
}

// Arbitrate resolves one cycle's actuator output. Priority order:
// scripted sequence, then an unexpired bridge command (normal and
// debug-override only), then per-axis fresh radio input, then neutral.
// The obstacle stop clamps throttle to neutral on top of every source.
func Arbitrate(s Snapshot) types.ActuatorOutput {
	out := types.Neutral()

	switch {
	case s.Script != nil:
		out = *s.Script

	case s.RemoteActive && (s.Mode == types.ModeNormal || s.Mode == types.ModeDebugOverride):
		out.SteeringMicros = s.Remote.SteeringMicros
		out.ThrottleMicros = s.Remote.ThrottleMicros

	case s.Mode == types.ModeNormal:
		// Each axis fails to neutral independently.
		if s.SteeringFresh {
			out.SteeringMicros = s.Steering.PulseWidthMicros
		}
		if s.ThrottleFresh {
			out.ThrottleMicros = s.Throttle.PulseWidthMicros
		}

	case s.Mode == types.ModeDebugOverride:
		// Bench mode ignores freshness: the last committed width
		// drives the servo even when the frame stream has stopped.
		if s.Steering.Commits > 0 {
			out.SteeringMicros = s.Steering.PulseWidthMicros
		}
		if s.Throttle.Commits > 0 {
			out.ThrottleMicros = s.Throttle.PulseWidthMicros
		}
	}

	if s.ObstacleStop {
		out.ThrottleMicros = types.PulseNeutral
	}

	out.SteeringMicros = types.ClampPulse(out.SteeringMicros)
	out.ThrottleMicros = types.ClampPulse(out.ThrottleMicros)
	return out
}

// DeriveIndicators maps the arbitrated output and mode onto the
// indicator lamps. Turn signals blink at a fixed period regardless of
// which source produced the steering value.
func DeriveIndicators(out types.ActuatorOutput, s Snapshot) types.Indicators {
	var ind types.Indicators

	blinkOn := (s.Now/(turnBlinkPeriod/2))%2 == 0

	offset := out.SteeringMicros - s.SteeringBaseline
	switch {
	case offset > TurnSignalThreshold:
		ind.TurnRight = blinkOn
	case offset < -TurnSignalThreshold:
		ind.TurnLeft = blinkOn
	}

	ind.Brake = out.ThrottleMicros < s.ThrottleBaseline-BrakeBelowBaseline

	switch s.Mode {
	case types.ModeNormal:
		ind.StatusLamp = true
	case types.ModeAwaitingSignal:
		since := s.Now - s.SweepStart
		ind.StatusLamp = since >= 0 && since%sweepInterval < sweepPulse
	case types.ModeDebugOverride:
		ind.StatusLamp = (s.Now/debugBlinkPeriod)%2 == 0
	case types.ModeBooting, types.ModeDance, types.ModeTest:
		ind.StatusLamp = blinkOn
	}

	return ind
}
