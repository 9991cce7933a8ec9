package control

import (
	"time"

	"drive-service/internal/types"
)

const (
	// NeutralHoldDuration pins both actuators to neutral after an
	// explicit neutral command, long enough for a bench operator to
	// let go of the transmitter.
	NeutralHoldDuration = 2 * time.Second

	danceStepInterval = 250 * time.Millisecond
	danceSwing        = 300 // µs either side of neutral
)

// bootScript is the power-on actuator sweep: hard left, hard right,
// center. It doubles as a visible confirmation that the servos respond.
var bootScript = []scriptStep{
	{steering: types.PulseMin, throttle: types.PulseNeutral, dur: 300 * time.Millisecond},
	{steering: types.PulseMax, throttle: types.PulseNeutral, dur: 300 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: types.PulseNeutral, dur: 400 * time.Millisecond},
}

// testScript exercises both actuators through their extremes plus short
// throttle pulses in each direction. Total length matches
// fsm.TestDuration.
var testScript = []scriptStep{
	{steering: types.PulseMin, throttle: types.PulseNeutral, dur: 1000 * time.Millisecond},
	{steering: types.PulseMax, throttle: types.PulseNeutral, dur: 1000 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: types.PulseNeutral, dur: 500 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: 1650, dur: 1250 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: types.PulseNeutral, dur: 500 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: 1350, dur: 1250 * time.Millisecond},
	{steering: types.PulseNeutral, throttle: types.PulseNeutral, dur: 500 * time.Millisecond},
}

type scriptStep struct {
	steering int
	throttle int
	dur      time.Duration
}

// stepAt walks a script by elapsed time. Past the end it holds the last
// step, which is always neutral.
func stepAt(script []scriptStep, elapsed time.Duration) scriptStep {
	var at time.Duration
	for _, st := range script {
		at += st.dur
		if elapsed < at {
			return st
		}
	}
	return script[len(script)-1]
}

// scriptOutput returns the scripted actuator output for the current
// mode, or nil when no script owns the actuators this cycle.
func (s *DriveSystem) scriptOutput(mode types.Mode, now time.Duration) *types.ActuatorOutput {
	s.mu.Lock()
	hold := s.neutralHoldUntil
	start := s.scriptStart
	s.mu.Unlock()

	if hold != 0 && now < hold {
		out := types.Neutral()
		return &out
	}

	switch mode {
	case types.ModeBooting:
		st := stepAt(bootScript, now-start)
		return &types.ActuatorOutput{SteeringMicros: st.steering, ThrottleMicros: st.throttle}
	case types.ModeDance:
		out := s.danceOutput(now)
		return &out
	case types.ModeTest:
		st := stepAt(testScript, now-start)
		return &types.ActuatorOutput{SteeringMicros: st.steering, ThrottleMicros: st.throttle}
	}
	return nil
}

// danceOutput picks a fresh random steering target on a fixed beat and
// keeps the throttle at neutral so the chassis never drives off.
func (s *DriveSystem) danceOutput(now time.Duration) types.ActuatorOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now >= s.danceNextAt {
		s.danceTarget = types.PulseNeutral - danceSwing + s.rng.Intn(2*danceSwing+1)
		s.danceNextAt = now + danceStepInterval
	}
	return types.ActuatorOutput{SteeringMicros: s.danceTarget, ThrottleMicros: types.PulseNeutral}
}
