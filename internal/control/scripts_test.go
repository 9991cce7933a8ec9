package control

import (
	"testing"
	"time"

	"drive-service/internal/fsm"
	"drive-service/internal/types"
)

func TestBootScriptSequence(t *testing.T) {
	cases := []struct {
		at       time.Duration
		steering int
	}{
		{0, types.PulseMin},
		{299 * time.Millisecond, types.PulseMin},
		{350 * time.Millisecond, types.PulseMax},
		{700 * time.Millisecond, types.PulseNeutral},
		{5 * time.Second, types.PulseNeutral}, // past the end it holds center
	}
	for _, tc := range cases {
		st := stepAt(bootScript, tc.at)
		if st.steering != tc.steering {
			t.Errorf("at %v: expected steering %d, got %d", tc.at, tc.steering, st.steering)
		}
		if st.throttle != types.PulseNeutral {
			t.Errorf("at %v: boot sweep must keep throttle neutral, got %d", tc.at, st.throttle)
		}
	}
}

func TestTestScriptFillsModeWindow(t *testing.T) {
	var total time.Duration
	for _, st := range testScript {
		total += st.dur
	}
	if total != fsm.TestDuration {
		t.Errorf("Test script length %v does not match the test mode window %v", total, fsm.TestDuration)
	}
}

func TestDanceOutputStaysInBounds(t *testing.T) {
	system, _, _, _, _, clock := newTestDriveSystem(t)

	now := time.Second
	for i := 0; i < 100; i++ {
		clock.now = now
		out := system.danceOutput(now)
		if out.ThrottleMicros != types.PulseNeutral {
			t.Fatalf("Dance throttle must stay neutral, got %d", out.ThrottleMicros)
		}
		if out.SteeringMicros < types.PulseNeutral-danceSwing || out.SteeringMicros > types.PulseNeutral+danceSwing {
			t.Fatalf("Dance steering %d outside swing", out.SteeringMicros)
		}
		now += 100 * time.Millisecond
	}
}

func TestDanceOutputHoldsTargetBetweenBeats(t *testing.T) {
	system, _, _, _, _, _ := newTestDriveSystem(t)

	now := time.Second
	first := system.danceOutput(now)
	again := system.danceOutput(now + 100*time.Millisecond)
	if first.SteeringMicros != again.SteeringMicros {
		t.Error("Target must hold inside one dance beat")
	}
}
