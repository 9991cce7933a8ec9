package types

import "time"

// Mode is the vehicle operating mode. Exactly one is active at a time;
// it is owned by the mode state machine and read-only everywhere else.
type Mode string

const (
	ModeAwaitingPower  Mode = "awaiting-power"
	ModeBooting        Mode = "booting"
	ModeAwaitingSignal Mode = "awaiting-signal"
	ModeDebugOverride  Mode = "debug-override"
	ModeDance          Mode = "dance"
	ModeTest           Mode = "test"
	ModeNormal         Mode = "normal"
)

// Actuator pulse width limits, in microseconds.
const (
	PulseMin     = 1000
	PulseMax     = 2000
	PulseNeutral = 1500

	// Acceptance window for raw receiver pulses. Wider than the actuator
	// range so slightly out-of-trim transmitters still register; anything
	// outside is electrical noise and is discarded at the source.
	PulseValidMin = 900
	PulseValidMax = 2100
)

// ClampPulse clamps a pulse width into the actuator range.
func ClampPulse(us int) int {
	if us < PulseMin {
		return PulseMin
	}
	if us > PulseMax {
		return PulseMax
	}
	return us
}

// ChannelSample is the last committed reading of one RC input channel.
// Written only by that channel's edge handler; everyone else gets a copy.
// Timestamps are on the kernel monotonic clock (duration since boot).
type ChannelSample struct {
	PulseWidthMicros int
	LastEdge         time.Duration
	PrevEdge         time.Duration
	Commits          uint32
}

// RemoteCommand is a steering/throttle pair received from the remote
// server, already clamped into the actuator range.
type RemoteCommand struct {
	SteeringMicros int
	ThrottleMicros int
}

// ActuatorOutput is the only value ever written to the drive outputs.
type ActuatorOutput struct {
	SteeringMicros int
	ThrottleMicros int
}

// Neutral is the fail-safe output: centered steering, no throttle.
func Neutral() ActuatorOutput {
	return ActuatorOutput{SteeringMicros: PulseNeutral, ThrottleMicros: PulseNeutral}
}

// Indicators are the discrete lamp outputs derived from the arbitrated
// actuator values. They never feed back into control.
type Indicators struct {
	TurnLeft   bool
	TurnRight  bool
	Brake      bool
	StatusLamp bool
}

// Telemetry is the snapshot emitted to the relay, Redis and MQTT sinks.
type Telemetry struct {
	Mode            Mode
	SteeringMicros  int
	ThrottleMicros  int
	DistanceCM      int // -1 when no ranging data
	BatteryVolts    float64
	SignalPresent   bool
	RemotePresent   bool
	ObstacleStop    bool
	RadioBatteryLow bool
}
