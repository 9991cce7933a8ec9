package relay

import (
	"fmt"
	"strconv"
	"strings"

	"drive-service/internal/types"
)

// Sink receives parsed bridge traffic. DriveSystem implements it; the
// parser stays free of control-loop state so it tests in isolation.
type Sink interface {
	// RemoteCommand delivers a movement command, microsecond pulse
	// widths already clamped by the receiver.
	RemoteCommand(steeringMicros, throttleMicros int)

	// RemoteHeartbeat signals link presence without a command.
	RemoteHeartbeat()
}

// ParseLine decodes one line of the bridge grammar:
//
//	PING
//	CMD:<steering_us>:<throttle_us>
//	CMD:MOVE:<steering_us>:<throttle_us>   (legacy form)
//
// Unknown verbs and malformed fields are errors; the caller decides
// whether to log or drop them.
func ParseLine(line string, sink Sink) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if line == "PING" {
		sink.RemoteHeartbeat()
		return nil
	}

	parts := strings.Split(line, ":")
	if parts[0] != "CMD" {
		return fmt.Errorf("unknown bridge verb: %q", parts[0])
	}

	var steerField, thrField string
	switch {
	case len(parts) == 3:
		steerField, thrField = parts[1], parts[2]
	case len(parts) == 4 && parts[1] == "MOVE":
		steerField, thrField = parts[2], parts[3]
	default:
		return fmt.Errorf("malformed command line: %q", line)
	}

	steering, err := strconv.Atoi(steerField)
	if err != nil {
		return fmt.Errorf("bad steering field %q: %w", steerField, err)
	}
	throttle, err := strconv.Atoi(thrField)
	if err != nil {
		return fmt.Errorf("bad throttle field %q: %w", thrField, err)
	}

	sink.RemoteCommand(steering, throttle)
	return nil
}

// FormatTelemetry renders the outbound line:
//
//	TELEM:<steering_us>:<throttle_us>:<distance_cm>:<battery_v>:<rx>
//
// Distance is -1 when ranging has no echo; rx is 1 while radio signal
// is present.
func FormatTelemetry(t types.Telemetry) string {
	rx := 0
	if t.SignalPresent {
		rx = 1
	}
	return fmt.Sprintf("TELEM:%d:%d:%d:%.1f:%d",
		t.SteeringMicros, t.ThrottleMicros, t.DistanceCM, t.BatteryVolts, rx)
}
