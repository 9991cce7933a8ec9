package relay

import (
	"testing"

	"drive-service/internal/types"
)

type recordingSink struct {
	commands   []types.RemoteCommand
	heartbeats int
}

func (r *recordingSink) RemoteCommand(steeringMicros, throttleMicros int) {
	r.commands = append(r.commands, types.RemoteCommand{
		SteeringMicros: steeringMicros,
		ThrottleMicros: throttleMicros,
	})
}

func (r *recordingSink) RemoteHeartbeat() {
	r.heartbeats++
}

func TestParseLinePing(t *testing.T) {
	sink := &recordingSink{}
	if err := ParseLine("PING", sink); err != nil {
		t.Fatalf("PING failed: %v", err)
	}
	if sink.heartbeats != 1 {
		t.Errorf("Expected 1 heartbeat, got %d", sink.heartbeats)
	}
	if len(sink.commands) != 0 {
		t.Errorf("PING must not produce a command, got %v", sink.commands)
	}
}

func TestParseLineCommand(t *testing.T) {
	sink := &recordingSink{}
	if err := ParseLine("CMD:1300:1700", sink); err != nil {
		t.Fatalf("CMD failed: %v", err)
	}
	if len(sink.commands) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(sink.commands))
	}
	if sink.commands[0].SteeringMicros != 1300 || sink.commands[0].ThrottleMicros != 1700 {
		t.Errorf("Expected 1300/1700, got %+v", sink.commands[0])
	}
}

func TestParseLineLegacyMove(t *testing.T) {
	sink := &recordingSink{}
	if err := ParseLine("CMD:MOVE:1400:1600", sink); err != nil {
		t.Fatalf("legacy CMD:MOVE failed: %v", err)
	}
	if len(sink.commands) != 1 || sink.commands[0].SteeringMicros != 1400 {
		t.Errorf("Expected legacy form accepted, got %v", sink.commands)
	}
}

func TestParseLineWhitespaceAndEmpty(t *testing.T) {
	sink := &recordingSink{}
	if err := ParseLine("  CMD:1300:1700\r", sink); err != nil {
		t.Fatalf("trimmed line failed: %v", err)
	}
	if err := ParseLine("", sink); err != nil {
		t.Errorf("empty line must be a no-op, got %v", err)
	}
	if err := ParseLine("   ", sink); err != nil {
		t.Errorf("blank line must be a no-op, got %v", err)
	}
	if len(sink.commands) != 1 {
		t.Errorf("Expected exactly 1 command, got %d", len(sink.commands))
	}
}

func TestParseLineMalformed(t *testing.T) {
	sink := &recordingSink{}
	cases := []string{
		"NOPE",
		"CMD:1300",
		"CMD:abc:1700",
		"CMD:1300:xyz",
		"CMD:MOVE:1300",
		"TELEM:1:2:3:4:5",
	}
	for _, line := range cases {
		if err := ParseLine(line, sink); err == nil {
			t.Errorf("Expected error for %q", line)
		}
	}
	if len(sink.commands) != 0 || sink.heartbeats != 0 {
		t.Errorf("Malformed lines must not reach the sink: %v / %d", sink.commands, sink.heartbeats)
	}
}

func TestFormatTelemetry(t *testing.T) {
	line := FormatTelemetry(types.Telemetry{
		SteeringMicros: 1480,
		ThrottleMicros: 1520,
		DistanceCM:     34,
		BatteryVolts:   7.43,
		SignalPresent:  true,
	})
	if line != "TELEM:1480:1520:34:7.4:1" {
		t.Errorf("Unexpected telemetry line: %q", line)
	}
}

func TestFormatTelemetryNoEcho(t *testing.T) {
	line := FormatTelemetry(types.Telemetry{
		SteeringMicros: 1500,
		ThrottleMicros: 1500,
		DistanceCM:     -1,
		BatteryVolts:   6.0,
	})
	if line != "TELEM:1500:1500:-1:6.0:0" {
		t.Errorf("Unexpected telemetry line: %q", line)
	}
}
