package telemetry

import (
	"encoding/json"
	"testing"

	"drive-service/internal/types"
)

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(types.Telemetry{
		Mode:           types.ModeNormal,
		SteeringMicros: 1480,
		ThrottleMicros: 1650,
		DistanceCM:     42,
		BatteryVolts:   7.4,
		SignalPresent:  true,
		ObstacleStop:   false,
	})
	if err != nil {
		t.Fatalf("FormatPayload failed: %v", err)
	}

	var decoded Payload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	d := decoded.Drive
	if d.Mode != "normal" {
		t.Errorf("Expected mode normal, got %q", d.Mode)
	}
	if d.SteeringMicros != 1480 || d.ThrottleMicros != 1650 {
		t.Errorf("Expected 1480/1650, got %d/%d", d.SteeringMicros, d.ThrottleMicros)
	}
	if d.DistanceCM != 42 {
		t.Errorf("Expected distance 42, got %d", d.DistanceCM)
	}
	if !d.SignalPresent {
		t.Error("Expected signal present")
	}
	if d.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
}

func TestFakePublisherRecords(t *testing.T) {
	fake := NewFakePublisher()

	snap := types.Telemetry{Mode: types.ModeDance, SteeringMicros: 1700}
	if err := fake.Publish(snap); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(fake.Snapshots) != 1 || fake.Snapshots[0].Mode != types.ModeDance {
		t.Errorf("Expected snapshot recorded, got %v", fake.Snapshots)
	}
	if len(fake.Payloads) != 1 {
		t.Errorf("Expected payload recorded, got %d", len(fake.Payloads))
	}

	if err := fake.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fake.Closed {
		t.Error("Expected Closed flag set")
	}
}
