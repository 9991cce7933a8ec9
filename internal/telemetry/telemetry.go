// Package telemetry publishes drive snapshots to MQTT, with an
// abstraction for testing.
package telemetry

import (
	"encoding/json"
	"time"

	"drive-service/internal/types"
)

// Topic is the MQTT topic for drive telemetry snapshots.
const Topic = "vehicles/drive/telemetry"

// Publisher publishes telemetry snapshots.
type Publisher interface {
	// Publish sends a snapshot to the broker. Errors are reported but
	// must never stop the control loop.
	Publish(t types.Telemetry) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the MQTT message structure.
type Payload struct {
	Drive DrivePayload `json:"drive"`
}

// DrivePayload carries one telemetry snapshot.
type DrivePayload struct {
	Timestamp       string  `json:"timestamp"`
	Mode            string  `json:"mode"`
	SteeringMicros  int     `json:"steering_us"`
	ThrottleMicros  int     `json:"throttle_us"`
	DistanceCM      int     `json:"distance_cm"`
	BatteryVolts    float64 `json:"battery_v"`
	SignalPresent   bool    `json:"signal"`
	RemotePresent   bool    `json:"remote"`
	ObstacleStop    bool    `json:"obstacle_stop"`
	RadioBatteryLow bool    `json:"radio_battery_low"`
}

// FormatPayload creates the JSON payload for a telemetry snapshot.
func FormatPayload(t types.Telemetry) ([]byte, error) {
	payload := Payload{
		Drive: DrivePayload{
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			Mode:            string(t.Mode),
			SteeringMicros:  t.SteeringMicros,
			ThrottleMicros:  t.ThrottleMicros,
			DistanceCM:      t.DistanceCM,
			BatteryVolts:    t.BatteryVolts,
			SignalPresent:   t.SignalPresent,
			RemotePresent:   t.RemotePresent,
			ObstacleStop:    t.ObstacleStop,
			RadioBatteryLow: t.RadioBatteryLow,
		},
	}
	return json.Marshal(payload)
}
