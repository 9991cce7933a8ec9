package control

import (
	"drive-service/internal/messaging"
	"drive-service/internal/types"
)

// ActuatorIO defines the hardware output operations needed by DriveSystem
type ActuatorIO interface {
	Initialize() error
	Cleanup()

	// Servo outputs, microsecond pulse widths in [1000, 2000]
	WriteServo(channel string, micros int) error

	// Discrete indicator outputs
	WriteIndicator(channel string, on bool) error
}

// RadioChannel is a copy-out view of one RC input channel
type RadioChannel interface {
	Snapshot() types.ChannelSample
}

// MessagingClient defines the Redis operations needed by DriveSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishMode(mode types.Mode) error
	PublishTelemetry(t types.Telemetry) error
	PublishButtonEvent(event string) error
	PublishTestResult(result string) error
}

// RelayLink is the outbound half of the bridge link
type RelayLink interface {
	WriteTelemetry(t types.Telemetry) error
}

// TelemetrySink receives telemetry snapshots on the publish cadence
type TelemetrySink interface {
	Publish(t types.Telemetry) error
}
