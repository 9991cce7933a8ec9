package control

import (
	"sync"
	"time"

	"drive-service/internal/types"
)

// RemoteTimeout is how long a bridge command or heartbeat stays valid.
// After it passes with no traffic the slot expires and the radio (or
// neutral) takes back the actuators.
const RemoteTimeout = 2000 * time.Millisecond

// remoteSlot holds the latest bridge command. Written from the serial
// reader and Redis callback goroutines, read once per control cycle.
type remoteSlot struct {
	mu sync.Mutex

	cmd       types.RemoteCommand
	commandAt time.Duration
	presentAt time.Duration

	haveCommand  bool
	havePresence bool
}

// SetCommand records a movement command. Values are clamped to the
// actuator range; a command also counts as presence.
func (r *remoteSlot) SetCommand(steeringMicros, throttleMicros int, now time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmd = types.RemoteCommand{
		SteeringMicros: types.ClampPulse(steeringMicros),
		ThrottleMicros: types.ClampPulse(throttleMicros),
	}
	r.commandAt = now
	r.presentAt = now
	r.haveCommand = true
	r.havePresence = true
}

// Heartbeat refreshes presence without granting command authority.
func (r *remoteSlot) Heartbeat(now time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presentAt = now
	r.havePresence = true
}

// Command returns the latest command and whether it is still unexpired.
func (r *remoteSlot) Command(now time.Duration) (types.RemoteCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.haveCommand || now-r.commandAt > RemoteTimeout {
		return types.RemoteCommand{}, false
	}
	return r.cmd, true
}

// Present reports whether any bridge traffic arrived recently.
func (r *remoteSlot) Present(now time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.havePresence && now-r.presentAt <= RemoteTimeout
}

// Clear drops command authority and presence.
func (r *remoteSlot) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.haveCommand = false
	r.havePresence = false
}
