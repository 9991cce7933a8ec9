package capture

import (
	"time"

	"drive-service/internal/types"
)

const (
	// SignalTimeout is how stale the newest sample may be before the
	// channel stops being trusted.
	SignalTimeout = 500 * time.Millisecond

	// Receiver frames repeat somewhere between ~16 Hz and ~125 Hz.
	// Intervals outside this band mean the edges are not coming from an
	// RC frame train.
	FrameIntervalMin = 8 * time.Millisecond
	FrameIntervalMax = 60 * time.Millisecond
)

// Fresh reports whether a channel sample can be trusted at time now.
// It is recomputed every cycle and never cached: absence of fresh evidence
// reverts to untrusted without any explicit event.
func Fresh(s types.ChannelSample, now time.Duration) bool {
	if s.Commits < 2 {
		// Fewer than two valid pulses seen, no interval to judge yet.
		return false
	}
	if now-s.LastEdge > SignalTimeout {
		return false
	}
	interval := s.LastEdge - s.PrevEdge
	return interval >= FrameIntervalMin && interval <= FrameIntervalMax
}
