package monitor

import (
	"time"

	"drive-service/internal/logger"
	"drive-service/internal/types"
)

const (
	// AnomalyWindow is the rolling window anomalies are tallied over.
	AnomalyWindow = 2 * time.Second

	// AnomalyThreshold anomalies inside the window raise the advisory.
	AnomalyThreshold = 10

	// AnomalyMaxJump is the largest credible cycle-to-cycle change, in
	// microseconds. A healthy transmitter cannot slew faster.
	AnomalyMaxJump = 400

	anomalyRingSize = 32
)

// AnomalyMonitor counts implausible radio samples into a rolling window to
// flag a likely low transmitter battery. Advisory only: it never forces
// neutral output by itself.
type AnomalyMonitor struct {
	log *logger.Logger

	ring   [anomalyRingSize]time.Duration
	head   int
	filled int
	count  int

	lastSteering int
	lastThrottle int
	haveLast     bool

	low bool
}

func NewAnomalyMonitor(log *logger.Logger) *AnomalyMonitor {
	return &AnomalyMonitor{log: log.WithTag("anomaly")}
}

// Classify inspects the current cycle's samples. A fresh sample is
// anomalous when its raw value escapes the actuator range or it jumped
// further than AnomalyMaxJump from the previously accepted value.
func (m *AnomalyMonitor) Classify(steering, throttle types.ChannelSample, steeringFresh, throttleFresh bool, now time.Duration) {
	if steeringFresh {
		if m.classifyValue(steering.PulseWidthMicros, m.lastSteering, now) {
			m.log.Debugf("anomalous steering sample: %d us", steering.PulseWidthMicros)
		}
		m.lastSteering = steering.PulseWidthMicros
	}
	if throttleFresh {
		if m.classifyValue(throttle.PulseWidthMicros, m.lastThrottle, now) {
			m.log.Debugf("anomalous throttle sample: %d us", throttle.PulseWidthMicros)
		}
		m.lastThrottle = throttle.PulseWidthMicros
	}
	if steeringFresh || throttleFresh {
		m.haveLast = true
	}

	m.prune(now)
	low := m.count >= AnomalyThreshold
	if low != m.low {
		m.low = low
		if low {
			m.log.Warnf("Radio battery low suspected: %d anomalies in %s", m.count, AnomalyWindow)
		} else {
			m.log.Infof("Radio anomaly rate back to normal")
		}
	}
}

func (m *AnomalyMonitor) classifyValue(v, last int, now time.Duration) bool {
	anomalous := v < types.PulseMin || v > types.PulseMax
	if !anomalous && m.haveLast {
		jump := v - last
		if jump < 0 {
			jump = -jump
		}
		anomalous = jump > AnomalyMaxJump
	}
	if anomalous {
		m.record(now)
	}
	return anomalous
}

func (m *AnomalyMonitor) record(now time.Duration) {
	m.ring[m.head] = now
	m.head = (m.head + 1) % anomalyRingSize
	if m.filled < anomalyRingSize {
		m.filled++
	}
}

// prune recounts the anomalies still inside the window. Only occupied
// slots are inspected; a timestamp of zero is a valid recording time.
func (m *AnomalyMonitor) prune(now time.Duration) {
	n := 0
	for i := 0; i < m.filled; i++ {
		if now-m.ring[i] <= AnomalyWindow {
			n++
		}
	}
	m.count = n
}

// RadioBatteryLow reports the advisory flag.
func (m *AnomalyMonitor) RadioBatteryLow() bool {
	return m.low
}
