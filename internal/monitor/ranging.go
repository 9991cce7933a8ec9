// Package monitor holds the sensor monitors feeding the mode state machine.
package monitor

import (
	"time"

	"drive-service/internal/logger"
)

// RangeNoEcho marks a reading where the detector saw no echo at all.
const RangeNoEcho = -1

const (
	// RangeInterval is the cadence of full ranging measurements.
	RangeInterval = 120 * time.Millisecond

	// EchoTimeout bounds a single echo wait. Three readings per
	// measurement, short settle between them.
	EchoTimeout = 25 * time.Millisecond
	rangeSettle = 10 * time.Millisecond

	// noEchoSentinel substitutes a missed echo in the median so a single
	// dropout cannot pull the median toward "obstacle".
	noEchoSentinel = 999

	// Obstacle hysteresis band. Entering stop below the near threshold,
	// leaving above the far one; the gap prevents oscillation.
	ObstacleNearCM  = 20
	ObstacleClearCM = 30

	obstacleDebounce = 2
)

// RangeFinder is a single-shot distance measurement. MeasureCM returns
// RangeNoEcho when no echo arrives within the timeout.
type RangeFinder interface {
	MeasureCM(timeout time.Duration) int
}

// ObstacleMonitor triggers periodic ranging measurements and maintains a
// hysteretic stopped/clear state.
type ObstacleMonitor struct {
	sonar RangeFinder
	log   *logger.Logger

	lastMeasure time.Duration
	haveMeasure bool

	stopped    bool
	closeCount int
	clearCount int
	distanceCM int
}

func NewObstacleMonitor(sonar RangeFinder, log *logger.Logger) *ObstacleMonitor {
	return &ObstacleMonitor{
		sonar:      sonar,
		log:        log.WithTag("ranging"),
		distanceCM: RangeNoEcho,
	}
}

// Tick runs one measurement when the cadence is due. The echo waits inside
// Measure are the only deliberately bounded blocking calls in the cycle.
func (m *ObstacleMonitor) Tick(now time.Duration) {
	if m.sonar == nil {
		return
	}
	if m.haveMeasure && now-m.lastMeasure < RangeInterval {
		return
	}
	m.lastMeasure = now
	m.haveMeasure = true
	m.Observe(m.Measure())
}

// Measure takes three readings with short settling delays and reports the
// de-noised distance, or RangeNoEcho when two or more readings missed.
func (m *ObstacleMonitor) Measure() int {
	var r [3]int
	for i := range r {
		if i > 0 {
			time.Sleep(rangeSettle)
		}
		r[i] = m.sonar.MeasureCM(EchoTimeout)
	}
	return MedianRange(r)
}

// MedianRange selects the middle of three readings, substituting a large
// sentinel for missed echoes. Two or more misses mean no usable data.
func MedianRange(r [3]int) int {
	misses := 0
	for i := range r {
		if r[i] == RangeNoEcho {
			r[i] = noEchoSentinel
			misses++
		}
	}
	if misses >= 2 {
		return RangeNoEcho
	}
	return medianOfThree(r[0], r[1], r[2])
}

func medianOfThree(a, b, c int) int {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// Observe feeds one de-noised distance into the hysteresis. No-echo samples
// change nothing: transient echo loss must neither trigger nor clear a stop.
func (m *ObstacleMonitor) Observe(distanceCM int) {
	if distanceCM == RangeNoEcho {
		return
	}
	m.distanceCM = distanceCM

	switch {
	case distanceCM <= ObstacleNearCM:
		m.closeCount++
		m.clearCount = 0
		if !m.stopped && m.closeCount >= obstacleDebounce {
			m.stopped = true
			m.log.Infof("Obstacle at %d cm, throttle stop engaged", distanceCM)
		}
	case distanceCM >= ObstacleClearCM:
		m.clearCount++
		m.closeCount = 0
		if m.stopped && m.clearCount >= obstacleDebounce {
			m.stopped = false
			m.log.Infof("Path clear at %d cm, throttle stop released", distanceCM)
		}
	default:
		// Dead band between thresholds breaks both consecutive runs.
		m.closeCount = 0
		m.clearCount = 0
	}
}

// Stopped reports whether the obstacle stop is currently engaged.
func (m *ObstacleMonitor) Stopped() bool {
	return m.stopped
}

// DistanceCM returns the last usable distance, RangeNoEcho before any.
func (m *ObstacleMonitor) DistanceCM() int {
	return m.distanceCM
}
