package monitor

import (
	"testing"
	"time"

	"drive-service/internal/logger"
)

type fakeSonar struct {
	readings []int
	next     int
}

func (f *fakeSonar) MeasureCM(timeout time.Duration) int {
	if f.next >= len(f.readings) {
		return RangeNoEcho
	}
	r := f.readings[f.next]
	f.next++
	return r
}

func testLogger() *logger.Logger {
	return logger.NewLogger(nil, logger.LogLevelError)
}

func TestMedianRangeAllGood(t *testing.T) {
	if got := MedianRange([3]int{18, 25, 19}); got != 19 {
		t.Errorf("Expected median 19, got %d", got)
	}
}

func TestMedianRangeOneMiss(t *testing.T) {
	// One dropout substitutes the far sentinel so the median comes from
	// the two real readings.
	if got := MedianRange([3]int{18, RangeNoEcho, 19}); got != 19 {
		t.Errorf("Expected 19 with one miss, got %d", got)
	}
}

func TestMedianRangeTwoMisses(t *testing.T) {
	if got := MedianRange([3]int{18, RangeNoEcho, RangeNoEcho}); got != RangeNoEcho {
		t.Errorf("Expected no-echo with two misses, got %d", got)
	}
}

func TestObstacleStopNeedsConsecutiveSamples(t *testing.T) {
	m := NewObstacleMonitor(nil, testLogger())

	m.Observe(15)
	if m.Stopped() {
		t.Error("One close sample must not engage the stop")
	}
	m.Observe(14)
	if !m.Stopped() {
		t.Error("Two consecutive close samples must engage the stop")
	}
}

func TestObstacleStopClearsWithHysteresis(t *testing.T) {
	m := NewObstacleMonitor(nil, testLogger())
	m.Observe(15)
	m.Observe(15)
	if !m.Stopped() {
		t.Fatal("Stop should be engaged")
	}

	// Between thresholds: stop holds.
	m.Observe(25)
	m.Observe(25)
	if !m.Stopped() {
		t.Error("Dead band readings must not clear the stop")
	}

	m.Observe(35)
	if !m.Stopped() {
		t.Error("One clear sample must not release yet")
	}
	m.Observe(35)
	if m.Stopped() {
		t.Error("Two consecutive clear samples must release the stop")
	}
}

func TestObstacleDeadBandResetsRuns(t *testing.T) {
	m := NewObstacleMonitor(nil, testLogger())

	m.Observe(15)
	m.Observe(25) // dead band breaks the run
	m.Observe(15)
	if m.Stopped() {
		t.Error("Non-consecutive close samples must not engage the stop")
	}
}

func TestObstacleNoEchoChangesNothing(t *testing.T) {
	m := NewObstacleMonitor(nil, testLogger())
	m.Observe(15)
	m.Observe(15)
	if !m.Stopped() {
		t.Fatal("Stop should be engaged")
	}

	for i := 0; i < 5; i++ {
		m.Observe(RangeNoEcho)
	}
	if !m.Stopped() {
		t.Error("Echo loss must not clear an engaged stop")
	}
	if m.DistanceCM() != 15 {
		t.Errorf("Expected last usable distance 15, got %d", m.DistanceCM())
	}
}

func TestObstacleTickCadence(t *testing.T) {
	sonar := &fakeSonar{readings: []int{50, 50, 50, 50, 50, 50}}
	m := NewObstacleMonitor(sonar, testLogger())

	m.Tick(0)
	first := sonar.next
	if first != 3 {
		t.Fatalf("Expected 3 readings per measurement, got %d", first)
	}

	// Inside the interval: no new measurement.
	m.Tick(RangeInterval / 2)
	if sonar.next != first {
		t.Error("Measurement ran before the cadence was due")
	}

	m.Tick(RangeInterval)
	if sonar.next != first+3 {
		t.Error("Measurement did not run when due")
	}
}
