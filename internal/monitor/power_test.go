package monitor

import (
	"testing"
	"time"
)

type fakeVolts struct {
	volts float64
	err   error
	reads int
}

func (f *fakeVolts) ReadVolts() (float64, error) {
	f.reads++
	return f.volts, f.err
}

func TestPowerDetectAfterDebounce(t *testing.T) {
	m := NewPowerMonitor(nil, testLogger())

	for i := 0; i < PowerDebounceCount-1; i++ {
		m.Observe(7.2)
		if m.Powered() {
			t.Fatalf("Powered after %d samples, debounce is %d", i+1, PowerDebounceCount)
		}
	}
	m.Observe(7.2)
	if !m.Powered() {
		t.Error("Expected powered after full debounce run")
	}
}

func TestPowerSingleOutlierDoesNotFlip(t *testing.T) {
	m := NewPowerMonitor(nil, testLogger())
	for i := 0; i < PowerDebounceCount; i++ {
		m.Observe(7.2)
	}

	m.Observe(4.0)
	if !m.Powered() {
		t.Error("One low sample must not drop the powered state")
	}

	// Recovery resets the run.
	m.Observe(7.2)
	for i := 0; i < PowerDebounceCount-1; i++ {
		m.Observe(4.0)
	}
	if !m.Powered() {
		t.Error("Broken low run must not drop the powered state")
	}
}

func TestPowerLossAfterDebounce(t *testing.T) {
	m := NewPowerMonitor(nil, testLogger())
	for i := 0; i < PowerDebounceCount; i++ {
		m.Observe(7.2)
	}

	for i := 0; i < PowerDebounceCount; i++ {
		m.Observe(4.0)
	}
	if m.Powered() {
		t.Error("Expected power lost after full low debounce run")
	}
}

func TestPowerBetweenThresholdsDecays(t *testing.T) {
	m := NewPowerMonitor(nil, testLogger())

	for i := 0; i < PowerDebounceCount*2; i++ {
		m.Observe(6.1) // between off (5.9) and on (6.4)
	}
	if m.Powered() {
		t.Error("Samples inside the hysteresis band must never power on")
	}
}

func TestForcePoweredDebouncesBackOff(t *testing.T) {
	m := NewPowerMonitor(nil, testLogger())

	m.ForcePowered()
	if !m.Powered() {
		t.Fatal("Expected powered after force")
	}

	for i := 0; i < PowerDebounceCount; i++ {
		m.Observe(0.0)
	}
	if m.Powered() {
		t.Error("Sustained low sense must still drop a forced power state")
	}
}

func TestPowerTickCadence(t *testing.T) {
	src := &fakeVolts{volts: 7.2}
	m := NewPowerMonitor(src, testLogger())

	m.Tick(0)
	m.Tick(10 * time.Millisecond)
	if src.reads != 1 {
		t.Errorf("Expected 1 read inside the interval, got %d", src.reads)
	}
	m.Tick(PowerSampleInterval)
	if src.reads != 2 {
		t.Errorf("Expected 2 reads after the interval, got %d", src.reads)
	}
}
