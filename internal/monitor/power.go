package monitor

import (
	"time"

	"drive-service/internal/logger"
)

const (
	// PowerSampleInterval is the voltage-sense sampling cadence.
	PowerSampleInterval = 80 * time.Millisecond

	// Separate on/off thresholds so a sagging supply does not chatter.
	PowerOnVolts  = 6.4
	PowerOffVolts = 5.9

	// PowerDebounceCount consecutive qualifying samples flip the state.
	PowerDebounceCount = 5
)

// VoltageSource reads the drive-battery voltage sense input once.
type VoltageSource interface {
	ReadVolts() (float64, error)
}

// PowerMonitor debounces the voltage-sense reading into a binary
// powered/unpowered state.
type PowerMonitor struct {
	source VoltageSource
	log    *logger.Logger

	lastSample time.Duration
	haveSample bool

	powered   bool
	highCount int
	lowCount  int
	volts     float64
}

func NewPowerMonitor(source VoltageSource, log *logger.Logger) *PowerMonitor {
	return &PowerMonitor{
		source: source,
		log:    log.WithTag("power"),
	}
}

// Tick samples the voltage sense when the cadence is due. Read failures are
// ignored: the debounce counters simply do not advance.
func (m *PowerMonitor) Tick(now time.Duration) {
	if m.source == nil {
		return
	}
	if m.haveSample && now-m.lastSample < PowerSampleInterval {
		return
	}
	m.lastSample = now
	m.haveSample = true

	volts, err := m.source.ReadVolts()
	if err != nil {
		m.log.Debugf("voltage read failed: %v", err)
		return
	}
	m.Observe(volts)
}

// Observe feeds one voltage sample into the debounce counters.
func (m *PowerMonitor) Observe(volts float64) {
	m.volts = volts

	switch {
	case volts >= PowerOnVolts:
		if m.highCount < PowerDebounceCount {
			m.highCount++
		}
		if m.lowCount > 0 {
			m.lowCount--
		}
		if !m.powered && m.highCount >= PowerDebounceCount {
			m.powered = true
			m.log.Infof("Drive power detected (%.1f V)", volts)
		}
	case volts <= PowerOffVolts:
		if m.lowCount < PowerDebounceCount {
			m.lowCount++
		}
		if m.highCount > 0 {
			m.highCount--
		}
		if m.powered && m.lowCount >= PowerDebounceCount {
			m.powered = false
			m.log.Infof("Drive power lost (%.1f V)", volts)
		}
	default:
		// Between thresholds: decay both counters.
		if m.highCount > 0 {
			m.highCount--
		}
		if m.lowCount > 0 {
			m.lowCount--
		}
	}
}

// Powered reports the debounced power state.
func (m *PowerMonitor) Powered() bool {
	return m.powered
}

// Volts returns the most recent voltage sample.
func (m *PowerMonitor) Volts() float64 {
	return m.volts
}

// ForcePowered overrides the debounced state, used by the manual boot
// override when the sense wire is absent on a bench setup.
func (m *PowerMonitor) ForcePowered() {
	m.powered = true
	m.highCount = PowerDebounceCount
	m.lowCount = 0
}
