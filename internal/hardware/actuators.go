package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"drive-service/internal/logger"
	"drive-service/internal/types"
)

// LinuxActuatorIO drives the servos through sysfs PWM and the
// indicator lamps through GPIO character-device lines.
type LinuxActuatorIO struct {
	logger   *logger.Logger
	chipName string
	pwmPath  string

	mu    sync.RWMutex
	chip  *gpiocdev.Chip
	lines map[string]*gpiocdev.Line
}

func NewLinuxActuatorIO(chipName string, l *logger.Logger) *LinuxActuatorIO {
	return &LinuxActuatorIO{
		logger:   l.WithTag("actuators"),
		chipName: chipName,
		pwmPath:  PwmChipPath,
		lines:    make(map[string]*gpiocdev.Line),
	}
}

func (io *LinuxActuatorIO) Initialize() error {
	io.logger.Infof("Initializing actuator IO")

	chip, err := gpiocdev.NewChip(io.chipName)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", io.chipName, err)
	}
	io.chip = chip

	for name, offset := range IndicatorLines {
		line, err := chip.RequestLine(offset,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("drive-service"))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", offset, err)
		}
		io.lines[name] = line
		io.logger.Infof("Configured indicator %s: line=%d", name, offset)
	}

	for name, channel := range ServoPwmChannels {
		if err := io.setupPwm(channel); err != nil {
			return fmt.Errorf("failed to set up %s PWM channel %d: %w", name, channel, err)
		}
		io.logger.Infof("Configured servo %s: pwm channel=%d", name, channel)
	}

	return nil
}

// setupPwm exports one pwmchip channel, programs the RC frame period
// and starts it at neutral.
func (io *LinuxActuatorIO) setupPwm(channel int) error {
	chanDir := filepath.Join(io.pwmPath, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(chanDir); os.IsNotExist(err) {
		exportPath := filepath.Join(io.pwmPath, "export")
		if err := os.WriteFile(exportPath, []byte(strconv.Itoa(channel)), 0o644); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(chanDir, "period"),
		[]byte(strconv.Itoa(ServoPeriodNs)), 0o644); err != nil {
		return fmt.Errorf("failed to set period: %w", err)
	}
	if err := os.WriteFile(filepath.Join(chanDir, "duty_cycle"),
		[]byte(strconv.Itoa(types.PulseNeutral*1000)), 0o644); err != nil {
		return fmt.Errorf("failed to set duty cycle: %w", err)
	}
	if err := os.WriteFile(filepath.Join(chanDir, "enable"), []byte("1"), 0o644); err != nil {
		return fmt.Errorf("failed to enable: %w", err)
	}
	return nil
}

// WriteServo sets one servo's pulse width in microseconds.
func (io *LinuxActuatorIO) WriteServo(channel string, micros int) error {
	pwm, ok := ServoPwmChannels[channel]
	if !ok {
		return fmt.Errorf("unknown servo channel: %s", channel)
	}
	dutyPath := filepath.Join(io.pwmPath, fmt.Sprintf("pwm%d", pwm), "duty_cycle")
	if err := os.WriteFile(dutyPath, []byte(strconv.Itoa(micros*1000)), 0o644); err != nil {
		return fmt.Errorf("failed to set %s=%d us: %w", channel, micros, err)
	}
	return nil
}

// WriteIndicator sets one indicator lamp.
func (io *LinuxActuatorIO) WriteIndicator(channel string, on bool) error {
	io.mu.RLock()
	line, ok := io.lines[channel]
	io.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown indicator channel: %s", channel)
	}

	val := 0
	if on {
		val = 1
	}
	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set indicator %s=%v: %w", channel, on, err)
	}
	return nil
}

func (io *LinuxActuatorIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up actuator resources")

	for _, channel := range ServoPwmChannels {
		enablePath := filepath.Join(io.pwmPath, fmt.Sprintf("pwm%d", channel), "enable")
		if err := os.WriteFile(enablePath, []byte("0"), 0o644); err != nil {
			io.logger.Warnf("Failed to disable PWM channel %d: %v", channel, err)
		}
	}

	for name, line := range io.lines {
		line.Close()
		io.logger.Debugf("Closed GPIO line for %s", name)
	}
	if io.chip != nil {
		io.chip.Close()
	}

	io.logger.Infof("Actuator cleanup complete")
}
