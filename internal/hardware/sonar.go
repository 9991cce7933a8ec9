package hardware

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"drive-service/internal/logger"
)

const (
	triggerPulse = 10 * time.Microsecond

	// Echo widths past this are out of sensor range; treat as no echo.
	maxEchoWidth = 24 * time.Millisecond // ~400 cm
)

// Ultrasonic drives an HC-SR04 style range sensor: a trigger pulse on
// one line, an echo width on another. Implements the obstacle
// monitor's range finder.
type Ultrasonic struct {
	logger  *logger.Logger
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line

	rise   time.Duration
	widths chan time.Duration
}

// NewUltrasonic requests both lines. The echo handler runs on the
// gpiocdev event goroutine and hands measured widths to MeasureCM
// through a buffered channel.
func NewUltrasonic(chipName string, triggerLine, echoLine int, l *logger.Logger) (*Ultrasonic, error) {
	u := &Ultrasonic{
		logger: l.WithTag("sonar"),
		widths: make(chan time.Duration, 1),
	}

	trigger, err := gpiocdev.RequestLine(chipName, triggerLine,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("drive-service-sonar"))
	if err != nil {
		return nil, fmt.Errorf("failed to request trigger line %d: %w", triggerLine, err)
	}
	u.trigger = trigger

	echo, err := gpiocdev.RequestLine(chipName, echoLine,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("drive-service-sonar"),
		gpiocdev.WithEventHandler(u.handleEcho))
	if err != nil {
		trigger.Close()
		return nil, fmt.Errorf("failed to request echo line %d: %w", echoLine, err)
	}
	u.echo = echo

	return u, nil
}

func (u *Ultrasonic) handleEcho(evt gpiocdev.LineEvent) {
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		u.rise = evt.Timestamp
	case gpiocdev.LineEventFallingEdge:
		if u.rise == 0 {
			return
		}
		width := evt.Timestamp - u.rise
		u.rise = 0
		select {
		case u.widths <- width:
		default:
		}
	}
}

// MeasureCM fires one ping and waits for the echo. Returns -1 when no
// echo arrives inside the timeout or the width is out of range.
func (u *Ultrasonic) MeasureCM(timeout time.Duration) int {
	// Drain a stale width from a previous ping.
	select {
	case <-u.widths:
	default:
	}

	if err := u.trigger.SetValue(1); err != nil {
		u.logger.Errorf("Failed to raise trigger: %v", err)
		return -1
	}
	time.Sleep(triggerPulse)
	if err := u.trigger.SetValue(0); err != nil {
		u.logger.Errorf("Failed to drop trigger: %v", err)
		return -1
	}

	select {
	case width := <-u.widths:
		if width <= 0 || width > maxEchoWidth {
			return -1
		}
		// Round trip at ~343 m/s: 58 us per centimetre.
		return int(width.Microseconds() / 58)
	case <-time.After(timeout):
		return -1
	}
}

func (u *Ultrasonic) Close() {
	if u.trigger != nil {
		u.trigger.Close()
	}
	if u.echo != nil {
		u.echo.Close()
	}
}
