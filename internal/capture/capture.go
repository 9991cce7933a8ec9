// Package capture measures receiver pulse widths from gpio edge events.
package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"drive-service/internal/types"
)

// Now returns the current time on CLOCK_MONOTONIC, the clock the kernel
// stamps gpio edge events with. All freshness math must stay on this clock.
func Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Channel owns the pulse-width/timestamp triple for one RC input. The edge
// handler is the only writer; the control cycle reads through Snapshot.
type Channel struct {
	name string
	mu   sync.Mutex

	sample   types.ChannelSample
	rise     time.Duration
	haveRise bool

	line *gpiocdev.Line
}

func NewChannel(name string) *Channel {
	return &Channel{name: name}
}

// Name returns the channel name ("steering", "throttle").
func (c *Channel) Name() string {
	return c.name
}

// Attach requests the gpio line and starts delivering edge events to the
// channel. The event handler runs on gpiocdev's goroutine and must stay
// constant-time: it only takes the channel mutex for the commit.
func (c *Channel) Attach(chip string, offset int) error {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("drive-service"),
		gpiocdev.WithEventHandler(c.HandleEvent))
	if err != nil {
		return fmt.Errorf("failed to request %s line %s:%d: %w", c.name, chip, offset, err)
	}
	c.line = line
	return nil
}

// HandleEvent times the high phase of the input. A falling edge commits a
// new sample only when the measured duration is plausible; glitches and
// mid-frame noise leave the previous sample untouched.
func (c *Channel) HandleEvent(evt gpiocdev.LineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		c.rise = evt.Timestamp
		c.haveRise = true

	case gpiocdev.LineEventFallingEdge:
		if !c.haveRise {
			return
		}
		high := evt.Timestamp - c.rise
		c.haveRise = false

		us := int(high / time.Microsecond)
		if us < types.PulseValidMin || us > types.PulseValidMax {
			return
		}

		c.sample.PulseWidthMicros = us
		c.sample.PrevEdge = c.sample.LastEdge
		c.sample.LastEdge = evt.Timestamp
		c.sample.Commits++
	}
}

// Snapshot copies the current sample out under the channel mutex, so the
// cycle never sees a torn width/timestamp triple.
func (c *Channel) Snapshot() types.ChannelSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sample
}

func (c *Channel) Close() {
	if c.line != nil {
		c.line.Close()
		c.line = nil
	}
}
