package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"drive-service/internal/logger"
)

// ButtonCallback receives press (true) and release (false) events.
type ButtonCallback func(pressed bool) error

// Buttons watches the operator buttons. The lines are active low with
// pull-ups, so a falling edge is a press.
type Buttons struct {
	logger *logger.Logger
	lines  []*gpiocdev.Line
}

// NewButtons requests the given lines and dispatches edges to the
// matching callback. Callbacks run on the gpiocdev event goroutine.
func NewButtons(chipName string, callbacks map[int]ButtonCallback, l *logger.Logger) (*Buttons, error) {
	b := &Buttons{logger: l.WithTag("buttons")}

	for offset, callback := range callbacks {
		cb := callback
		off := offset
		line, err := gpiocdev.RequestLine(chipName, offset,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithConsumer("drive-service-buttons"),
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				pressed := evt.Type == gpiocdev.LineEventFallingEdge
				if err := cb(pressed); err != nil {
					b.logger.Warnf("Button line %d callback failed: %v", off, err)
				}
			}))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to request button line %d: %w", offset, err)
		}
		b.lines = append(b.lines, line)
		b.logger.Infof("Watching button on line %d", offset)
	}

	return b, nil
}

func (b *Buttons) Close() {
	for _, line := range b.lines {
		line.Close()
	}
	b.lines = nil
}
