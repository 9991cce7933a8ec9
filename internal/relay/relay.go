package relay

import (
	"bufio"
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"drive-service/internal/logger"
	"drive-service/internal/types"
)

// Link is the serial bridge to the remote transport (a Bluetooth or
// WiFi module speaking the line grammar). Reads feed the sink; writes
// carry telemetry lines back.
type Link struct {
	port   serial.Port
	sink   Sink
	logger *logger.Logger

	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Open opens the serial device and starts the reader goroutine.
func Open(device string, baud int, sink Sink, log *logger.Logger) (*Link, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		port:   port,
		sink:   sink,
		logger: log.WithTag("relay"),
		cancel: cancel,
	}

	l.wg.Add(1)
	go l.readLoop(ctx)

	l.logger.Infof("Bridge link open on %s @ %d baud", device, baud)
	return l, nil
}

func (l *Link) readLoop(ctx context.Context) {
	defer l.wg.Done()
	scanner := bufio.NewScanner(l.port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if err := ParseLine(line, l.sink); err != nil {
			l.logger.Debugf("Dropping bridge line: %v", err)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		l.logger.Errorf("Bridge read failed: %v", err)
	}
}

// WriteTelemetry sends one telemetry line to the remote side.
func (l *Link) WriteTelemetry(t types.Telemetry) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_, err := l.port.Write([]byte(FormatTelemetry(t) + "\n"))
	if err != nil {
		return fmt.Errorf("failed to write telemetry line: %w", err)
	}
	return nil
}

// Close stops the reader and releases the port. Closing the port
// unblocks the pending Read inside the scanner.
func (l *Link) Close() error {
	l.cancel()
	err := l.port.Close()
	l.wg.Wait()
	return err
}
