package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"drive-service/internal/logger"
	"drive-service/internal/types"
)

// Command list keys. Other services LPUSH here; we BRPOP.
const (
	ModeList    = "drive:mode"    // "dance", "test", "debug", "exit"
	CommandList = "drive:command" // raw bridge-grammar lines ("CMD:..", "PING")
	NeutralList = "drive:neutral" // any value engages the neutral hold
)

type Callbacks struct {
	ModeCallback        func(string) error // "dance", "test", "debug", "exit"
	CommandLineCallback func(string) error // bridge-grammar line
	NeutralCallback     func() error
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetCallbacks must be called before StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts the command list listeners after system
// initialization is complete.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(3)
	go r.listCommandListener(ModeList, r.handleModeCommand)
	go r.listCommandListener(CommandList, r.handleCommandLine)
	go r.listCommandListener(NeutralList, r.handleNeutralCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// BRPOP with a short timeout to allow periodic context
			// cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleModeCommand(value string) error {
	if r.callbacks.ModeCallback == nil {
		return nil
	}
	switch value {
	case "dance", "test", "debug", "exit":
		return r.callbacks.ModeCallback(value)
	default:
		r.logger.Infof("Invalid mode command value: %s", value)
		return fmt.Errorf("invalid mode command: %s", value)
	}
}

func (r *RedisClient) handleCommandLine(value string) error {
	if r.callbacks.CommandLineCallback == nil {
		return nil
	}
	return r.callbacks.CommandLineCallback(value)
}

func (r *RedisClient) handleNeutralCommand(value string) error {
	if r.callbacks.NeutralCallback == nil {
		return nil
	}
	return r.callbacks.NeutralCallback()
}

// publishHashSet atomically updates a hash field and publishes a
// notification.
func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishMode updates the drive hash and notifies subscribers of the
// mode change.
func (r *RedisClient) PublishMode(mode types.Mode) error {
	r.logger.Infof("Publishing mode: %s", mode)
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "drive", "mode", string(mode))
	pipe.HSet(r.ctx, "drive", "mode:timestamp", timestamp)
	pipe.Publish(r.ctx, "drive", "mode")
	_, err := pipe.Exec(r.ctx)
	if err != nil {
		r.logger.Warnf("Failed to publish mode: %v", err)
		return err
	}
	return nil
}

// PublishTelemetry updates the drive hash fields in one pipeline and
// publishes a single notification.
func (r *RedisClient) PublishTelemetry(t types.Telemetry) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "drive", "steering", t.SteeringMicros)
	pipe.HSet(r.ctx, "drive", "throttle", t.ThrottleMicros)
	pipe.HSet(r.ctx, "drive", "distance-cm", t.DistanceCM)
	pipe.HSet(r.ctx, "drive", "battery-volts", fmt.Sprintf("%.2f", t.BatteryVolts))
	pipe.HSet(r.ctx, "drive", "signal", boolValue(t.SignalPresent))
	pipe.HSet(r.ctx, "drive", "remote", boolValue(t.RemotePresent))
	pipe.HSet(r.ctx, "drive", "obstacle-stop", boolValue(t.ObstacleStop))
	pipe.HSet(r.ctx, "drive", "radio-battery-low", boolValue(t.RadioBatteryLow))
	pipe.Publish(r.ctx, "drive", "telemetry")
	_, err := pipe.Exec(r.ctx)
	if err != nil {
		r.logger.Warnf("Failed to publish telemetry: %v", err)
		return err
	}
	return nil
}

// PublishButtonEvent publishes a button event to the "buttons" channel
func (r *RedisClient) PublishButtonEvent(event string) error {
	r.logger.Debugf("Publishing button event: %s", event)
	if err := r.client.Publish(r.ctx, "buttons", event).Err(); err != nil {
		r.logger.Warnf("Failed to publish button event: %v", err)
		return err
	}
	return nil
}

// PublishTestResult records the outcome of the scripted self-test.
func (r *RedisClient) PublishTestResult(result string) error {
	r.logger.Infof("Publishing test result: %s", result)
	if err := r.publishHashSet("drive", "test:result", result, "drive", "test:result"); err != nil {
		r.logger.Warnf("Failed to publish test result: %v", err)
		return err
	}
	return nil
}

// GetHashField reads a field from a Redis hash using HGET
func (r *RedisClient) GetHashField(hash, field string) (string, error) {
	value, err := r.client.HGet(r.ctx, hash, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get hash field %s from %s: %w", field, hash, err)
	}
	return value, nil
}

// SendCommand pushes a command onto another service's list.
func (r *RedisClient) SendCommand(channel, command string) error {
	err := r.client.LPush(r.ctx, channel, command).Err()
	if err != nil {
		r.logger.Infof("Failed to send command '%s' to channel '%s': %v", command, channel, err)
		return err
	}
	return nil
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
