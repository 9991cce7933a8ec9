package control

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"drive-service/internal/capture"
	"drive-service/internal/fsm"
	"drive-service/internal/logger"
	"drive-service/internal/messaging"
	"drive-service/internal/monitor"
	"drive-service/internal/relay"
	"drive-service/internal/types"
)

const (
	// CycleInterval is the control loop period. Every cycle reads the
	// channel snapshots, runs the monitors, steps the state machine and
	// writes the arbitrated outputs.
	CycleInterval = 20 * time.Millisecond

	// TelemetryInterval is the publish cadence for Redis, the bridge
	// link and any extra sinks.
	TelemetryInterval = 200 * time.Millisecond

	// LongPressDuration distinguishes a mode hold from a page tap.
	LongPressDuration = 2 * time.Second
)

// Config carries the tunables DriveSystem does not hard-code.
type Config struct {
	// SignalEitherChannel counts a fresh throttle channel as signal
	// presence too. Default (false) requires fresh steering.
	SignalEitherChannel bool

	// CycleInterval overrides the control loop period, mainly for
	// tests. Zero means CycleInterval.
	CycleInterval time.Duration
}

// DriveSystem owns the control loop: it reads the radio capture
// channels, runs the safety monitors, drives the mode state machine and
// arbitrates every cycle's actuator output.
type DriveSystem struct {
	logger  *logger.Logger
	machine *librefsm.Machine

	io    ActuatorIO
	redis MessagingClient

	steering RadioChannel
	throttle RadioChannel

	obstacle *monitor.ObstacleMonitor
	power    *monitor.PowerMonitor
	anomaly  *monitor.AnomalyMonitor

	remote remoteSlot

	config Config
	nowFn  func() time.Duration

	mu   sync.RWMutex
	mode types.Mode

	relay RelayLink
	sinks []TelemetrySink

	steeringBaseline int
	throttleBaseline int
	baseSteerSum     int
	baseSteerN       int
	baseThrSum       int
	baseThrN         int
	lastSteerCommits uint32
	lastThrCommits   uint32

	scriptStart      time.Duration
	sweepStart       time.Duration
	neutralHoldUntil time.Duration

	rng         *rand.Rand
	danceTarget int
	danceNextAt time.Duration

	buttonDown       bool
	buttonPressAt    time.Duration
	forceBootPending bool

	lastTelemetry time.Duration
	telem         types.Telemetry

	radioLowLatched bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDriveSystem wires the control loop to its collaborators. The sonar
// and voltage sources feed the obstacle and power monitors; relay and
// telemetry sinks attach separately because they come up after the
// system exists.
func NewDriveSystem(io ActuatorIO, redis MessagingClient, steering, throttle RadioChannel,
	sonar monitor.RangeFinder, volts monitor.VoltageSource, config Config, log *logger.Logger) *DriveSystem {
	if config.CycleInterval == 0 {
		config.CycleInterval = CycleInterval
	}
	return &DriveSystem{
		logger:           log,
		io:               io,
		redis:            redis,
		steering:         steering,
		throttle:         throttle,
		obstacle:         monitor.NewObstacleMonitor(sonar, log),
		power:            monitor.NewPowerMonitor(volts, log),
		anomaly:          monitor.NewAnomalyMonitor(log),
		config:           config,
		nowFn:            capture.Now,
		mode:             types.ModeAwaitingPower,
		steeringBaseline: types.PulseNeutral,
		throttleBaseline: types.PulseNeutral,
		danceTarget:      types.PulseNeutral,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AttachRelay registers the serial bridge as a telemetry destination.
func (s *DriveSystem) AttachRelay(link RelayLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relay = link
}

// AttachTelemetrySink adds an extra telemetry destination (MQTT).
func (s *DriveSystem) AttachTelemetrySink(sink TelemetrySink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Start initializes the hardware, connects messaging, builds the state
// machine and launches the control loop.
func (s *DriveSystem) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.io.Initialize(); err != nil {
		cancel()
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	s.redis.SetCallbacks(messaging.Callbacks{
		ModeCallback:        s.handleModeCommand,
		CommandLineCallback: s.handleCommandLine,
		NeutralCallback:     s.handleNeutralCommand,
	})
	if err := s.redis.Connect(); err != nil {
		cancel()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.initFSM(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to initialize state machine: %w", err)
	}

	s.wg.Add(1)
	go s.runLoop(ctx)

	if err := s.redis.StartListening(); err != nil {
		cancel()
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("Drive system started")
	return nil
}

// Shutdown stops the control loop, parks the actuators at neutral and
// releases the hardware.
func (s *DriveSystem) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.io.WriteServo("steering", types.PulseNeutral); err != nil {
		s.logger.Errorf("Failed to park steering: %v", err)
	}
	if err := s.io.WriteServo("throttle", types.PulseNeutral); err != nil {
		s.logger.Errorf("Failed to park throttle: %v", err)
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Errorf("Failed to close Redis client: %v", err)
	}
	s.io.Cleanup()
	s.logger.Infof("Drive system stopped")
}

// Mode returns the current operating mode.
func (s *DriveSystem) Mode() types.Mode {
	if s.machine != nil {
		return types.Mode(s.machine.CurrentState())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Telemetry returns the most recently published snapshot.
func (s *DriveSystem) Telemetry() types.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telem
}

func (s *DriveSystem) now() time.Duration {
	return s.nowFn()
}

func (s *DriveSystem) sendEvent(ev librefsm.EventID) error {
	if s.machine == nil {
		return fmt.Errorf("state machine not initialized")
	}
	return s.machine.SendSync(librefsm.Event{ID: ev})
}

func (s *DriveSystem) runLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(s.now())
		}
	}
}

// runCycle is one pass of the control loop. Ordering matters: monitors
// first, then mode events, then arbitration, so a transition raised
// this cycle already shapes this cycle's output.
func (s *DriveSystem) runCycle(now time.Duration) {
	steer := s.steering.Snapshot()
	thr := s.throttle.Snapshot()
	steerFresh := capture.Fresh(steer, now)
	thrFresh := capture.Fresh(thr, now)

	s.obstacle.Tick(now)
	s.power.Tick(now)
	s.anomaly.Classify(steer, thr, steerFresh, thrFresh, now)

	remoteCmd, remoteActive := s.remote.Command(now)
	remotePresent := s.remote.Present(now)

	signal := steerFresh
	if s.config.SignalEitherChannel {
		signal = steerFresh || thrFresh
	}

	s.mu.Lock()
	forceBoot := s.forceBootPending
	s.forceBootPending = false
	s.mu.Unlock()

	mode := s.Mode()
	switch {
	case !s.power.Powered() && mode != types.ModeAwaitingPower:
		s.sendEvent(fsm.EvPowerLost)
	case forceBoot && mode == types.ModeAwaitingPower:
		s.power.ForcePowered()
		s.sendEvent(fsm.EvForceBoot)
	case s.power.Powered() && mode == types.ModeAwaitingPower:
		s.sendEvent(fsm.EvPowerDetected)
	case mode == types.ModeAwaitingSignal && (signal || remoteActive):
		s.sendEvent(fsm.EvSignalAcquired)
	case mode == types.ModeNormal && !signal && !remoteActive:
		s.sendEvent(fsm.EvSignalLost)
	}
	mode = s.Mode()

	if mode == types.ModeBooting {
		s.accumulateBaseline(steer, steerFresh, thr, thrFresh)
	}

	s.mu.RLock()
	steerBase := s.steeringBaseline
	thrBase := s.throttleBaseline
	sweepStart := s.sweepStart
	s.mu.RUnlock()

	snap := Snapshot{
		Mode:             mode,
		Now:              now,
		Steering:         steer,
		Throttle:         thr,
		SteeringFresh:    steerFresh,
		ThrottleFresh:    thrFresh,
		Remote:           remoteCmd,
		RemoteActive:     remoteActive,
		Script:           s.scriptOutput(mode, now),
		ObstacleStop:     s.obstacle.Stopped(),
		SteeringBaseline: steerBase,
		ThrottleBaseline: thrBase,
		SignalPresent:    signal,
		SweepStart:       sweepStart,
	}

	out := Arbitrate(snap)
	ind := DeriveIndicators(out, snap)
	s.applyOutputs(out, ind)

	s.publishTelemetry(now, mode, out, snap, remotePresent)
}

func (s *DriveSystem) applyOutputs(out types.ActuatorOutput, ind types.Indicators) {
	if err := s.io.WriteServo("steering", out.SteeringMicros); err != nil {
		s.logger.Errorf("Failed to write steering servo: %v", err)
	}
	if err := s.io.WriteServo("throttle", out.ThrottleMicros); err != nil {
		s.logger.Errorf("Failed to write throttle servo: %v", err)
	}

	indicators := []struct {
		channel string
		on      bool
	}{
		{"turn-left", ind.TurnLeft},
		{"turn-right", ind.TurnRight},
		{"brake", ind.Brake},
		{"status", ind.StatusLamp},
	}
	for _, i := range indicators {
		if err := s.io.WriteIndicator(i.channel, i.on); err != nil {
			s.logger.Errorf("Failed to write %s indicator: %v", i.channel, err)
		}
	}
}

func (s *DriveSystem) publishTelemetry(now time.Duration, mode types.Mode, out types.ActuatorOutput, snap Snapshot, remotePresent bool) {
	if s.lastTelemetry != 0 && now-s.lastTelemetry < TelemetryInterval {
		return
	}
	s.lastTelemetry = now

	t := types.Telemetry{
		Mode:            mode,
		SteeringMicros:  out.SteeringMicros,
		ThrottleMicros:  out.ThrottleMicros,
		DistanceCM:      s.obstacle.DistanceCM(),
		BatteryVolts:    s.power.Volts(),
		SignalPresent:   snap.SignalPresent,
		RemotePresent:   remotePresent,
		ObstacleStop:    snap.ObstacleStop,
		RadioBatteryLow: s.anomaly.RadioBatteryLow(),
	}

	s.mu.Lock()
	s.telem = t
	link := s.relay
	sinks := s.sinks
	latched := s.radioLowLatched
	s.radioLowLatched = t.RadioBatteryLow
	s.mu.Unlock()

	if err := s.redis.PublishTelemetry(t); err != nil {
		s.logger.Errorf("Failed to publish telemetry: %v", err)
	}
	if link != nil {
		if err := link.WriteTelemetry(t); err != nil {
			s.logger.Debugf("Failed to write bridge telemetry: %v", err)
		}
	}
	for _, sink := range sinks {
		if err := sink.Publish(t); err != nil {
			s.logger.Debugf("Failed to publish to telemetry sink: %v", err)
		}
	}

	if t.RadioBatteryLow != latched {
		if t.RadioBatteryLow {
			s.logger.Warnf("Radio battery low advisory raised")
		} else {
			s.logger.Infof("Radio battery low advisory cleared")
		}
	}
}

// accumulateBaseline averages the committed widths seen during the boot
// window. Only newly committed frames count, one sample per frame.
func (s *DriveSystem) accumulateBaseline(steer types.ChannelSample, steerFresh bool, thr types.ChannelSample, thrFresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if steerFresh && steer.Commits != s.lastSteerCommits {
		s.baseSteerSum += steer.PulseWidthMicros
		s.baseSteerN++
		s.lastSteerCommits = steer.Commits
	}
	if thrFresh && thr.Commits != s.lastThrCommits {
		s.baseThrSum += thr.PulseWidthMicros
		s.baseThrN++
		s.lastThrCommits = thr.Commits
	}
}

func (s *DriveSystem) finalizeBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseSteerN > 0 {
		s.steeringBaseline = s.baseSteerSum / s.baseSteerN
	} else {
		s.steeringBaseline = types.PulseNeutral
	}
	if s.baseThrN > 0 {
		s.throttleBaseline = s.baseThrSum / s.baseThrN
	} else {
		s.throttleBaseline = types.PulseNeutral
	}
	s.logger.Infof("Neutral baselines captured: steering=%d us (%d frames), throttle=%d us (%d frames)",
		s.steeringBaseline, s.baseSteerN, s.throttleBaseline, s.baseThrN)
}

// RemoteCommand records a bridge movement command. Implements the relay
// sink so parsed serial traffic lands here.
func (s *DriveSystem) RemoteCommand(steeringMicros, throttleMicros int) {
	s.remote.SetCommand(steeringMicros, throttleMicros, s.now())
}

// RemoteHeartbeat refreshes bridge presence without taking control.
func (s *DriveSystem) RemoteHeartbeat() {
	s.remote.Heartbeat(s.now())
}

// HandleModeButton processes the mode button. A sustained hold forces
// boot (unpowered) or toggles debug override; a tap pages the display.
func (s *DriveSystem) HandleModeButton(pressed bool) error {
	now := s.now()
	if pressed {
		s.mu.Lock()
		s.buttonDown = true
		s.buttonPressAt = now
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	down := s.buttonDown
	held := now - s.buttonPressAt
	s.buttonDown = false
	s.mu.Unlock()
	if !down {
		return nil
	}

	if held >= LongPressDuration {
		if s.Mode() == types.ModeAwaitingPower {
			// Consumed by the next cycle so the power monitor is
			// only touched from the loop goroutine.
			s.mu.Lock()
			s.forceBootPending = true
			s.mu.Unlock()
			return nil
		}
		return s.sendEvent(fsm.EvLongPress)
	}
	return s.redis.PublishButtonEvent("page:next")
}

// HandlePageButton processes the display page button.
func (s *DriveSystem) HandlePageButton(pressed bool) error {
	if !pressed {
		return nil
	}
	return s.redis.PublishButtonEvent("page:next")
}

func (s *DriveSystem) handleModeCommand(value string) error {
	s.logger.Infof("Received mode command: %s", value)
	switch value {
	case "dance":
		return s.sendEvent(fsm.EvDanceCommand)
	case "test":
		return s.sendEvent(fsm.EvTestCommand)
	case "debug":
		return s.sendEvent(fsm.EvDebugCommand)
	case "exit":
		return s.sendEvent(fsm.EvModeExit)
	default:
		return fmt.Errorf("invalid mode command: %s", value)
	}
}

// handleCommandLine accepts raw bridge-grammar lines pushed over Redis,
// so a bench client can drive without the serial link.
func (s *DriveSystem) handleCommandLine(value string) error {
	return relay.ParseLine(value, s)
}

func (s *DriveSystem) handleNeutralCommand() error {
	s.mu.Lock()
	s.neutralHoldUntil = s.now() + NeutralHoldDuration
	s.mu.Unlock()
	s.logger.Infof("Neutral hold engaged for %s", NeutralHoldDuration)
	return nil
}
