package control

import (
	"context"
	"fmt"

	"github.com/librescoot/librefsm"

	"drive-service/internal/fsm"
	"drive-service/internal/types"
)

var _ fsm.Actions = (*DriveSystem)(nil)

func (s *DriveSystem) initFSM(ctx context.Context) error {
	machine, err := fsm.NewDefinition(s).Build()
	if err != nil {
		return fmt.Errorf("failed to build state machine: %w", err)
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		oldMode := types.Mode(from)
		newMode := types.Mode(to)
		s.mu.Lock()
		s.mode = newMode
		s.mu.Unlock()
		s.logger.Infof("Mode transition: %s -> %s", oldMode, newMode)
		if err := s.redis.PublishMode(newMode); err != nil {
			s.logger.Errorf("Failed to publish mode: %v", err)
		}
	})

	return s.machine.Start(ctx)
}

// EnterAwaitingPower clears every override so the next boot starts from
// a clean slate.
func (s *DriveSystem) EnterAwaitingPower(c *librefsm.Context) error {
	s.remote.Clear()
	s.mu.Lock()
	s.neutralHoldUntil = 0
	s.forceBootPending = false
	s.mu.Unlock()
	return nil
}

// EnterBooting starts the actuator sweep and resets the neutral
// baseline accumulators for this boot's capture window.
func (s *DriveSystem) EnterBooting(c *librefsm.Context) error {
	s.mu.Lock()
	s.scriptStart = s.now()
	s.baseSteerSum = 0
	s.baseSteerN = 0
	s.baseThrSum = 0
	s.baseThrN = 0
	s.mu.Unlock()
	return nil
}

// EnterAwaitingSignal finalizes the baseline when arriving from the
// boot sweep and anchors the no-signal status lamp sweep.
func (s *DriveSystem) EnterAwaitingSignal(c *librefsm.Context) error {
	if c != nil && c.FromState == fsm.ModeBooting {
		s.finalizeBaseline()
	}
	s.mu.Lock()
	s.sweepStart = s.now()
	s.mu.Unlock()
	return nil
}

func (s *DriveSystem) EnterDebugOverride(c *librefsm.Context) error {
	s.logger.Warnf("Debug override engaged: freshness checks bypassed")
	return nil
}

func (s *DriveSystem) EnterDance(c *librefsm.Context) error {
	s.mu.Lock()
	s.scriptStart = s.now()
	s.danceNextAt = 0
	s.mu.Unlock()
	return nil
}

func (s *DriveSystem) EnterTest(c *librefsm.Context) error {
	s.mu.Lock()
	s.scriptStart = s.now()
	s.mu.Unlock()
	return nil
}

func (s *DriveSystem) EnterNormal(c *librefsm.Context) error {
	return nil
}

// OnForceBoot marks the manual power override taken from the button.
func (s *DriveSystem) OnForceBoot(c *librefsm.Context) error {
	s.logger.Warnf("Force boot: power sense bypassed by operator")
	return nil
}

// OnTestComplete reports the scripted self-test result.
func (s *DriveSystem) OnTestComplete(c *librefsm.Context) error {
	if err := s.redis.PublishTestResult("complete"); err != nil {
		return fmt.Errorf("failed to publish test result: %w", err)
	}
	return nil
}
