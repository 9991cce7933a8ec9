package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// Timing constants
const (
	// BootDuration covers the scripted actuator sweep and the neutral
	// baseline capture window.
	BootDuration = 1 * time.Second

	// DanceDuration is the fixed randomized-wiggle window.
	DanceDuration = 10 * time.Second

	// TestDuration is the total length of the scripted self-test
	// sequence (steering extremes plus throttle pulses).
	TestDuration = 6 * time.Second
)

// NewDefinition creates the mode state machine definition. The actions
// parameter provides state entry effects and transition actions.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(ModeAwaitingPower,
			librefsm.WithOnEnter(actions.EnterAwaitingPower),
		).
		State(ModeBooting,
			librefsm.WithTimeout(BootDuration, EvBootComplete),
			librefsm.WithOnEnter(actions.EnterBooting),
		).
		State(ModeAwaitingSignal,
			librefsm.WithOnEnter(actions.EnterAwaitingSignal),
		).
		State(ModeDebugOverride,
			librefsm.WithOnEnter(actions.EnterDebugOverride),
		).
		State(ModeDance,
			librefsm.WithTimeout(DanceDuration, EvDanceTimeout),
			librefsm.WithOnEnter(actions.EnterDance),
		).
		State(ModeTest,
			librefsm.WithTimeout(TestDuration, EvTestTimeout),
			librefsm.WithOnEnter(actions.EnterTest),
		).
		State(ModeNormal,
			librefsm.WithOnEnter(actions.EnterNormal),
		).

		// === Transitions ===

		// From AwaitingPower: the sense wire, or a sustained button hold.
		Transition(ModeAwaitingPower, EvPowerDetected, ModeBooting).
		Transition(ModeAwaitingPower, EvForceBoot, ModeBooting,
			librefsm.WithAction(actions.OnForceBoot),
		).

		// Booting always advances once the sweep window elapses.
		Transition(ModeBooting, EvBootComplete, ModeAwaitingSignal).

		// From AwaitingSignal
		Transition(ModeAwaitingSignal, EvSignalAcquired, ModeNormal).
		Transition(ModeAwaitingSignal, EvLongPress, ModeDebugOverride).
		Transition(ModeAwaitingSignal, EvDebugCommand, ModeDebugOverride).
		Transition(ModeAwaitingSignal, EvDanceCommand, ModeDance).
		Transition(ModeAwaitingSignal, EvTestCommand, ModeTest).

		// From Normal
		Transition(ModeNormal, EvSignalLost, ModeAwaitingSignal).
		Transition(ModeNormal, EvLongPress, ModeDebugOverride).
		Transition(ModeNormal, EvDebugCommand, ModeDebugOverride).
		Transition(ModeNormal, EvDanceCommand, ModeDance).
		Transition(ModeNormal, EvTestCommand, ModeTest).

		// DebugOverride exits only by a second hold or an explicit command.
		Transition(ModeDebugOverride, EvLongPress, ModeAwaitingSignal).
		Transition(ModeDebugOverride, EvModeExit, ModeAwaitingSignal).
		Transition(ModeDebugOverride, EvDanceCommand, ModeDance).
		Transition(ModeDebugOverride, EvTestCommand, ModeTest).

		// Dance/Test own the outputs for their fixed windows, then drop
		// back to AwaitingSignal; the next cycle re-promotes if fresh.
		Transition(ModeDance, EvDanceTimeout, ModeAwaitingSignal).
		Transition(ModeDance, EvModeExit, ModeAwaitingSignal).
		Transition(ModeTest, EvTestTimeout, ModeAwaitingSignal,
			librefsm.WithAction(actions.OnTestComplete),
		).
		Transition(ModeTest, EvModeExit, ModeAwaitingSignal).

		// Power loss from any state unconditionally returns to
		// AwaitingPower; entry there clears all override state.
		Transition(ModeBooting, EvPowerLost, ModeAwaitingPower).
		Transition(ModeAwaitingSignal, EvPowerLost, ModeAwaitingPower).
		Transition(ModeDebugOverride, EvPowerLost, ModeAwaitingPower).
		Transition(ModeDance, EvPowerLost, ModeAwaitingPower).
		Transition(ModeTest, EvPowerLost, ModeAwaitingPower).
		Transition(ModeNormal, EvPowerLost, ModeAwaitingPower).

		// Initial state
		Initial(ModeAwaitingPower)
}
