package fsm

import "github.com/librescoot/librefsm"

// Operating modes
const (
	ModeAwaitingPower  librefsm.StateID = "awaiting-power"
	ModeBooting        librefsm.StateID = "booting"
	ModeAwaitingSignal librefsm.StateID = "awaiting-signal"
	ModeDebugOverride  librefsm.StateID = "debug-override"
	ModeDance          librefsm.StateID = "dance"
	ModeTest           librefsm.StateID = "test"
	ModeNormal         librefsm.StateID = "normal"
)

// Mode events
const (
	// From the power monitor
	EvPowerDetected librefsm.EventID = "power-detected"
	EvPowerLost     librefsm.EventID = "power-lost"

	// From the freshness / remote-command evaluation
	EvSignalAcquired librefsm.EventID = "signal-acquired"
	EvSignalLost     librefsm.EventID = "signal-lost"

	// From the operator button (sustained hold)
	EvForceBoot librefsm.EventID = "force-boot"
	EvLongPress librefsm.EventID = "long-press"

	// Explicit mode commands (Redis list / relay)
	EvDanceCommand librefsm.EventID = "dance-command"
	EvTestCommand  librefsm.EventID = "test-command"
	EvDebugCommand librefsm.EventID = "debug-command"
	EvModeExit     librefsm.EventID = "mode-exit"

	// State timeouts
	EvBootComplete librefsm.EventID = "boot-complete"
	EvDanceTimeout librefsm.EventID = "dance-timeout"
	EvTestTimeout  librefsm.EventID = "test-timeout"
)
