package fsm

import "github.com/librescoot/librefsm"

// Actions is the interface the mode state machine calls back into.
// DriveSystem implements it to run entry effects and scripted sequences.
type Actions interface {
	// State entry actions
	EnterAwaitingPower(c *librefsm.Context) error
	EnterBooting(c *librefsm.Context) error
	EnterAwaitingSignal(c *librefsm.Context) error
	EnterDebugOverride(c *librefsm.Context) error
	EnterDance(c *librefsm.Context) error
	EnterTest(c *librefsm.Context) error
	EnterNormal(c *librefsm.Context) error

	// Transition actions
	OnForceBoot(c *librefsm.Context) error    // manual power override, bypasses the sense wire
	OnTestComplete(c *librefsm.Context) error // reports the scripted test result
}
