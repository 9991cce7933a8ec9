package hardware

// GPIO line assignments on the carrier board. All lines sit on the
// main SoC GPIO chip.
const (
	DefaultChip = "gpiochip0"

	// RC receiver PWM inputs
	SteeringInLine = 17
	ThrottleInLine = 27

	// HC-SR04 ranging
	SonarTriggerLine = 23
	SonarEchoLine    = 24

	// Operator buttons, active low with pull-ups
	ModeButtonLine = 5
	PageButtonLine = 6
)

// Indicator output lines
var IndicatorLines = map[string]int{
	"turn-left":  16,
	"turn-right": 20,
	"brake":      21,
	"status":     26,
}

// Servo PWM via sysfs. Standard RC frame: 20 ms period, pulse width
// carries the command.
const (
	PwmChipPath   = "/sys/class/pwm/pwmchip0"
	ServoPeriodNs = 20_000_000
)

// ServoPwmChannels maps logical actuator names to pwmchip channels.
var ServoPwmChannels = map[string]int{
	"steering": 0,
	"throttle": 1,
}

// Battery sense ADC (IIO). The divider brings the pack voltage into
// the ADC range; scale converts a raw count back to volts.
const (
	AdcDevice         = "iio:device0"
	BatteryAdcChannel = 0
	BatteryVoltScale  = 0.00322 // volts per count, 3.3V / 4095 * divider 4:1
	AdcMaxCount       = 4095
)
