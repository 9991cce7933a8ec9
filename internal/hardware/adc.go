package hardware

import (
	"fmt"
	"os"
)

// ReadAdcValue reads one raw sample from an IIO ADC channel.
func ReadAdcValue(device string, channel int) (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", device, channel)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return -1, fmt.Errorf("ADC sysfs not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	_, err = fmt.Sscanf(string(data), "%d", &value)
	if err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}

	return value, nil
}

func InRange(v, min, max int) bool {
	return v >= min && v <= max
}

// BatterySource reads the pack voltage through the IIO ADC divider.
// Implements the power monitor's voltage source.
type BatterySource struct {
	device  string
	channel int
	scale   float64
}

func NewBatterySource() *BatterySource {
	return &BatterySource{
		device:  AdcDevice,
		channel: BatteryAdcChannel,
		scale:   BatteryVoltScale,
	}
}

func (b *BatterySource) ReadVolts() (float64, error) {
	raw, err := ReadAdcValue(b.device, b.channel)
	if err != nil {
		return 0, err
	}
	if !InRange(raw, 0, AdcMaxCount) {
		return 0, fmt.Errorf("ADC count %d out of range", raw)
	}
	return float64(raw) * b.scale, nil
}
