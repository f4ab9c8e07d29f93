package dutycycle

import (
	"periph.io/x/conn/v3/gpio"
)

// FromPercent converts a 0-100 percentage into a gpio.Duty, clamping values
// outside that range.
func FromPercent(percent float64) gpio.Duty {
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return gpio.DutyMax
	}
	return gpio.Duty(float64(gpio.DutyMax) * percent / 100.0)
}

// ToPercent converts a gpio.Duty back into a percentage.
func ToPercent(d gpio.Duty) float64 {
	return 100.0 * float64(d) / float64(gpio.DutyMax)
}

// Channel returns the duty percentage for an 8-bit channel intensity. Active
// low outputs (common-anode LEDs) are lit by pulling the pin low, so the
// percentage is inverted.
func Channel(v uint8, activeLow bool) float64 {
	pct := 100.0 * float64(v) / 255.0
	if activeLow {
		return 100.0 - pct
	}
	return pct
}
