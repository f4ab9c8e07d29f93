// Package gauge drives a hobby servo used as an analog AQI needle.
package gauge

import (
	"errors"
	"fmt"
)

const (
	// LowestIndex is the AQI shown when the servo sits at MaxDuty.
	LowestIndex = 0.0
	// CenterIndex is the AQI shown when the servo sits at CenterDuty.
	CenterIndex = 150.0
)

var ErrCalibration = errors.New("invalid gauge calibration")

// Calibration maps an AQI onto a servo duty cycle percentage along the line
// duty = A*index + B. The needle moves the opposite way to the duty cycle:
// MaxDuty reads zero and lower duty cycles read higher.
type Calibration struct {
	MinDuty    float64
	MaxDuty    float64
	CenterDuty float64
	A          float64
	B          float64
}

// Calibrate solves the line through (LowestIndex, maxDuty) and
// (CenterIndex, centerDuty).
func Calibrate(minDuty, maxDuty, centerDuty float64) (Calibration, error) {
	if minDuty >= maxDuty {
		return Calibration{}, fmt.Errorf("%w: min duty %v not below max duty %v", ErrCalibration, minDuty, maxDuty)
	}
	if centerDuty < minDuty || centerDuty > maxDuty {
		return Calibration{}, fmt.Errorf("%w: center duty %v outside [%v, %v]", ErrCalibration, centerDuty, minDuty, maxDuty)
	}
	return Calibration{
		MinDuty:    minDuty,
		MaxDuty:    maxDuty,
		CenterDuty: centerDuty,
		A:          (centerDuty - maxDuty) / CenterIndex,
		B:          maxDuty,
	}, nil
}

// Duty returns the duty cycle for index, pinned to [MinDuty, MaxDuty].
func (c Calibration) Duty(index float64) float64 {
	d := c.A*index + c.B
	if d < c.MinDuty {
		return c.MinDuty
	}
	if d > c.MaxDuty {
		return c.MaxDuty
	}
	return d
}
