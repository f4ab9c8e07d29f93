package gauge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mikesmitty/aqi-gauge/pkg/dutycycle"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	DefaultFrequency = 50 * physic.Hertz
	DefaultSettle    = 1 * time.Second
)

type Servo struct {
	freq   physic.Frequency
	pin    gpio.PinIO
	settle time.Duration
	mu     sync.Mutex
}

// NewServo takes ownership of pin and leaves the servo unpowered.
func NewServo(pin gpio.PinIO, freq physic.Frequency, settle time.Duration) (*Servo, error) {
	if freq == 0 {
		freq = DefaultFrequency
	}
	s := &Servo{
		freq:   freq,
		pin:    pin,
		settle: settle,
	}
	if err := s.set(0); err != nil {
		return nil, err
	}
	return s, nil
}

// SetDuty moves the servo to percent duty, waits for it to settle and then
// stops driving it so the needle doesn't jitter. The pulse is always turned
// off, even when ctx is cancelled during the settle.
func (s *Servo) SetDuty(ctx context.Context, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("servo control", "duty", strconv.FormatFloat(percent, 'f', 2, 64), "module", "gauge")
	if err := s.set(percent); err != nil {
		return err
	}

	t := time.NewTimer(s.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}

	return s.set(0)
}

// Close halts the PWM output and releases the pin.
func (s *Servo) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	errA := s.pin.Halt()
	errB := s.pin.In(gpio.PullNoChange, gpio.NoEdge)
	if errA != nil || errB != nil {
		return fmt.Errorf("failed to release servo pin %s: %v, %v", s.pin, errA, errB)
	}
	return nil
}

func (s *Servo) set(percent float64) error {
	if err := s.pin.PWM(dutycycle.FromPercent(percent), s.freq); err != nil {
		return fmt.Errorf("failed to set servo pwm: %w", err)
	}
	return nil
}
