package rgbled

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mikesmitty/aqi-gauge/pkg/aqi"
	"github.com/mikesmitty/aqi-gauge/pkg/dutycycle"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const DefaultFrequency = 2 * physic.KiloHertz

type LED struct {
	activeLow bool
	freq      physic.Frequency
	red       gpio.PinIO
	green     gpio.PinIO
	blue      gpio.PinIO
	color     aqi.Color
	mu        sync.Mutex
}

// NewLED takes ownership of the three channel pins and starts dark. Common
// anode LEDs are activeLow.
func NewLED(red, green, blue gpio.PinIO, freq physic.Frequency, activeLow bool) (*LED, error) {
	if freq == 0 {
		freq = DefaultFrequency
	}
	l := &LED{
		activeLow: activeLow,
		freq:      freq,
		red:       red,
		green:     green,
		blue:      blue,
	}
	if err := l.set(aqi.Off); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LED) SetColor(c aqi.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	slog.Debug("led color", "color", c.String(), "module", "rgbled")
	return l.set(c)
}

func (l *LED) Off() error {
	return l.SetColor(aqi.Off)
}

func (l *LED) Color() aqi.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

// Close halts all three channels and releases the pins.
func (l *LED) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, p := range []gpio.PinIO{l.red, l.green, l.blue} {
		if err := p.Halt(); err != nil {
			errs = append(errs, err)
		}
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to release led pins: %v", errs)
	}
	return nil
}

func (l *LED) set(c aqi.Color) error {
	errR := l.channel(l.red, c.Red)
	errG := l.channel(l.green, c.Green)
	errB := l.channel(l.blue, c.Blue)
	if errR != nil || errG != nil || errB != nil {
		return fmt.Errorf("failed to set led pwm: %v, %v, %v", errR, errG, errB)
	}
	l.color = c
	return nil
}

func (l *LED) channel(pin gpio.PinOut, v uint8) error {
	return pin.PWM(dutycycle.FromPercent(dutycycle.Channel(v, l.activeLow)), l.freq)
}
