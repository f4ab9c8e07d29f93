package rgbled

import (
	"errors"
	"testing"

	"github.com/mikesmitty/aqi-gauge/pkg/aqi"
	"github.com/mikesmitty/aqi-gauge/pkg/dutycycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func newPins() (*gpiotest.Pin, *gpiotest.Pin, *gpiotest.Pin) {
	return &gpiotest.Pin{N: "red", Num: 17}, &gpiotest.Pin{N: "green", Num: 27}, &gpiotest.Pin{N: "blue", Num: 22}
}

func TestNewLEDStartsDark(t *testing.T) {
	r, g, b := newPins()
	_, err := NewLED(r, g, b, 0, true)
	require.NoError(t, err)
	for _, p := range []*gpiotest.Pin{r, g, b} {
		assert.Equal(t, gpio.DutyMax, p.D, p.N)
		assert.Equal(t, DefaultFrequency, p.F, p.N)
	}
}

func TestSetColorCommonAnode(t *testing.T) {
	r, g, b := newPins()
	l, err := NewLED(r, g, b, 0, true)
	require.NoError(t, err)

	require.NoError(t, l.SetColor(aqi.Yellow))
	assert.Equal(t, gpio.Duty(0), r.D)
	assert.Equal(t, dutycycle.FromPercent(100-100*50.0/255.0), g.D)
	assert.Equal(t, gpio.DutyMax, b.D)
	assert.Equal(t, aqi.Yellow, l.Color())

	require.NoError(t, l.Off())
	assert.Equal(t, gpio.DutyMax, r.D)
	assert.Equal(t, aqi.Off, l.Color())
}

func TestSetColorCommonCathode(t *testing.T) {
	r, g, b := newPins()
	l, err := NewLED(r, g, b, physic.KiloHertz, false)
	require.NoError(t, err)

	require.NoError(t, l.SetColor(aqi.Green))
	assert.Equal(t, gpio.Duty(0), r.D)
	assert.Equal(t, gpio.DutyMax, g.D)
	assert.Equal(t, gpio.Duty(0), b.D)
	assert.Equal(t, physic.KiloHertz, g.F)
}

type failingPin struct {
	gpiotest.Pin
}

func (f *failingPin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("no pwm")
}

func TestSetColorError(t *testing.T) {
	r, g, _ := newPins()
	_, err := NewLED(r, g, &failingPin{}, 0, true)
	assert.ErrorContains(t, err, "no pwm")
}

func TestClose(t *testing.T) {
	r, g, b := newPins()
	l, err := NewLED(r, g, b, 0, true)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}
