package dutycycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
)

func TestFromPercent(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), FromPercent(0))
	assert.Equal(t, gpio.Duty(0), FromPercent(-3))
	assert.Equal(t, gpio.DutyMax, FromPercent(100))
	assert.Equal(t, gpio.DutyMax, FromPercent(150))
	assert.Equal(t, gpio.DutyHalf, FromPercent(50))
	assert.InDelta(t, 10.9, ToPercent(FromPercent(10.9)), 1e-4)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, 100.0, Channel(255, false))
	assert.Equal(t, 0.0, Channel(0, false))
	assert.Equal(t, 0.0, Channel(255, true))
	assert.Equal(t, 100.0, Channel(0, true))
	assert.InDelta(t, 100.0-100.0*50.0/255.0, Channel(50, true), 1e-9)
}
