package watchdog

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchdogExpires(t *testing.T) {
	var fired atomic.Int32
	in := make(chan bool)
	fn := NewWatchdog(10*time.Millisecond, func() error {
		fired.Add(1)
		return nil
	}, in, func(v bool) bool { return v })

	done := make(chan error, 1)
	go func() { done <- fn() }()

	// Values that are not alive don't reset the timer.
	for i := 0; i < 5; i++ {
		in <- false
	}
	require.Eventually(t, func() bool { return fired.Load() > 0 }, 5*time.Second, 5*time.Millisecond)

	close(in)
	require.NoError(t, <-done)
}

func TestWatchdogStaysQuietWhileFed(t *testing.T) {
	var fired atomic.Int32
	in := make(chan int)
	fn := NewWatchdog(50*time.Millisecond, func() error {
		fired.Add(1)
		return nil
	}, in, nil)

	done := make(chan error, 1)
	go func() { done <- fn() }()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		in <- 1
		time.Sleep(5 * time.Millisecond)
	}
	close(in)
	require.NoError(t, <-done)
	assert.Equal(t, int32(0), fired.Load())
}

func TestWatchdogReturnsExpiredError(t *testing.T) {
	boom := errors.New("boom")
	in := make(chan int)
	fn := NewWatchdog(5*time.Millisecond, func() error { return boom }, in, nil)
	assert.ErrorIs(t, fn(), boom)
}
