package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikesmitty/aqi-gauge/pkg/aqi"
	"github.com/mikesmitty/aqi-gauge/pkg/gauge"
	"github.com/mikesmitty/aqi-gauge/pkg/purpleair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type feedFunc func(ctx context.Context) (purpleair.Sample, error)

func (f feedFunc) Fetch(ctx context.Context) (purpleair.Sample, error) {
	return f(ctx)
}

// scripted returns the given concentrations in order, then repeats the last.
func scripted(values ...float64) feedFunc {
	var mu sync.Mutex
	i := 0
	return func(context.Context) (purpleair.Sample, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return purpleair.Sample{PM25: v, Readings: 1}, nil
	}
}

type mockActuator struct {
	mock.Mock
}

func (m *mockActuator) SetDuty(ctx context.Context, percent float64) error {
	return m.Called(ctx, percent).Error(0)
}

func (m *mockActuator) Close() error {
	return m.Called().Error(0)
}

type mockLight struct {
	mock.Mock
}

func (m *mockLight) SetColor(c aqi.Color) error {
	return m.Called(c).Error(0)
}

func (m *mockLight) Off() error {
	return m.Called().Error(0)
}

func (m *mockLight) Close() error {
	return m.Called().Error(0)
}

func testCalibration(t *testing.T) gauge.Calibration {
	t.Helper()
	c, err := gauge.Calibrate(3.0, 10.9, 5.75)
	require.NoError(t, err)
	return c
}

func newDevices() (*mockActuator, *mockLight) {
	act := new(mockActuator)
	act.On("SetDuty", mock.Anything, mock.Anything).Return(nil)
	act.On("Close").Return(nil)
	light := new(mockLight)
	light.On("SetColor", mock.Anything).Return(nil)
	light.On("Off").Return(nil)
	light.On("Close").Return(nil)
	return act, light
}

func TestStepRunningAverage(t *testing.T) {
	cal := testCalibration(t)
	act, light := newDevices()
	raw := []float64{5, 15, 40, 60, 160}
	m := New(scripted(raw...), act, light, cal)

	sum := 0.0
	last := -1.0
	for i, v := range raw {
		r := m.Step(context.Background())
		sum += v
		avg := sum / float64(i+1)

		assert.Equal(t, v, r.PM25)
		assert.Equal(t, i+1, r.Window)
		assert.InDelta(t, avg, r.Average, 1e-9)
		assert.InDelta(t, aqi.Index(avg), r.AQI, 1e-9)
		assert.GreaterOrEqual(t, r.AQI, last)
		assert.Equal(t, aqi.ColorFor(r.AQI), r.Color)
		assert.InDelta(t, cal.Duty(r.AQI), r.Duty, 1e-9)
		assert.True(t, r.Fresh)
		last = r.AQI

		act.AssertCalled(t, "SetDuty", mock.Anything, r.Duty)
		light.AssertCalled(t, "SetColor", r.Color)
	}
	assert.Equal(t, Idle, m.State())
}

func TestStepWindowEvicts(t *testing.T) {
	act, light := newDevices()
	values := make([]float64, 11)
	for i := range values {
		values[i] = float64(i + 1)
	}
	m := New(scripted(values...), act, light, testCalibration(t))

	var r Reading
	for range values {
		r = m.Step(context.Background())
	}
	assert.Equal(t, 10, r.Window)
	assert.Equal(t, 6.5, r.Average)
}

func TestStepFeedFailure(t *testing.T) {
	act, light := newDevices()
	calls := 0
	feed := feedFunc(func(context.Context) (purpleair.Sample, error) {
		calls++
		if calls == 2 {
			return purpleair.Sample{}, errors.New("connection refused")
		}
		return purpleair.Sample{PM25: 30, Readings: 2}, nil
	})
	m := New(feed, act, light, testCalibration(t))

	m.Step(context.Background())
	r := m.Step(context.Background())
	assert.False(t, r.Fresh)
	assert.Equal(t, 0.0, r.PM25)
	assert.Equal(t, 0, r.Readings)
	assert.Equal(t, 2, r.Window)
	assert.InDelta(t, 15.0, r.Average, 1e-9)

	r = m.Step(context.Background())
	assert.True(t, r.Fresh)
	assert.InDelta(t, 20.0, r.Average, 1e-9)
	act.AssertNumberOfCalls(t, "SetDuty", 3)
}

func TestStepNoReadingsIsNotFresh(t *testing.T) {
	act, light := newDevices()
	feed := feedFunc(func(context.Context) (purpleair.Sample, error) {
		return purpleair.Sample{Skipped: 3}, nil
	})
	m := New(feed, act, light, testCalibration(t))

	r := m.Step(context.Background())
	assert.False(t, r.Fresh)
	assert.Equal(t, 3, r.Skipped)
	assert.Equal(t, 0.0, r.AQI)
	assert.Equal(t, "Good", r.Category)
	assert.Equal(t, aqi.Green, r.Color)
	assert.InDelta(t, 10.9, r.Duty, 1e-9)
}

func TestStepDisabled(t *testing.T) {
	act, light := newDevices()
	m := New(scripted(50), act, light, testCalibration(t))
	m.Disable()
	assert.False(t, m.Enabled())

	r := m.Step(context.Background())
	assert.Equal(t, 1, r.Window)
	act.AssertNotCalled(t, "SetDuty", mock.Anything, mock.Anything)
	light.AssertNotCalled(t, "SetColor", mock.Anything)

	m.Enable()
	m.Step(context.Background())
	act.AssertNumberOfCalls(t, "SetDuty", 1)
}

func TestDarkenDuringActuation(t *testing.T) {
	settling := make(chan struct{})
	release := make(chan struct{})
	act := new(mockActuator)
	act.On("SetDuty", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(settling)
		<-release
	}).Return(nil).Once()
	light := new(mockLight)
	light.On("SetColor", mock.Anything).Return(nil)
	light.On("Off").Return(nil)
	m := New(scripted(80), act, light, testCalibration(t))

	stepped := make(chan Reading, 1)
	go func() { stepped <- m.Step(context.Background()) }()
	<-settling

	darkened := make(chan error, 1)
	go func() { darkened <- m.Darken() }()
	require.Eventually(t, func() bool { return !m.Enabled() }, time.Second, time.Millisecond)
	select {
	case <-darkened:
		t.Fatal("light turned off while the gauge was still moving")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stepped
	require.NoError(t, <-darkened)
	light.AssertNotCalled(t, "SetColor", mock.Anything)
	light.AssertNumberOfCalls(t, "Off", 1)
}

func TestStepDeviceErrorsDoNotStop(t *testing.T) {
	act := new(mockActuator)
	act.On("SetDuty", mock.Anything, mock.Anything).Return(errors.New("pwm"))
	light := new(mockLight)
	light.On("SetColor", mock.Anything).Return(errors.New("pwm"))
	m := New(scripted(10), act, light, testCalibration(t))

	r := m.Step(context.Background())
	assert.Equal(t, 1, r.Window)
	light.AssertNumberOfCalls(t, "SetColor", 1)
}

func TestShutdown(t *testing.T) {
	act, light := newDevices()
	m := New(scripted(200), act, light, testCalibration(t))
	m.Step(context.Background())

	require.NoError(t, m.Shutdown())
	act.AssertCalled(t, "SetDuty", mock.Anything, 10.9)
	light.AssertCalled(t, "Off")
	act.AssertCalled(t, "Close")
	light.AssertCalled(t, "Close")

	require.NoError(t, m.Shutdown())
	act.AssertNumberOfCalls(t, "Close", 1)
}

func TestShutdownReportsFirstError(t *testing.T) {
	act := new(mockActuator)
	act.On("SetDuty", mock.Anything, mock.Anything).Return(nil)
	act.On("Close").Return(errors.New("busy"))
	light := new(mockLight)
	light.On("Off").Return(nil)
	light.On("Close").Return(nil)
	m := New(scripted(1), act, light, testCalibration(t))

	assert.EqualError(t, m.Shutdown(), "busy")
	light.AssertCalled(t, "Close")
}

func TestRunEmitsReadings(t *testing.T) {
	act, light := newDevices()
	out := make(chan Reading)
	m := New(scripted(5, 15, 40), act, light, testCalibration(t),
		WithInterval(time.Millisecond),
		WithOutput(out),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	var got []Reading
	for len(got) < 3 {
		select {
		case r := <-out:
			got = append(got, r)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for readings")
		}
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.InDelta(t, 20.0, got[2].Average, 1e-9)
}

func TestRunCancelledMidFetch(t *testing.T) {
	act, light := newDevices()
	fetching := make(chan struct{})
	feed := feedFunc(func(ctx context.Context) (purpleair.Sample, error) {
		close(fetching)
		<-ctx.Done()
		return purpleair.Sample{}, ctx.Err()
	})
	m := New(feed, act, light, testCalibration(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	<-fetching
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	act.AssertNotCalled(t, "SetDuty", mock.Anything, mock.Anything)

	require.NoError(t, m.Shutdown())
	act.AssertCalled(t, "SetDuty", mock.Anything, 10.9)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "sampling", Sampling.String())
	assert.Equal(t, "actuating", Actuating.String())
	assert.Equal(t, "unknown", State(9).String())
}
