// Package monitor runs the sample, average, display cycle.
package monitor

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mikesmitty/aqi-gauge/pkg/aqi"
	"github.com/mikesmitty/aqi-gauge/pkg/gauge"
	"github.com/mikesmitty/aqi-gauge/pkg/purpleair"
	"github.com/mikesmitty/aqi-gauge/pkg/swma"
)

const (
	DefaultInterval   = 60 * time.Second
	DefaultWindowSize = 10
	ShutdownTimeout   = 5 * time.Second
)

type State int

const (
	Idle State = iota
	Sampling
	Actuating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Actuating:
		return "actuating"
	}
	return "unknown"
}

type Feed interface {
	Fetch(ctx context.Context) (purpleair.Sample, error)
}

type Actuator interface {
	SetDuty(ctx context.Context, percent float64) error
	Close() error
}

type Light interface {
	SetColor(c aqi.Color) error
	Off() error
	Close() error
}

// Reading is the outcome of one cycle. Fresh is true when the feed answered
// with at least one usable value.
type Reading struct {
	Time     time.Time
	PM25     float64
	Readings int
	Skipped  int
	Fresh    bool
	Window   int
	Average  float64
	Spread   float64
	Trend    float64
	AQI      float64
	Category string
	Color    aqi.Color
	Duty     float64
}

type Monitor struct {
	feed        Feed
	actuator    Actuator
	light       Light
	calibration gauge.Calibration
	interval    time.Duration
	window      *swma.SlidingWindow
	output      chan<- Reading
	now         func() time.Time

	mu       sync.Mutex
	enabled  bool
	state    State
	shutdown sync.Once

	// held while the devices are being driven
	actuating sync.Mutex
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

func WithWindowSize(n int) Option {
	return func(m *Monitor) { m.window = swma.NewSlidingWindow(n) }
}

// WithOutput sends every Reading to c. The monitor never closes c.
func WithOutput(c chan<- Reading) Option {
	return func(m *Monitor) { m.output = c }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(feed Feed, actuator Actuator, light Light, cal gauge.Calibration, opts ...Option) *Monitor {
	m := &Monitor{
		feed:        feed,
		actuator:    actuator,
		light:       light,
		calibration: cal,
		interval:    DefaultInterval,
		window:      swma.NewSlidingWindow(DefaultWindowSize),
		now:         time.Now,
		enabled:     true,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run cycles until ctx is done. A cycle that overruns the interval is
// followed immediately by the next one.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("starting monitor loop", "interval", m.interval, "window", m.window.WindowSize(), "module", "monitor")
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor loop stopped", "module", "monitor")
			return nil
		case <-t.C:
		}
		start := m.now()
		r := m.Step(ctx)
		if ctx.Err() != nil {
			continue
		}
		m.emit(ctx, r)

		wait := m.interval - m.now().Sub(start)
		if wait < 0 {
			wait = 0
		}
		slog.Debug("waiting for next cycle", "wait", wait, "module", "monitor")
		t.Reset(wait)
	}
}

// Step runs a single Sampling -> Actuating -> Idle cycle.
func (m *Monitor) Step(ctx context.Context) Reading {
	m.setState(Sampling)
	defer m.setState(Idle)

	r := Reading{Time: m.now()}
	s, err := m.feed.Fetch(ctx)
	if ctx.Err() != nil {
		return r
	}
	if err != nil {
		slog.Warn("sensor feed failed, using zero reading", "error", err, "module", "monitor")
		s = purpleair.Sample{}
	}
	r.PM25 = s.PM25
	r.Readings = s.Readings
	r.Skipped = s.Skipped
	r.Fresh = err == nil && s.Readings > 0

	r.Average = m.window.Add(s.PM25)
	r.Window = m.window.Len()
	r.Spread = m.window.StdDev()
	r.Trend = m.window.Trend()
	r.AQI = aqi.Index(r.Average)
	if c, ok := aqi.Classify(r.AQI); ok {
		r.Category = c.Name
	}
	r.Color = aqi.ColorFor(r.AQI)
	r.Duty = m.calibration.Duty(r.AQI)

	slog.Info("air quality",
		"pm25", strconv.FormatFloat(r.PM25, 'f', 2, 64),
		"readings", r.Readings,
		"skipped", r.Skipped,
		"history", r.Window,
		"average", strconv.FormatFloat(r.Average, 'f', 2, 64),
		"aqi", strconv.FormatFloat(r.AQI, 'f', 1, 64),
		"category", r.Category,
		"duty", strconv.FormatFloat(r.Duty, 'f', 2, 64),
		"module", "monitor",
	)

	m.setState(Actuating)
	m.actuate(ctx, r)
	return r
}

func (m *Monitor) actuate(ctx context.Context, r Reading) {
	m.actuating.Lock()
	defer m.actuating.Unlock()
	if !m.Enabled() {
		slog.Debug("display disabled, skipping actuation", "module", "monitor")
		return
	}
	if err := m.actuator.SetDuty(ctx, r.Duty); err != nil {
		slog.Error("failed to move gauge", "error", err, "module", "monitor")
	}
	// the display may have been switched off during the servo settle
	if !m.Enabled() {
		return
	}
	if err := m.light.SetColor(r.Color); err != nil {
		slog.Error("failed to set led color", "error", err, "module", "monitor")
	}
}

// Darken disables the display and turns the light off once any cycle that
// is driving the devices has finished.
func (m *Monitor) Darken() error {
	m.Disable()
	m.actuating.Lock()
	defer m.actuating.Unlock()
	return m.light.Off()
}

// Shutdown parks the gauge at the zero reading, darkens the light and
// releases both devices. Only the first call has any effect.
func (m *Monitor) Shutdown() error {
	var err error
	m.shutdown.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		m.actuating.Lock()
		defer m.actuating.Unlock()

		slog.Info("parking gauge", "module", "monitor")
		errs := []error{
			m.actuator.SetDuty(ctx, m.calibration.Duty(gauge.LowestIndex)),
			m.light.Off(),
			m.actuator.Close(),
			m.light.Close(),
		}
		for _, e := range errs {
			if e != nil {
				slog.Error("shutdown error", "error", e, "module", "monitor")
				if err == nil {
					err = e
				}
			}
		}
	})
	return err
}

func (m *Monitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

func (m *Monitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Monitor) emit(ctx context.Context, r Reading) {
	if m.output == nil {
		return
	}
	select {
	case m.output <- r:
	case <-ctx.Done():
	}
}
