package swma

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SlidingWindow keeps the most recent windowSize values. Until the window
// fills, statistics cover only the values added so far.
type SlidingWindow struct {
	window     []float64
	windowSize int
	x          []float64
}

func NewSlidingWindow(windowSize int) *SlidingWindow {
	if windowSize < 1 {
		windowSize = 1
	}
	x := make([]float64, windowSize)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return &SlidingWindow{
		window:     make([]float64, 0, windowSize),
		windowSize: windowSize,
		x:          x,
	}
}

// Add evicts the oldest value once the window is full, appends value and
// returns the new average.
func (s *SlidingWindow) Add(value float64) float64 {
	if len(s.window) == s.windowSize {
		s.window = append(s.window[:0], s.window[1:]...)
	}
	s.window = append(s.window, value)
	return s.Average()
}

// Average is the arithmetic mean of the held values, 0 when empty.
func (s *SlidingWindow) Average() float64 {
	if len(s.window) == 0 {
		return 0
	}
	return stat.Mean(s.window, nil)
}

// StdDev is the sample standard deviation of the held values.
func (s *SlidingWindow) StdDev() float64 {
	if len(s.window) < 2 {
		return 0
	}
	return stat.StdDev(s.window, nil)
}

// Trend is the least-squares slope of the held values per sample.
func (s *SlidingWindow) Trend() float64 {
	if len(s.window) < 2 {
		return 0
	}
	_, m := stat.LinearRegression(s.x[:len(s.window)], s.window, nil, false)
	return m
}

func (s *SlidingWindow) Reset() {
	s.window = s.window[:0]
}

func (s *SlidingWindow) Len() int {
	return len(s.window)
}

func (s *SlidingWindow) Sum() float64 {
	return floats.Sum(s.window)
}

// Window returns a copy of the held values, oldest first.
func (s *SlidingWindow) Window() []float64 {
	out := make([]float64, len(s.window))
	copy(out, s.window)
	return out
}

func (s *SlidingWindow) WindowSize() int {
	return s.windowSize
}
