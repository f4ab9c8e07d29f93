// Package aqi converts PM2.5 concentrations into US EPA Air Quality Index
// values and maps index values onto display colors.
package aqi

// Breakpoint is one tier of the EPA concentration-to-index table. A
// concentration belongs to the tier when it is strictly greater than ConcLow.
type Breakpoint struct {
	ConcLow   float64
	ConcHigh  float64
	IndexLow  float64
	IndexHigh float64
}

// Table is a breakpoint table ordered from the highest tier down.
type Table []Breakpoint

// PM25 is the PM2.5 (µg/m³) breakpoint table.
var PM25 = Table{
	{ConcLow: 350.5, ConcHigh: 500, IndexLow: 401, IndexHigh: 500},
	{ConcLow: 250.5, ConcHigh: 350.4, IndexLow: 301, IndexHigh: 400},
	{ConcLow: 150.5, ConcHigh: 250.4, IndexLow: 201, IndexHigh: 300},
	{ConcLow: 55.5, ConcHigh: 150.4, IndexLow: 151, IndexHigh: 200},
	{ConcLow: 35.5, ConcHigh: 55.4, IndexLow: 101, IndexHigh: 150},
	{ConcLow: 12.1, ConcHigh: 35.4, IndexLow: 51, IndexHigh: 100},
	{ConcLow: 0, ConcHigh: 12, IndexLow: 0, IndexHigh: 50},
}

// Interpolate applies the tier's linear formula to c. Values past ConcHigh
// are extrapolated along the same line.
func (b Breakpoint) Interpolate(c float64) float64 {
	return ((b.IndexHigh-b.IndexLow)/(b.ConcHigh-b.ConcLow))*(c-b.ConcLow) + b.IndexLow
}

// Tier returns the first breakpoint, scanning from the top, whose lower bound
// c exceeds. ok is false when c is not above any lower bound (c <= 0 for PM25).
func (t Table) Tier(c float64) (Breakpoint, bool) {
	for _, b := range t {
		if c > b.ConcLow {
			return b, true
		}
	}
	return Breakpoint{}, false
}

// Index returns the AQI for concentration c. Concentrations at or below zero
// give 0. Concentrations above the top tier are not clamped.
func (t Table) Index(c float64) float64 {
	b, ok := t.Tier(c)
	if !ok {
		return 0
	}
	return b.Interpolate(c)
}

// Index returns the PM2.5 AQI for concentration c.
func Index(c float64) float64 {
	return PM25.Index(c)
}
