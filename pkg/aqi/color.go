package aqi

import "fmt"

type Color struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// Category is an AQI band with an inclusive lower bound.
type Category struct {
	Name  string
	Min   float64
	Color Color
}

var (
	Maroon = Color{255, 0, 10}
	Purple = Color{128, 0, 128}
	Red    = Color{255, 0, 0}
	Orange = Color{255, 10, 0}
	Yellow = Color{255, 50, 0}
	Green  = Color{0, 255, 0}
	Off    = Color{}
)

// Categories is ordered from the highest band down; the first band whose Min
// the index reaches wins.
var Categories = []Category{
	{Name: "Hazardous", Min: 301, Color: Maroon},
	{Name: "Very Unhealthy", Min: 201, Color: Purple},
	{Name: "Unhealthy", Min: 151, Color: Red},
	{Name: "Unhealthy for Sensitive Groups", Min: 101, Color: Orange},
	{Name: "Moderate", Min: 51, Color: Yellow},
	{Name: "Good", Min: 0, Color: Green},
}

// Classify returns the band for index. ok is false for negative indexes,
// which no concentration can produce.
func Classify(index float64) (Category, bool) {
	for _, c := range Categories {
		if index >= c.Min {
			return c, true
		}
	}
	return Category{}, false
}

// ColorFor returns the band color for index, or Off if no band matches.
func ColorFor(index float64) Color {
	c, ok := Classify(index)
	if !ok {
		return Off
	}
	return c.Color
}
