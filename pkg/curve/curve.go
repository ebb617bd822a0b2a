// Package curve implements the piecewise-linear response curve that maps an
// ambient light reading to a desired brightness percentage.
package curve

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidCurve is returned when a curve cannot be built from the given
// breakpoints.
var ErrInvalidCurve = errors.New("invalid brightness curve")

// Point is a single breakpoint of a curve.
type Point struct {
	Input  uint32 `json:"input"`
	Output uint32 `json:"output"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.Input, p.Output)
}

// Curve is an immutable piecewise-linear function. Points are sorted by
// Input and the slice is never empty.
type Curve struct {
	points []Point
}

// FromBreakpoints builds a curve from an unordered list of breakpoints.
// Input values should be unique; the result for duplicates is unspecified.
func FromBreakpoints(points []Point) (*Curve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no breakpoints", ErrInvalidCurve)
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Input != sorted[j].Input {
			return sorted[i].Input < sorted[j].Input
		}
		return sorted[i].Output < sorted[j].Output
	})

	return &Curve{points: sorted}, nil
}

// Evaluate returns the curve value at x.
//
// Values at or outside the first/last breakpoint take that breakpoint's
// output. Between breakpoints the value is linearly interpolated and
// truncated toward zero.
func (c *Curve) Evaluate(x uint32) uint32 {
	// index of the first point strictly greater than x
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Input > x
	})

	switch i {
	case len(c.points):
		return c.points[len(c.points)-1].Output
	case 0:
		return c.points[0].Output
	}

	lo, hi := c.points[i-1], c.points[i]
	y := float64(lo.Output) +
		(float64(hi.Output)-float64(lo.Output))*float64(x-lo.Input)/float64(hi.Input-lo.Input)

	return uint32(y)
}

// Points returns a copy of the sorted breakpoints.
func (c *Curve) Points() []Point {
	ret := make([]Point, len(c.points))
	copy(ret, c.points)
	return ret
}

func (c *Curve) String() string {
	return fmt.Sprint(c.points)
}
