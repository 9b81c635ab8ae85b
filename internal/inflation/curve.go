package inflation

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInsufficientPoints means the curve has fewer than two distinct points.
var ErrInsufficientPoints = errors.New("at least two distinct points are required to interpolate")

// Point is one (position, rate) observation.
type Point struct {
	X int64
	Y decimal.Decimal
}

// Curve is a piecewise-linear function through sorted points with distinct X.
type Curve struct {
	points []Point
}

// NewCurve sorts points by X. When several points share an X the first one
// supplied is kept.
func NewCurve(points []Point) *Curve {
	sorted := append([]Point(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	distinct := make([]Point, 0, len(sorted))
	for _, p := range sorted {
		if n := len(distinct); n > 0 && distinct[n-1].X == p.X {
			continue
		}
		distinct = append(distinct, p)
	}
	return &Curve{points: distinct}
}

// Len is the number of distinct points.
func (c *Curve) Len() int {
	return len(c.points)
}

// Points returns the distinct sorted points.
func (c *Curve) Points() []Point {
	return c.points
}

// At evaluates the curve at x. Inside the observed range it interpolates
// between the bracketing points; outside it extends the first or last segment.
func (c *Curve) At(x int64) (decimal.Decimal, error) {
	n := len(c.points)
	if n < 2 {
		return decimal.Decimal{}, ErrInsufficientPoints
	}

	// first index with X >= x
	i := sort.Search(n, func(i int) bool { return c.points[i].X >= x })
	if i < n && c.points[i].X == x {
		return c.points[i].Y, nil
	}

	var lo, hi Point
	switch {
	case i <= 0:
		lo, hi = c.points[0], c.points[1]
	case i >= n:
		lo, hi = c.points[n-2], c.points[n-1]
	default:
		lo, hi = c.points[i-1], c.points[i]
	}

	dx := decimal.NewFromInt(hi.X - lo.X)
	offset := decimal.NewFromInt(x - lo.X)
	return lo.Y.Add(hi.Y.Sub(lo.Y).Mul(offset).Div(dx)), nil
}
