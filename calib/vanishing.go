package calib

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Segment is a line segment between two canvas points. The solver only ever
// reads segments; callers own and mutate them.
type Segment struct {
	A r2.Point
	B r2.Point
}

// Direction returns the unnormalized direction B-A.
func (s Segment) Direction() r2.Point {
	return s.B.Sub(s.A)
}

// Midpoint returns the segment midpoint.
func (s Segment) Midpoint() r2.Point {
	return s.A.Add(s.B).Mul(0.5)
}

// VanishingPoint intersects the support lines of segments (a,b) and (c,d).
// When the two segments trace parallel world lines in a photograph, the
// intersection is the vanishing point of their shared direction. The angle
// between the segments is measured scale-free, so near-parallel input is
// rejected with ErrParallelSegments instead of producing a huge unstable
// intersection.
func VanishingPoint(a, b, c, d r2.Point) (r2.Point, error) {
	d1 := b.Sub(a)
	d2 := d.Sub(c)
	n1 := d1.Norm()
	n2 := d2.Norm()
	if n1 == 0 || n2 == 0 {
		return r2.Point{}, errors.Wrap(ErrParallelSegments, "zero-length segment")
	}
	den := d1.Cross(d2)
	if math.Abs(den)/(n1*n2) < DegenerateThreshold {
		return r2.Point{}, ErrParallelSegments
	}
	t := c.Sub(a).Cross(d2) / den
	return a.Add(d1.Mul(t)), nil
}

// Orthocenter returns the common intersection of the altitudes of triangle
// abc. For a triangle of vanishing points of three mutually orthogonal
// directions, the orthocenter is the camera's principal point. The result
// does not depend on the order of the vertices. Near-collinear triangles
// have no usable orthocenter and yield ErrCollinearVanishingPoints; the
// collinearity test normalizes twice the signed area by the squared longest
// side so the decision is scale-free.
func Orthocenter(a, b, c r2.Point) (r2.Point, error) {
	n := a.Y*b.X + b.Y*c.X + c.Y*a.X - b.X*c.Y - a.Y*c.X - a.X*b.Y

	longest := math.Max(b.Sub(a).Norm(), math.Max(c.Sub(b).Norm(), a.Sub(c).Norm()))
	if longest == 0 || math.Abs(n) < DegenerateThreshold*longest*longest {
		return r2.Point{}, ErrCollinearVanishingPoints
	}

	// Cramer's rule on two altitude equations:
	//   (c.X-b.X)x + (c.Y-b.Y)y = u   altitude through a
	//   (c.X-a.X)x + (c.Y-a.Y)y = v   altitude through b
	// whose determinant equals n.
	u := a.X*(c.X-b.X) + a.Y*(c.Y-b.Y)
	v := b.X*(c.X-a.X) + b.Y*(c.Y-a.Y)
	return r2.Point{
		X: (u*(c.Y-a.Y) - v*(c.Y-b.Y)) / n,
		Y: (v*(c.X-b.X) - u*(c.X-a.X)) / n,
	}, nil
}
