package calib

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ClipPlane is one bounding half-space of a view frustum, stored as a unit
// normal and a distance so that SignedDistance is a true euclidean
// distance. Points with a non-negative signed distance are inside.
type ClipPlane struct {
	Normal   r3.Vector
	Distance float64
}

// SignedDistance returns the distance from pt to the plane, positive on the
// inside.
func (p ClipPlane) SignedDistance(pt r3.Vector) float64 {
	return p.Normal.Dot(pt) + p.Distance
}

// Frustum holds the six clip planes of a camera, ordered left, right,
// bottom, top, near, far.
type Frustum [6]ClipPlane

// FrustumFromMatrix extracts the clip planes from a combined
// projection-times-view matrix: sums and differences of the fourth matrix
// row with each of the first three, normalized. Fails only when the matrix
// is degenerate enough to produce a zero plane normal.
func FrustumFromMatrix(m mgl64.Mat4) (Frustum, error) {
	rows := [4]mgl64.Vec4{m.Row(0), m.Row(1), m.Row(2), m.Row(3)}
	var f Frustum
	for i := 0; i < 3; i++ {
		lo, err := newClipPlane(rows[3].Add(rows[i]))
		if err != nil {
			return Frustum{}, err
		}
		hi, err := newClipPlane(rows[3].Sub(rows[i]))
		if err != nil {
			return Frustum{}, err
		}
		f[2*i] = lo
		f[2*i+1] = hi
	}
	return f, nil
}

// ClipSegment clips the world segment p0-p1 against all six planes. The
// boolean is false when no part of the segment lies inside the frustum;
// otherwise the returned endpoints delimit the surviving span. Endpoints
// already inside come back unchanged.
func (f Frustum) ClipSegment(p0, p1 r3.Vector) (r3.Vector, r3.Vector, bool) {
	for _, plane := range f {
		d0 := plane.SignedDistance(p0)
		d1 := plane.SignedDistance(p1)
		switch {
		case d0 >= 0 && d1 >= 0:
		case d0 < 0 && d1 < 0:
			return r3.Vector{}, r3.Vector{}, false
		default:
			// d0 and d1 straddle zero, so the denominator cannot vanish.
			t := d0 / (d0 - d1)
			hit := p0.Add(p1.Sub(p0).Mul(t))
			if d0 < 0 {
				p0 = hit
			} else {
				p1 = hit
			}
		}
	}
	return p0, p1, true
}

func newClipPlane(v mgl64.Vec4) (ClipPlane, error) {
	n := r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
	length := n.Norm()
	if length < detEpsilon {
		return ClipPlane{}, errors.Wrap(ErrSingularTransform, "clip plane has a zero normal")
	}
	return ClipPlane{Normal: n.Mul(1 / length), Distance: v.W() / length}, nil
}
