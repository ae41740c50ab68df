package calib

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	// wEpsilon is the smallest clip-space w treated as in front of the
	// camera. Well below DefaultNearPlane, so frustum-clipped geometry
	// always projects.
	wEpsilon = 1e-9
	// detEpsilon is the smallest matrix determinant treated as invertible.
	detEpsilon = 1e-12
)

// Axis selects which world axis an edit moves a point along.
type Axis int

// The three world axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "invalid"
	}
}

// Unit returns the world-space unit vector of the axis.
func (a Axis) Unit() r3.Vector {
	switch a {
	case AxisX:
		return r3.Vector{X: 1}
	case AxisY:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

// ConstraintNormal returns the normal of the plane a cursor ray is
// intersected with while editing along the axis: the X-normal plane for Z
// edits, the Z-normal plane for X and Y edits. Either plane contains every
// line through the anchor parallel to the edited axis, which is what keeps
// the intersection meaningful.
func (a Axis) ConstraintNormal() r3.Vector {
	if a == AxisZ {
		return r3.Vector{X: 1}
	}
	return r3.Vector{Z: 1}
}

// ProjectionMatrix is the perspective projection for the pose: a square
// frustum bounded by DefaultNearPlane and DefaultFarPlane for the solved
// field of view, with the principal point folded in as an off-center
// offset. With this matrix, normalized device coordinates coincide with
// image-plane coordinates.
func (p CameraPose) ProjectionMatrix() mgl64.Mat4 {
	m := mgl64.Perspective(p.FieldOfView, 1, DefaultNearPlane, DefaultFarPlane)
	m.Set(0, 2, -p.PrincipalPoint.X)
	m.Set(1, 2, -p.PrincipalPoint.Y)
	return m
}

// ViewProjection composes projection and view; the result maps world
// coordinates to clip space.
func (p CameraPose) ViewProjection() mgl64.Mat4 {
	return p.ProjectionMatrix().Mul4(p.ViewTransform)
}

// ProjectPoint maps a world point to image-plane coordinates. Points on or
// behind the camera plane have no projection and yield ErrBehindCamera,
// never infinities.
func (p CameraPose) ProjectPoint(pt r3.Vector) (r2.Point, error) {
	clip := p.ViewProjection().Mul4x1(mgl64.Vec4{pt.X, pt.Y, pt.Z, 1})
	w := clip.W()
	if w < wEpsilon {
		return r2.Point{}, ErrBehindCamera
	}
	return r2.Point{X: clip.X() / w, Y: clip.Y() / w}, nil
}

// WorldToScreen maps a world point to canvas coordinates.
func (p CameraPose) WorldToScreen(ratio float64, pt r3.Vector) (r2.Point, error) {
	plane, err := p.ProjectPoint(pt)
	if err != nil {
		return r2.Point{}, err
	}
	return FromImagePlane(ratio, plane), nil
}

// ScreenToWorld recovers the world point under a canvas cursor while a
// point is being edited along axis. Projection loses one dimension, so the
// cursor determines a viewing ray, not a point; intersecting the ray with
// the constraint plane through anchor supplies the missing dimension. The
// result is the exact preimage of the cursor: projecting it back lands on
// the cursor again.
func (p CameraPose) ScreenToWorld(ratio float64, cursor r2.Point, axis Axis, anchor r3.Vector) (r3.Vector, error) {
	pv := p.ViewProjection()
	if math.Abs(pv.Det()) < detEpsilon {
		return r3.Vector{}, ErrSingularTransform
	}
	inv := pv.Inv()

	q := ToImagePlane(ratio, cursor)
	near, err := unproject(inv, mgl64.Vec3{q.X, q.Y, 0})
	if err != nil {
		return r3.Vector{}, err
	}
	far, err := unproject(inv, mgl64.Vec3{q.X, q.Y, 1})
	if err != nil {
		return r3.Vector{}, err
	}

	normal := axis.ConstraintNormal()
	dir := far.Sub(near)
	den := normal.Dot(dir)
	if math.Abs(den) < wEpsilon {
		return r3.Vector{}, ErrRayParallelToPlane
	}
	t := normal.Dot(anchor.Sub(near)) / den
	return near.Add(dir.Mul(t)), nil
}

// MoveAlongAxis projects the edit pt back onto the axis line through
// anchor: the anchor moves by the axis component of pt-anchor and keeps its
// other two coordinates.
func MoveAlongAxis(anchor, pt r3.Vector, axis Axis) r3.Vector {
	u := axis.Unit()
	return anchor.Add(u.Mul(pt.Sub(anchor).Dot(u)))
}

// AxisVanishingPoint reprojects the solved direction of a world axis back
// to canvas space. Comparing it against the traced segments measures how
// consistent the full solve is, unlike the per-pair intersection which the
// segments match by construction. The second return is false when the axis
// is parallel to the image plane and its vanishing point is at infinity.
func (p CameraPose) AxisVanishingPoint(ratio float64, axis Axis) (r2.Point, bool) {
	col := p.ViewTransform.Col(int(axis))
	if math.Abs(col.Z()) < wEpsilon {
		return r2.Point{}, false
	}
	plane := r2.Point{
		X: p.PrincipalPoint.X + p.FocalLength*col.X()/-col.Z(),
		Y: p.PrincipalPoint.Y + p.FocalLength*col.Y()/-col.Z(),
	}
	return FromImagePlane(ratio, plane), true
}

func unproject(inv mgl64.Mat4, ndc mgl64.Vec3) (r3.Vector, error) {
	v := inv.Mul4x1(ndc.Vec4(1))
	w := v.W()
	if math.Abs(w) < wEpsilon {
		return r3.Vector{}, errors.Wrap(ErrSingularTransform, "unprojected point at infinity")
	}
	return r3.Vector{X: v.X() / w, Y: v.Y() / w, Z: v.Z() / w}, nil
}
