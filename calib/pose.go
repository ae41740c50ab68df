package calib

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Solver policy constants. The values are arbitrary but load-bearing: a
// scene exported with one set of values only reproduces under the same set.
const (
	// DefaultWorldScale is the distance from the camera to the world origin
	// assigned when a pose is first composed.
	DefaultWorldScale = 10.0

	// DefaultNearPlane and DefaultFarPlane bound the projection frustum.
	DefaultNearPlane = 0.01
	DefaultFarPlane  = 10.0

	// DegenerateThreshold separates usable geometry from configurations
	// rejected as degenerate: near-parallel segment pairs, near-collinear
	// vanishing points and vanishing focal lengths.
	DegenerateThreshold = 0.01
)

// CameraPose is a solved single-view calibration: the world-to-camera view
// transform plus the intrinsics recovered alongside it. Poses are immutable
// values; derive variants through ApplyScale and ApplyTranslation or by
// composing a new pose.
type CameraPose struct {
	// ViewTransform maps world coordinates to camera coordinates.
	ViewTransform mgl64.Mat4
	// PrincipalPoint is the orthocenter of the vanishing point triangle, in
	// image-plane coordinates.
	PrincipalPoint r2.Point
	// FocalLength is expressed in image-plane units, half canvas widths.
	FocalLength float64
	// FieldOfView is the horizontal field of view in radians. It is derived
	// from FocalLength at construction and nowhere else.
	FieldOfView float64
}

// NewCameraPose builds a pose from a view transform and intrinsics,
// deriving the field of view as 2*atan(1/focal).
func NewCameraPose(view mgl64.Mat4, principalPoint r2.Point, focal float64) (CameraPose, error) {
	if math.IsNaN(focal) || math.IsInf(focal, 0) || focal <= 0 {
		return CameraPose{}, errors.Wrapf(ErrInvalidFocalLength, "got %v", focal)
	}
	return CameraPose{
		ViewTransform:  view,
		PrincipalPoint: principalPoint,
		FocalLength:    focal,
		FieldOfView:    2 * math.Atan(1/focal),
	}, nil
}

// ComputePose recovers the full camera pose from three canvas-space
// vanishing points of mutually orthogonal world directions, ordered X, Y,
// Z, plus the canvas point the user picked as the world origin. flip
// mirrors the corresponding world axis, for when a vanishing point was
// traced against the axis direction. ratio is the image aspect ratio used
// for plane conversion.
//
// The principal point is the orthocenter of the vanishing point triangle;
// the focal length follows from the orthogonality of the first two
// directions; the normalized camera-space rays toward the three vanishing
// points become the rotation columns; and the origin ray, pushed out to
// DefaultWorldScale, becomes the translation.
func ComputePose(vps [3]r2.Point, origin r2.Point, ratio float64, flip [3]bool) (CameraPose, error) {
	var plane [3]r2.Point
	for i, vp := range vps {
		plane[i] = ToImagePlane(ratio, vp)
	}

	principal, err := Orthocenter(plane[0], plane[1], plane[2])
	if err != nil {
		return CameraPose{}, err
	}
	focal := math.Sqrt(math.Abs(plane[0].Sub(principal).Dot(plane[1].Sub(principal))))
	if focal < DegenerateThreshold {
		return CameraPose{}, errors.Wrap(ErrInvalidFocalLength, "orthogonality constraint collapsed")
	}

	view := mgl64.Ident4()
	for i, vp := range plane {
		view.SetCol(i, axisRay(vp, principal, focal).Vec4(0))
	}
	view = view.Mul4(flipMatrix(flip))
	translation := axisRay(ToImagePlane(ratio, origin), principal, focal).Mul(DefaultWorldScale)
	view.SetCol(3, translation.Vec4(1))

	return NewCameraPose(view, principal, focal)
}

// ComputePoseFromLines solves the vanishing points first and then composes
// the pose. lines holds one segment pair per axis, ordered X, Y, Z.
func ComputePoseFromLines(lines [3][2]Segment, origin r2.Point, ratio float64, flip [3]bool) (CameraPose, error) {
	var vps [3]r2.Point
	for i, pair := range lines {
		vp, err := VanishingPoint(pair[0].A, pair[0].B, pair[1].A, pair[1].B)
		if err != nil {
			return CameraPose{}, errors.Wrapf(err, "axis %d", i)
		}
		vps[i] = vp
	}
	return ComputePose(vps, origin, ratio, flip)
}

// ApplyScale returns a copy of the pose with a uniform scale composed into
// the view transform. The scale multiplies on the right, acting in world
// space before the rotation.
func (p CameraPose) ApplyScale(s float64) CameraPose {
	p.ViewTransform = p.ViewTransform.Mul4(mgl64.Scale3D(s, s, s))
	return p
}

// ApplyTranslation returns a copy of the pose with the world origin moved
// to v. Like ApplyScale this multiplies on the right, after any scale;
// swapping the two changes the result.
func (p CameraPose) ApplyTranslation(v r3.Vector) CameraPose {
	p.ViewTransform = p.ViewTransform.Mul4(mgl64.Translate3D(-v.X, -v.Y, -v.Z))
	return p
}

// axisRay is the normalized camera-space direction from the eye through an
// image-plane point, for a camera with the given principal point and focal
// length. The camera looks down -z.
func axisRay(p, principal r2.Point, focal float64) mgl64.Vec3 {
	d := p.Sub(principal)
	return mgl64.Vec3{d.X, d.Y, -focal}.Normalize()
}

func flipMatrix(flip [3]bool) mgl64.Mat4 {
	signs := mgl64.Vec4{1, 1, 1, 1}
	for i, f := range flip {
		if f {
			signs[i] = -1
		}
	}
	return mgl64.Diag4(signs)
}
