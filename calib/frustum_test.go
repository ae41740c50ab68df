package calib

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

// axisAlignedFrustum is the frustum of a camera at the origin looking down
// -z with focal length 2: near z=-0.01, far z=-10, sides |x|,|y| <= -z/2.
func axisAlignedFrustum(t *testing.T) Frustum {
	t.Helper()
	pose, err := NewCameraPose(mgl64.Ident4(), r2.Point{}, 2)
	test.That(t, err, test.ShouldBeNil)
	f, err := FrustumFromMatrix(pose.ViewProjection())
	test.That(t, err, test.ShouldBeNil)
	return f
}

func TestFrustumPlanes(t *testing.T) {
	f := axisAlignedFrustum(t)

	for _, plane := range f {
		test.That(t, plane.Normal.Norm(), test.ShouldAlmostEqual, 1, 1e-12)
	}

	// A point in the middle of the frustum is inside all six planes; one
	// behind the camera is outside at least the near plane.
	inside := r3.Vector{X: 0, Y: 0, Z: -1}
	behind := r3.Vector{X: 0, Y: 0, Z: 1}
	for _, plane := range f {
		test.That(t, plane.SignedDistance(inside), test.ShouldBeGreaterThan, 0)
	}
	near := f[4]
	test.That(t, near.SignedDistance(behind), test.ShouldBeLessThan, 0)
	test.That(t, near.SignedDistance(r3.Vector{X: 0, Y: 0, Z: -0.011}), test.ShouldBeGreaterThan, 0)
	test.That(t, near.SignedDistance(r3.Vector{X: 0, Y: 0, Z: -0.009}), test.ShouldBeLessThan, 0)
	test.That(t, near.SignedDistance(r3.Vector{X: 0, Y: 0, Z: -0.01}), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestClipSegment(t *testing.T) {
	f := axisAlignedFrustum(t)

	t.Run("fully inside", func(t *testing.T) {
		a := r3.Vector{X: 0, Y: 0, Z: -0.5}
		b := r3.Vector{X: 0.1, Y: 0, Z: -1}
		ca, cb, ok := f.ClipSegment(a, b)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ca, test.ShouldResemble, a)
		test.That(t, cb, test.ShouldResemble, b)
	})

	t.Run("fully outside", func(t *testing.T) {
		_, _, ok := f.ClipSegment(r3.Vector{X: 0, Y: 0, Z: 0.5}, r3.Vector{X: 0, Y: 0, Z: 1})
		test.That(t, ok, test.ShouldBeFalse)

		_, _, ok = f.ClipSegment(r3.Vector{X: 0, Y: 0, Z: -20}, r3.Vector{X: 0, Y: 0, Z: -50})
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("crosses near plane", func(t *testing.T) {
		ca, cb, ok := f.ClipSegment(r3.Vector{X: 0, Y: 0, Z: 0.3}, r3.Vector{X: 0, Y: 0, Z: -5})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ca.Z, test.ShouldAlmostEqual, -0.01, 1e-9)
		test.That(t, cb, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: -5})
	})

	t.Run("crosses far plane", func(t *testing.T) {
		_, cb, ok := f.ClipSegment(r3.Vector{X: 0, Y: 0, Z: -5}, r3.Vector{X: 0, Y: 0, Z: -50})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, cb.Z, test.ShouldAlmostEqual, -10, 1e-9)
	})

	t.Run("crosses both sides", func(t *testing.T) {
		ca, cb, ok := f.ClipSegment(r3.Vector{X: -5, Y: 0, Z: -2}, r3.Vector{X: 5, Y: 0, Z: -2})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ca.X, test.ShouldAlmostEqual, -1, 1e-9)
		test.That(t, cb.X, test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, ca.Z, test.ShouldAlmostEqual, -2, 1e-9)
		test.That(t, cb.Z, test.ShouldAlmostEqual, -2, 1e-9)
	})
}

func TestFrustumFromSolvedPose(t *testing.T) {
	// The world origin of a freshly composed pose sits mid-frustum, so
	// short segments around it survive clipping untouched.
	fx := cornerCamera(t)
	f, err := FrustumFromMatrix(fx.pose.ViewProjection())
	test.That(t, err, test.ShouldBeNil)

	a := r3.Vector{}
	b := r3.Vector{X: -0.5, Y: 0, Z: 0}
	ca, cb, ok := f.ClipSegment(a, b)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ca, test.ShouldResemble, a)
	test.That(t, cb, test.ShouldResemble, b)
}

func TestFrustumFromMatrixDegenerate(t *testing.T) {
	_, err := FrustumFromMatrix(mgl64.Mat4{})
	test.That(t, errors.Is(err, ErrSingularTransform), test.ShouldBeTrue)
}
