package calib

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestToImagePlane(t *testing.T) {
	center := ToImagePlane(1, r2.Point{X: 0.5, Y: 0.5})
	test.That(t, center.X, test.ShouldAlmostEqual, 0)
	test.That(t, center.Y, test.ShouldAlmostEqual, 0)

	// y flips: the top edge of the canvas is positive in plane space.
	top := ToImagePlane(2, r2.Point{X: 0.5, Y: 0})
	test.That(t, top.X, test.ShouldAlmostEqual, 0)
	test.That(t, top.Y, test.ShouldAlmostEqual, 0.5)

	corner := ToImagePlane(2, r2.Point{X: 1, Y: 1})
	test.That(t, corner.X, test.ShouldAlmostEqual, 1)
	test.That(t, corner.Y, test.ShouldAlmostEqual, -0.5)
}

func TestImagePlaneRoundTrip(t *testing.T) {
	ratios := []float64{0.5, 1, 4.0 / 3.0, 16.0 / 9.0}
	pts := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.25, Y: 0.7}, {X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.1}}
	for _, ratio := range ratios {
		for _, p := range pts {
			back := FromImagePlane(ratio, ToImagePlane(ratio, p))
			test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-12)
			test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-12)
		}
	}
}

func TestToCanvas(t *testing.T) {
	// Mapping plane coordinates onto the image they came from recovers the
	// pixel position.
	sizes := []image.Point{{800, 600}, {1920, 1080}, {100, 200}}
	pts := []r2.Point{{X: 0.25, Y: 0.75}, {X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.5, Y: 0.5}}
	for _, size := range sizes {
		ratio := AspectRatio(size)
		for _, p := range pts {
			px := ToCanvas(size, ToImagePlane(ratio, p))
			test.That(t, px.X, test.ShouldAlmostEqual, p.X*float64(size.X), 1e-9)
			test.That(t, px.Y, test.ShouldAlmostEqual, p.Y*float64(size.Y), 1e-9)
		}
	}
}

func TestAspectRatio(t *testing.T) {
	test.That(t, AspectRatio(image.Point{1920, 1080}), test.ShouldAlmostEqual, 16.0/9.0)
	test.That(t, AspectRatio(image.Point{600, 600}), test.ShouldAlmostEqual, 1)
}
