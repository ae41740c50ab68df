// Package calib recovers a camera pose from vanishing points in a single
// photograph and maps points between 2D image space and 3D world space.
//
// Three coordinate frames appear throughout. Canvas space is normalized to
// [0,1] on both axes with y growing downward, matching how UI toolkits
// address an image. Image-plane space is centered on the optical axis with
// x spanning [-1,1], y growing upward and scaled by the image aspect ratio
// so that geometry stays square. Pixel space is canvas space scaled to a
// concrete image size, used only for drawing.
package calib

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
)

// AspectRatio returns width over height for an image size.
func AspectRatio(size image.Point) float64 {
	return float64(size.X) / float64(size.Y)
}

// ToImagePlane maps a canvas point to the centered, aspect-corrected image
// plane: scale by (2, -2/ratio), translate by (-1, 1/ratio). The y axis
// flips so that up is positive.
func ToImagePlane(ratio float64, p r2.Point) r2.Point {
	m := mgl64.Translate2D(-1, 1/ratio).Mul3(mgl64.Scale2D(2, -2/ratio))
	return applyAffine(m, p)
}

// FromImagePlane maps an image-plane point back to canvas space. It is the
// exact inverse of ToImagePlane for the same ratio.
func FromImagePlane(ratio float64, p r2.Point) r2.Point {
	m := mgl64.Scale2D(0.5, -ratio/2).Mul3(mgl64.Translate2D(1, -1/ratio))
	return applyAffine(m, p)
}

// ToCanvas maps an image-plane point to pixel coordinates for display on an
// image of the given size. Both axes scale by half the width; the aspect
// correction already happened on the way into plane space, so this is a
// drawing transform only and must not feed back into any solve.
func ToCanvas(size image.Point, p r2.Point) r2.Point {
	w := float64(size.X)
	h := float64(size.Y)
	m := mgl64.Translate2D(w/2, h/2).Mul3(mgl64.Scale2D(w/2, -w/2))
	return applyAffine(m, p)
}

func applyAffine(m mgl64.Mat3, p r2.Point) r2.Point {
	v := m.Mul3x1(mgl64.Vec3{p.X, p.Y, 1})
	return r2.Point{X: v.X(), Y: v.Y()}
}
