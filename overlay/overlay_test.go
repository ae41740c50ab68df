package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/denisbog/perspective-sub000/calib"
	"github.com/denisbog/perspective-sub000/points"
)

func plainImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{40, 40, 40, 255}), image.Point{}, draw.Src)
	return img
}

func countDiff(a, b image.Image) int {
	n := 0
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ar, ag, ab, aa := a.At(x, y).RGBA()
			br, bg, bb, ba := b.At(x, y).RGBA()
			if ar != br || ag != bg || ab != bb || aa != ba {
				n++
			}
		}
	}
	return n
}

func TestRender(t *testing.T) {
	logger := golog.NewTestLogger(t)
	src := plainImage(80, 60)
	st := points.Default()
	st.Points = []points.Point3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}

	pose, err := st.SolvePose(calib.AspectRatio(image.Point{80, 60}))
	test.That(t, err, test.ShouldBeNil)

	out, err := Render(src, pose, st, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotBeNil)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 80)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 60)

	// The overlay visibly drew something.
	test.That(t, countDiff(out, plainImage(80, 60)), test.ShouldBeGreaterThan, 50)

	// The source image stays untouched.
	test.That(t, countDiff(src, plainImage(80, 60)), test.ShouldEqual, 0)
}

func TestRenderRejectsEmptyImage(t *testing.T) {
	logger := golog.NewTestLogger(t)
	st := points.Default()
	pose, err := st.SolvePose(1)
	test.That(t, err, test.ShouldBeNil)

	_, err = Render(image.NewRGBA(image.Rect(0, 0, 0, 0)), pose, st, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
