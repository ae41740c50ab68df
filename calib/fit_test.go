package calib

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

// segmentsToward builds segments whose support lines all pass through vp.
func segmentsToward(vp r2.Point, anchors []r2.Point) []Segment {
	segs := make([]Segment, 0, len(anchors))
	for _, a := range anchors {
		segs = append(segs, Segment{A: a, B: a.Add(vp.Sub(a).Mul(0.5))})
	}
	return segs
}

func TestBestFitVanishingPoint(t *testing.T) {
	vp := r2.Point{X: 3, Y: 2}
	segs := segmentsToward(vp, []r2.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 6, Y: 6}, {X: -1, Y: 2.5}})

	got, err := BestFitVanishingPoint(segs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.X, test.ShouldAlmostEqual, vp.X, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, vp.Y, 1e-9)
}

func TestBestFitMatchesPairIntersection(t *testing.T) {
	segs := []Segment{
		{A: r2.Point{X: 0.1, Y: 0.2}, B: r2.Point{X: 0.5, Y: 0.35}},
		{A: r2.Point{X: 0.15, Y: 0.8}, B: r2.Point{X: 0.6, Y: 0.55}},
	}
	pair, err := VanishingPoint(segs[0].A, segs[0].B, segs[1].A, segs[1].B)
	test.That(t, err, test.ShouldBeNil)

	fit, err := BestFitVanishingPoint(segs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fit.X, test.ShouldAlmostEqual, pair.X, 1e-9)
	test.That(t, fit.Y, test.ShouldAlmostEqual, pair.Y, 1e-9)
}

func TestBestFitDegenerate(t *testing.T) {
	_, err := BestFitVanishingPoint([]Segment{{A: r2.Point{X: 0, Y: 0}, B: r2.Point{X: 1, Y: 0}}})
	test.That(t, err, test.ShouldNotBeNil)

	parallel := []Segment{
		{A: r2.Point{X: 0, Y: 0}, B: r2.Point{X: 1, Y: 0}},
		{A: r2.Point{X: 0, Y: 1}, B: r2.Point{X: 1, Y: 1}},
		{A: r2.Point{X: 0, Y: 2}, B: r2.Point{X: 1, Y: 2}},
	}
	_, err = BestFitVanishingPoint(parallel)
	test.That(t, errors.Is(err, ErrParallelSegments), test.ShouldBeTrue)
}

func TestFitQuality(t *testing.T) {
	vp := r2.Point{X: 3, Y: 2}
	segs := segmentsToward(vp, []r2.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 6, Y: 6}})

	q, err := FitQuality(vp, segs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Mean, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, q.Median, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, q.Max, test.ShouldAlmostEqual, 0, 1e-9)

	// Moving the candidate off the true point shows up in the residuals.
	q, err = FitQuality(r2.Point{X: 3.5, Y: 1.4}, segs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Max, test.ShouldBeGreaterThan, 0.01)
	test.That(t, q.Mean, test.ShouldBeLessThanOrEqualTo, q.Max)
	test.That(t, q.Median, test.ShouldBeLessThanOrEqualTo, q.Max)

	_, err = FitQuality(vp, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
