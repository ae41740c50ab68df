package calib

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// BestFitVanishingPoint estimates the point minimizing the sum of squared
// distances to the support lines of all the segments, by solving the 2x2
// normal equations. With exactly two segments it agrees with
// VanishingPoint; with more it absorbs tracing noise instead of trusting a
// single pair.
func BestFitVanishingPoint(segs []Segment) (r2.Point, error) {
	if len(segs) < 2 {
		return r2.Point{}, errors.Errorf("need at least 2 segments, got %d", len(segs))
	}
	a := mat.NewDense(2, 2, nil)
	b := mat.NewVecDense(2, nil)
	for _, s := range segs {
		d := s.Direction()
		length := d.Norm()
		if length == 0 {
			return r2.Point{}, errors.Wrap(ErrParallelSegments, "zero-length segment")
		}
		n := r2.Point{X: -d.Y / length, Y: d.X / length}
		rhs := n.Dot(s.A)
		a.Set(0, 0, a.At(0, 0)+n.X*n.X)
		a.Set(0, 1, a.At(0, 1)+n.X*n.Y)
		a.Set(1, 0, a.At(1, 0)+n.X*n.Y)
		a.Set(1, 1, a.At(1, 1)+n.Y*n.Y)
		b.SetVec(0, b.AtVec(0)+n.X*rhs)
		b.SetVec(1, b.AtVec(1)+n.Y*rhs)
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return r2.Point{}, errors.Wrap(ErrParallelSegments, "segments do not constrain a point")
	}
	return r2.Point{X: x.AtVec(0), Y: x.AtVec(1)}, nil
}

// Quality summarizes angular residuals between traced segments and a
// fitted vanishing point, in radians.
type Quality struct {
	Mean   float64
	Median float64
	Max    float64
}

// FitQuality measures how well each segment points at vp: the angle between
// the segment direction and the direction from the segment midpoint to vp.
// Segments are unoriented, so the angle folds into [0, pi/2]. An exact
// configuration yields all zeros.
func FitQuality(vp r2.Point, segs []Segment) (Quality, error) {
	if len(segs) == 0 {
		return Quality{}, errors.New("no segments to score")
	}
	angles := make([]float64, 0, len(segs))
	for _, s := range segs {
		d := s.Direction()
		to := vp.Sub(s.Midpoint())
		denom := d.Norm() * to.Norm()
		if denom == 0 {
			return Quality{}, errors.Wrap(ErrParallelSegments, "zero-length segment or vanishing point on segment")
		}
		sin := math.Abs(d.Cross(to)) / denom
		angles = append(angles, math.Asin(math.Min(1, sin)))
	}

	var q Quality
	var err error
	if q.Mean, err = stats.Mean(angles); err != nil {
		return Quality{}, err
	}
	if q.Median, err = stats.Median(angles); err != nil {
		return Quality{}, err
	}
	if q.Max, err = stats.Max(angles); err != nil {
		return Quality{}, err
	}
	return q, nil
}
