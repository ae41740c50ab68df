// Package points persists the editable calibration state: the six axis
// line segments traced over a photograph, the canvas point chosen as the
// world origin, optional axis flips and origin adjustments, and the 3D
// polyline drawn once a pose is solved.
package points

import (
	"encoding/json"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/denisbog/perspective-sub000/calib"
)

// Exactly three pairs of axis lines, ordered X, Y, Z.
const axisLineCount = 6

// State mirrors the points file JSON.
type State struct {
	ControlPoint Point    `json:"controlPoint"`
	Lines        []Line   `json:"lines"`
	Points       []Point3 `json:"points,omitempty"`
	Flip         *[3]bool `json:"flip,omitempty"`
	// CustomOriginTranslation moves the world origin after solving. The
	// JSON name keeps the misspelling already present in saved files.
	CustomOriginTranslation *Point3  `json:"customOriginTanslation,omitempty"`
	CustomScale             *float32 `json:"customScale,omitempty"`
}

// Point is a canvas 2D point, normalized to [0,1] on both axes.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a world-space 3D point.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Line is one traced segment.
type Line struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Default returns the state used before anyone has traced anything: the
// control point at the canvas center and three line pairs converging at
// three well separated vanishing points, so the very first solve succeeds.
func Default() *State {
	return &State{
		ControlPoint: Point{0.5, 0.5},
		Lines: []Line{
			{A: Point{0.2, 0.35}, B: Point{0.7, 0.45}},
			{A: Point{0.2, 0.75}, B: Point{0.7, 0.65}},
			{A: Point{0.8, 0.3}, B: Point{0.3, 0.4}},
			{A: Point{0.8, 0.7}, B: Point{0.3, 0.6}},
			{A: Point{0.35, 0.9}, B: Point{0.38, 0.42}},
			{A: Point{0.65, 0.9}, B: Point{0.62, 0.42}},
		},
	}
}

// Validate checks the shape constraints a solvable state must satisfy.
func (s *State) Validate() error {
	if len(s.Lines) != axisLineCount {
		return errors.Errorf("points state must hold exactly %d lines, got %d", axisLineCount, len(s.Lines))
	}
	return nil
}

// Origin returns the control point, the canvas position of the world
// origin.
func (s *State) Origin() r2.Point {
	return r2.Point{X: s.ControlPoint.X, Y: s.ControlPoint.Y}
}

// AxisLines groups the six traced lines into X, Y, Z segment pairs.
func (s *State) AxisLines() ([3][2]calib.Segment, error) {
	var out [3][2]calib.Segment
	if err := s.Validate(); err != nil {
		return out, err
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			l := s.Lines[2*i+j]
			out[i][j] = calib.Segment{
				A: r2.Point{X: l.A.X, Y: l.A.Y},
				B: r2.Point{X: l.B.X, Y: l.B.Y},
			}
		}
	}
	return out, nil
}

// FlipOrDefault returns the axis flips, treating an absent field as no
// flips.
func (s *State) FlipOrDefault() [3]bool {
	if s.Flip == nil {
		return [3]bool{}
	}
	return *s.Flip
}

// Polyline returns the drawn 3D points as vectors.
func (s *State) Polyline() []r3.Vector {
	out := make([]r3.Vector, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, r3.Vector{X: p.X, Y: p.Y, Z: p.Z})
	}
	return out
}

// SolvePose runs the full calibration for the state against an image of
// the given aspect ratio, then applies the custom scale followed by the
// custom origin translation. That order matters and is the one scene files
// in the wild were produced with.
func (s *State) SolvePose(ratio float64) (calib.CameraPose, error) {
	lines, err := s.AxisLines()
	if err != nil {
		return calib.CameraPose{}, err
	}
	pose, err := calib.ComputePoseFromLines(lines, s.Origin(), ratio, s.FlipOrDefault())
	if err != nil {
		return calib.CameraPose{}, err
	}
	if s.CustomScale != nil {
		pose = pose.ApplyScale(float64(*s.CustomScale))
	}
	if tr := s.CustomOriginTranslation; tr != nil {
		pose = pose.ApplyTranslation(r3.Vector{X: tr.X, Y: tr.Y, Z: tr.Z})
	}
	return pose, nil
}

// Load reads a points file. Callers able to work without one should fall
// back to Default on error rather than aborting; see the command line
// tool.
func Load(path string, logger golog.Logger) (*State, error) {
	//nolint:gosec
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read points file")
	}
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, errors.Wrapf(err, "cannot parse points file %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logger.Debugf("loaded %d lines and %d polyline points from %s", len(s.Lines), len(s.Points), path)
	return &s, nil
}

// Save writes the state as indented JSON.
func Save(path string, s *State) error {
	blob, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal points state")
	}
	blob = append(blob, '\n')
	return errors.Wrap(os.WriteFile(path, blob, 0o644), "cannot write points file")
}
