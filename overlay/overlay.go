// Package overlay renders a solved calibration back onto the source
// photograph: the traced lines, the world axes and ground grid, and any
// polyline drawn in world space, all reprojected through the recovered
// camera. A misaligned overlay is the quickest way to spot a bad solve.
package overlay

import (
	"image"
	"image/color"

	"github.com/edaniels/golog"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/denisbog/perspective-sub000/calib"
	"github.com/denisbog/perspective-sub000/points"
)

// World-space extents of the drawn helpers.
const (
	axisLength = 2.0
	gridExtent = 5
	gridStep   = 1.0

	axisWidth  = 3.0
	gridWidth  = 1.0
	traceWidth = 2.0
	dotRadius  = 5.0
)

var (
	axisColors = [3]color.NRGBA{
		{210, 70, 60, 255},
		{70, 180, 80, 255},
		{70, 110, 220, 255},
	}
	gridColor    = color.NRGBA{255, 255, 255, 80}
	originColor  = color.NRGBA{255, 210, 40, 255}
	strokeShadow = color.NRGBA{0, 0, 0, 120}
	lineColor    = color.NRGBA{240, 240, 240, 220}
)

// Render draws the overlay for pose on top of img and returns the composed
// picture. The state supplies the traced lines, the control point and the
// polyline; img supplies the canvas size. img itself is not modified.
func Render(img image.Image, pose calib.CameraPose, st *points.State, logger golog.Logger) (image.Image, error) {
	bounds := img.Bounds()
	size := image.Point{X: bounds.Dx(), Y: bounds.Dy()}
	if size.X == 0 || size.Y == 0 {
		return nil, errors.New("source image has no pixels")
	}

	frustum, err := calib.FrustumFromMatrix(pose.ViewProjection())
	if err != nil {
		return nil, err
	}

	r := &renderer{
		dc:      gg.NewContextForImage(img),
		pose:    pose,
		frustum: frustum,
		ratio:   calib.AspectRatio(size),
		size:    size,
		logger:  logger,
	}
	r.drawGrid()
	r.drawAxes()
	r.drawTracedLines(st)
	r.drawPolyline(st)
	r.drawOrigin(st)
	return r.dc.Image(), nil
}

type renderer struct {
	dc      *gg.Context
	pose    calib.CameraPose
	frustum calib.Frustum
	ratio   float64
	size    image.Point
	logger  golog.Logger
}

// drawWorldSegment clips a world segment against the view frustum and
// strokes whatever survives.
func (r *renderer) drawWorldSegment(a, b r3.Vector, c color.Color, width float64) {
	ca, cb, ok := r.frustum.ClipSegment(a, b)
	if !ok {
		return
	}
	pa, err := r.pose.ProjectPoint(ca)
	if err != nil {
		r.logger.Debugw("skipping unprojectable segment", "error", err)
		return
	}
	pb, err := r.pose.ProjectPoint(cb)
	if err != nil {
		r.logger.Debugw("skipping unprojectable segment", "error", err)
		return
	}
	q0 := calib.ToCanvas(r.size, pa)
	q1 := calib.ToCanvas(r.size, pb)
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.DrawLine(q0.X, q0.Y, q1.X, q1.Y)
	r.dc.Stroke()
}

// drawGrid draws the XY ground plane as a unit grid around the origin.
func (r *renderer) drawGrid() {
	span := float64(gridExtent) * gridStep
	for i := -gridExtent; i <= gridExtent; i++ {
		v := float64(i) * gridStep
		r.drawWorldSegment(r3.Vector{X: v, Y: -span}, r3.Vector{X: v, Y: span}, gridColor, gridWidth)
		r.drawWorldSegment(r3.Vector{Y: v, X: -span}, r3.Vector{Y: v, X: span}, gridColor, gridWidth)
	}
}

// drawAxes draws the world axes from the origin: x, y, z in red, green,
// blue.
func (r *renderer) drawAxes() {
	for _, axis := range []calib.Axis{calib.AxisX, calib.AxisY, calib.AxisZ} {
		end := axis.Unit().Mul(axisLength)
		r.drawWorldSegment(r3.Vector{}, end, axisColors[axis], axisWidth)
	}
}

// drawTracedLines re-draws the six traced segments, colored by the axis
// pair they belong to. These are 2D canvas geometry, not world geometry, so
// they map straight to pixels.
func (r *renderer) drawTracedLines(st *points.State) {
	for i, l := range st.Lines {
		c := lineColor
		if i/2 < len(axisColors) {
			c = axisColors[i/2]
			c.A = 180
		}
		a := r.canvasToPixels(r2.Point{X: l.A.X, Y: l.A.Y})
		b := r.canvasToPixels(r2.Point{X: l.B.X, Y: l.B.Y})
		r.dc.SetColor(c)
		r.dc.SetLineWidth(traceWidth)
		r.dc.DrawLine(a.X, a.Y, b.X, b.Y)
		r.dc.Stroke()

		for _, end := range []r2.Point{a, b} {
			r.dc.SetColor(strokeShadow)
			r.dc.DrawCircle(end.X, end.Y, dotRadius-1)
			r.dc.Fill()
		}
	}
}

// drawPolyline projects the user's 3D points and connects them in order.
func (r *renderer) drawPolyline(st *points.State) {
	pts := st.Polyline()
	for i := 1; i < len(pts); i++ {
		r.drawWorldSegment(pts[i-1], pts[i], lineColor, traceWidth)
	}
	for _, pt := range pts {
		plane, err := r.pose.ProjectPoint(pt)
		if err != nil {
			continue
		}
		px := calib.ToCanvas(r.size, plane)
		r.dc.SetColor(lineColor)
		r.dc.DrawCircle(px.X, px.Y, dotRadius-2)
		r.dc.Fill()
	}
}

// drawOrigin marks the control point the pose was anchored to.
func (r *renderer) drawOrigin(st *points.State) {
	px := r.canvasToPixels(st.Origin())
	r.dc.SetColor(strokeShadow)
	r.dc.DrawCircle(px.X, px.Y, dotRadius+2)
	r.dc.Fill()
	r.dc.SetColor(originColor)
	r.dc.DrawCircle(px.X, px.Y, dotRadius)
	r.dc.Fill()
}

func (r *renderer) canvasToPixels(p r2.Point) r2.Point {
	return r2.Point{X: p.X * float64(r.size.X), Y: p.Y * float64(r.size.Y)}
}
