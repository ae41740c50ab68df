// Package main is the perspective command line tool: it solves camera
// poses from traced points files, exports scene files for 3D tools,
// renders overlay previews, and inspects existing scenes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/fogleman/gg"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	goutils "go.viam.com/utils"

	"github.com/denisbog/perspective-sub000/calib"
	"github.com/denisbog/perspective-sub000/overlay"
	"github.com/denisbog/perspective-sub000/points"
	"github.com/denisbog/perspective-sub000/scene"
)

const (
	// Flags.
	flagPoints   = "points"
	flagImage    = "image"
	flagOut      = "out"
	flagImageOut = "image-out"
	flagDebug    = "debug"

	// Editors save in bursts; wait this long after the first event before
	// re-reading the points file.
	debounceDelay = 150 * time.Millisecond
)

var logger golog.Logger = zap.NewNop().Sugar()

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, _ golog.Logger) error {
	return newApp().RunContext(ctx, args)
}

func newApp() *cli.App {
	pointsFlag := &cli.StringFlag{
		Name:    flagPoints,
		Aliases: []string{"p"},
		Value:   "points.json",
		Usage:   "points file with the traced axis lines",
	}
	imageFlag := &cli.StringFlag{
		Name:     flagImage,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "photograph to calibrate against",
	}

	return &cli.App{
		Name:  "perspective",
		Usage: "single-view camera calibration from vanishing points",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("perspective")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "solve",
				Usage: "solve the camera pose and export a scene file",
				Flags: []cli.Flag{
					pointsFlag,
					imageFlag,
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Value:   "out.scene",
						Usage:   "scene file to write",
					},
				},
				Action: solveAction,
			},
			{
				Name:  "render",
				Usage: "render the solved overlay on top of the photograph",
				Flags: []cli.Flag{
					pointsFlag,
					imageFlag,
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Value:   "overlay.png",
						Usage:   "PNG file to write",
					},
				},
				Action: renderAction,
			},
			{
				Name:      "inspect",
				Usage:     "print the camera block of a scene file",
				ArgsUsage: "<scene file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagImageOut,
						Usage: "also extract the embedded image bytes to this file",
					},
				},
				Action: inspectAction,
			},
			{
				Name:   "check",
				Usage:  "report solve quality for a points file",
				Flags:  []cli.Flag{pointsFlag, imageFlag},
				Action: checkAction,
			},
			{
				Name:  "watch",
				Usage: "re-render the overlay whenever the points file changes",
				Flags: []cli.Flag{
					pointsFlag,
					imageFlag,
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Value:   "overlay.png",
						Usage:   "PNG file to keep updated",
					},
				},
				Action: watchAction,
			},
		},
	}
}

// loadStateOrDefault implements the fallback policy: a missing or broken
// points file downgrades to the shipped defaults rather than aborting.
func loadStateOrDefault(c *cli.Context) *points.State {
	path := c.String(flagPoints)
	st, err := points.Load(path, logger)
	if err != nil {
		fmt.Fprintf(c.App.Writer, "using default calibration state: %v\n", err)
		return points.Default()
	}
	return st
}

func solveAction(c *cli.Context) error {
	raw, err := os.ReadFile(c.String(flagImage))
	if err != nil {
		return errors.Wrap(err, "cannot read image")
	}
	size, err := scene.ImageDimensions(raw)
	if err != nil {
		return err
	}

	st := loadStateOrDefault(c)
	pose, err := st.SolvePose(calib.AspectRatio(size))
	if err != nil {
		return errors.Wrap(err, "calibration failed")
	}
	printPose(c, pose)

	desc, err := scene.NewSceneDescription(pose, size.X, size.Y)
	if err != nil {
		return err
	}
	out := c.String(flagOut)
	if err := scene.SaveSceneFile(out, desc, raw, logger); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "scene written to %s (%d image bytes)\n", out, len(raw))
	return nil
}

func renderAction(c *cli.Context) error {
	return renderOnce(c)
}

// renderOnce solves the current points file and writes the overlay PNG. It
// is shared by render and watch.
func renderOnce(c *cli.Context) error {
	img, err := imaging.Open(c.String(flagImage), imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrap(err, "cannot open image")
	}
	size := image.Point{X: img.Bounds().Dx(), Y: img.Bounds().Dy()}

	st := loadStateOrDefault(c)
	pose, err := st.SolvePose(calib.AspectRatio(size))
	if err != nil {
		return errors.Wrap(err, "calibration failed")
	}

	composed, err := overlay.Render(img, pose, st, logger)
	if err != nil {
		return err
	}
	return errors.Wrap(gg.SavePNG(c.String(flagOut), composed), "cannot write overlay")
}

func inspectAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("missing scene file argument")
	}
	decoded, err := scene.LoadSceneFile(path, logger)
	if err != nil {
		return err
	}

	blob, err := json.MarshalIndent(decoded.Description, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal camera block")
	}
	fmt.Fprintln(c.App.Writer, string(blob))
	fmt.Fprintf(c.App.Writer, "embedded image: %d bytes\n", len(decoded.Image))

	if out := c.String(flagImageOut); out != "" {
		if err := os.WriteFile(out, decoded.Image, 0o644); err != nil {
			return errors.Wrap(err, "cannot extract image bytes")
		}
		fmt.Fprintf(c.App.Writer, "image bytes written to %s\n", out)
	}
	return nil
}

func checkAction(c *cli.Context) error {
	raw, err := os.ReadFile(c.String(flagImage))
	if err != nil {
		return errors.Wrap(err, "cannot read image")
	}
	size, err := scene.ImageDimensions(raw)
	if err != nil {
		return err
	}
	ratio := calib.AspectRatio(size)

	st := loadStateOrDefault(c)
	pose, err := st.SolvePose(ratio)
	if err != nil {
		return errors.Wrap(err, "calibration failed")
	}
	printPose(c, pose)

	lines, err := st.AxisLines()
	if err != nil {
		return err
	}
	for _, axis := range []calib.Axis{calib.AxisX, calib.AxisY, calib.AxisZ} {
		pair := lines[axis]
		fit, err := calib.BestFitVanishingPoint(pair[:])
		if err != nil {
			return errors.Wrapf(err, "axis %s", axis)
		}
		vp, ok := pose.AxisVanishingPoint(ratio, axis)
		if !ok {
			fmt.Fprintf(c.App.Writer, "axis %s: vanishing point at infinity\n", axis)
			continue
		}
		quality, err := calib.FitQuality(vp, pair[:])
		if err != nil {
			return errors.Wrapf(err, "axis %s", axis)
		}
		fmt.Fprintf(c.App.Writer,
			"axis %s: traced vp (%.4f, %.4f), solved vp (%.4f, %.4f), residual mean %.4f rad max %.4f rad\n",
			axis, fit.X, fit.Y, vp.X, vp.Y, quality.Mean, quality.Max)
	}

	// How far the solved rotation is from orthogonal, per column pair.
	view := pose.ViewTransform
	for _, pair := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		a, b := view.Col(pair[0]).Vec3(), view.Col(pair[1]).Vec3()
		fmt.Fprintf(c.App.Writer, "axes %s/%s orthogonality residual: %.6f\n",
			calib.Axis(pair[0]), calib.Axis(pair[1]), math.Abs(a.Dot(b)))
	}
	return nil
}

func watchAction(c *cli.Context) error {
	if err := renderOnce(c); err != nil {
		fmt.Fprintf(c.App.Writer, "initial render failed: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot start file watcher")
	}
	defer goutils.UncheckedErrorFunc(watcher.Close)

	// Watch the directory, not the file: editors replace the file on save,
	// which silently drops a watch set on the file itself.
	pointsPath := c.String(flagPoints)
	if err := watcher.Add(filepath.Dir(pointsPath)); err != nil {
		return errors.Wrap(err, "cannot watch points directory")
	}
	fmt.Fprintf(c.App.Writer, "watching %s\n", pointsPath)

	for {
		select {
		case <-c.Context.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(pointsPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !goutils.SelectContextOrWait(c.Context, debounceDelay) {
				return nil
			}
			drainEvents(watcher)
			if err := renderOnce(c); err != nil {
				fmt.Fprintf(c.App.Writer, "render failed: %v\n", err)
				continue
			}
			fmt.Fprintf(c.App.Writer, "overlay updated: %s\n", c.String(flagOut))
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorw("watcher error", "error", watchErr)
		}
	}
}

func drainEvents(w *fsnotify.Watcher) {
	for {
		select {
		case <-w.Events:
		default:
			return
		}
	}
}

func printPose(c *cli.Context, pose calib.CameraPose) {
	fmt.Fprintf(c.App.Writer,
		"solved: focal %.4f, horizontal fov %.1f deg, principal point (%.4f, %.4f)\n",
		pose.FocalLength, pose.FieldOfView*180/math.Pi,
		pose.PrincipalPoint.X, pose.PrincipalPoint.Y)
}
