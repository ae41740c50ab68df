// Package scene reads and writes the binary scene interchange format: a
// fixed little-endian header, a JSON camera description, and the untouched
// bytes of the source photograph. Downstream 3D tools import these files to
// reproduce the solved camera.
package scene

import (
	"math"

	"github.com/pkg/errors"

	"github.com/denisbog/perspective-sub000/calib"
)

// Header layout constants. All integers in the file are little-endian.
const (
	// Magic identifies a scene file.
	Magic uint32 = 2037412710
	// Version is the only format version this package understands.
	Version uint32 = 1
	// ReferenceDistanceUnit is the unit tag importers expect.
	ReferenceDistanceUnit = "Meters"

	headerSize = 16

	// maxBlockSize caps the block lengths read from a header so corrupt
	// files cannot demand absurd allocations.
	maxBlockSize = 256 << 20
)

// Scene is a fully decoded scene file.
type Scene struct {
	Description SceneDescription
	Image       []byte
}

// SceneDescription is the JSON camera block embedded in a scene file.
type SceneDescription struct {
	CameraParameters        CameraParameters    `json:"cameraParameters"`
	CalibrationSettingsBase CalibrationSettings `json:"calibrationSettingsBase"`
}

// CameraParameters carries the solved camera: intrinsics plus the
// camera-to-world transform.
type CameraParameters struct {
	PrincipalPoint        PrincipalPoint  `json:"principalPoint"`
	CameraTransform       CameraTransform `json:"cameraTransform"`
	HorizontalFieldOfView float64         `json:"horizontalFieldOfView"`
	ImageWidth            int             `json:"imageWidth"`
	ImageHeight           int             `json:"imageHeight"`
}

// PrincipalPoint is the optical center in image-plane coordinates.
type PrincipalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CameraTransform is a row-major homogeneous matrix. Note this is the
// camera-to-world direction, the inverse of the view transform a solver
// works with.
type CameraTransform struct {
	Rows [4][4]float64 `json:"rows"`
}

// CalibrationSettings mirrors the calibration block importers read the
// distance unit from.
type CalibrationSettings struct {
	ReferenceDistanceUnit string `json:"referenceDistanceUnit"`
}

// NewSceneDescription derives the serializable camera description from a
// solved pose and the pixel size of the photograph it was solved on.
func NewSceneDescription(pose calib.CameraPose, width, height int) (*SceneDescription, error) {
	view := pose.ViewTransform
	if math.Abs(view.Det()) < 1e-12 {
		return nil, errors.Wrap(calib.ErrSingularTransform, "view transform cannot be inverted for export")
	}
	camera := view.Inv()
	var rows [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			rows[r][c] = camera.At(r, c)
		}
	}
	return &SceneDescription{
		CameraParameters: CameraParameters{
			PrincipalPoint:        PrincipalPoint{X: pose.PrincipalPoint.X, Y: pose.PrincipalPoint.Y},
			CameraTransform:       CameraTransform{Rows: rows},
			HorizontalFieldOfView: pose.FieldOfView,
			ImageWidth:            width,
			ImageHeight:           height,
		},
		CalibrationSettingsBase: CalibrationSettings{ReferenceDistanceUnit: ReferenceDistanceUnit},
	}, nil
}
