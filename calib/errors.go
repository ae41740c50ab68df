package calib

import "github.com/pkg/errors"

// Degenerate geometry sentinels. These are recoverable conditions: a caller
// holding a previously valid pose keeps it when a recompute fails with one
// of these, rather than treating the failure as fatal.
var (
	// ErrParallelSegments means a segment pair has no finite intersection.
	ErrParallelSegments = errors.New("segments are parallel in image space, no finite vanishing point")

	// ErrCollinearVanishingPoints means the vanishing point triangle has
	// collapsed and its orthocenter is undefined.
	ErrCollinearVanishingPoints = errors.New("vanishing points are collinear, orthocenter is undefined")

	// ErrInvalidFocalLength means the orthogonality constraint produced a
	// focal length too small to build a camera from.
	ErrInvalidFocalLength = errors.New("focal length is not positive")

	// ErrSingularTransform means a view or projection matrix cannot be
	// inverted.
	ErrSingularTransform = errors.New("transform is not invertible")

	// ErrRayParallelToPlane means an unprojected cursor ray never meets the
	// constraint plane.
	ErrRayParallelToPlane = errors.New("viewing ray is parallel to the constraint plane")

	// ErrBehindCamera means a world point has no projection because it sits
	// on or behind the camera plane.
	ErrBehindCamera = errors.New("point is behind the camera")
)

var degenerateErrs = []error{
	ErrParallelSegments,
	ErrCollinearVanishingPoints,
	ErrInvalidFocalLength,
	ErrSingularTransform,
	ErrRayParallelToPlane,
	ErrBehindCamera,
}

// IsDegenerate reports whether err is one of the degenerate geometry
// conditions above, possibly wrapped with context.
func IsDegenerate(err error) bool {
	for _, target := range degenerateErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
