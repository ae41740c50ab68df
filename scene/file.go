package scene

import (
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// SaveSceneFile writes the scene file atomically: bytes go to a temporary
// file in the target directory which is renamed over path only after a
// successful write, so a failed export never leaves a partial file behind.
func SaveSceneFile(path string, desc *SceneDescription, img []byte, logger golog.Logger) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scene-*.tmp")
	if err != nil {
		return errors.Wrap(err, "cannot create temporary scene file")
	}
	defer func() {
		if err != nil {
			goutils.UncheckedErrorFunc(func() error {
				return os.Remove(tmp.Name())
			})
		}
	}()

	if err = Encode(tmp, desc, img); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary scene file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "cannot move scene file into place")
	}
	logger.Debugf("scene written to %s (%d image bytes)", path, len(img))
	return nil
}

// LoadSceneFile reads and decodes the scene file at path.
func LoadSceneFile(path string, logger golog.Logger) (*Scene, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open scene file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	decoded, err := ReadScene(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	logger.Debugf("scene loaded from %s (%d image bytes)", path, len(decoded.Image))
	return decoded, nil
}
