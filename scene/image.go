package scene

import (
	"bytes"
	"image"

	// Registered formats for DecodeConfig; the image bytes themselves are
	// never re-encoded.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDimensions reads the pixel size out of encoded image bytes without
// decoding pixels. PNG, JPEG, GIF, BMP, TIFF and WebP are recognized.
func ImageDimensions(raw []byte) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return image.Point{}, errors.Wrap(err, "cannot determine image dimensions")
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}
