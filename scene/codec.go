package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Decode failure sentinels.
var (
	ErrBadMagic           = errors.New("not a scene file, bad magic")
	ErrUnsupportedVersion = errors.New("unsupported scene file version")
	ErrBlockTooLarge      = errors.New("scene block length exceeds limit")
	ErrTruncatedFile      = errors.New("scene file ends before the image block")
)

// Encode writes the scene file to out: header, JSON camera block, then the
// raw image bytes exactly as supplied. Re-encoding the image is never
// acceptable; the file must carry the photograph byte for byte.
func Encode(out io.Writer, desc *SceneDescription, img []byte) error {
	blob, err := json.Marshal(desc)
	if err != nil {
		return errors.Wrap(err, "cannot marshal camera description")
	}
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(blob)))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(img)))
	if _, err := out.Write(header); err != nil {
		return errors.Wrap(err, "write scene header")
	}
	if _, err := out.Write(blob); err != nil {
		return errors.Wrap(err, "write camera block")
	}
	if _, err := out.Write(img); err != nil {
		return errors.Wrap(err, "write image block")
	}
	return nil
}

// Decoder incrementally decodes a scene from arbitrarily sized chunks, for
// callers that receive the file over a pipe or socket. Feed chunks to
// Decode until it returns a Scene.
type Decoder struct {
	buf      bytes.Buffer
	state    decodeState
	err      error
	desc     SceneDescription
	imageLen int
}

type decodeState int

const (
	// awaitingHeader consumes the fixed header and the JSON block in one
	// step, once both are buffered.
	awaitingHeader decodeState = iota
	awaitingImage
)

// NewDecoder returns a Decoder ready for the first chunk.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode consumes the next chunk. It returns a non-nil Scene exactly once,
// when the final byte of the image block arrives; before that it returns
// (nil, nil). Header and camera block errors are fatal for the stream and
// returned again on any further call. After a successful decode the
// decoder starts over on the next unit, keeping any surplus bytes.
func (d *Decoder) Decode(chunk []byte) (*Scene, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.buf.Write(chunk)

	if d.state == awaitingHeader {
		ok, err := d.consumeHeader()
		if err != nil {
			d.err = err
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		d.state = awaitingImage
	}

	if d.buf.Len() < d.imageLen {
		return nil, nil
	}
	img := make([]byte, d.imageLen)
	copy(img, d.buf.Next(d.imageLen))

	decoded := &Scene{Description: d.desc, Image: img}
	d.state = awaitingHeader
	d.desc = SceneDescription{}
	d.imageLen = 0
	return decoded, nil
}

// consumeHeader parses the header plus the JSON camera block once both are
// fully buffered. It reports false when more bytes are needed.
func (d *Decoder) consumeHeader() (bool, error) {
	if d.buf.Len() < headerSize {
		return false, nil
	}
	header := d.buf.Bytes()[:headerSize]
	if magic := binary.LittleEndian.Uint32(header[0:]); magic != Magic {
		return false, errors.Wrapf(ErrBadMagic, "got %#x", magic)
	}
	if version := binary.LittleEndian.Uint32(header[4:]); version != Version {
		return false, errors.Wrapf(ErrUnsupportedVersion, "got %d", version)
	}
	jsonLen := int(binary.LittleEndian.Uint32(header[8:]))
	imageLen := int(binary.LittleEndian.Uint32(header[12:]))
	if jsonLen > maxBlockSize || imageLen > maxBlockSize {
		return false, errors.Wrapf(ErrBlockTooLarge, "json %d bytes, image %d bytes", jsonLen, imageLen)
	}
	if d.buf.Len() < headerSize+jsonLen {
		return false, nil
	}

	d.buf.Next(headerSize)
	if err := json.Unmarshal(d.buf.Next(jsonLen), &d.desc); err != nil {
		return false, errors.Wrap(err, "cannot parse camera block")
	}
	d.imageLen = imageLen
	return true, nil
}

// ReadScene decodes one complete scene from r, tolerating arbitrarily
// fragmented reads. A stream that ends early yields ErrTruncatedFile.
func ReadScene(r io.Reader) (*Scene, error) {
	dec := NewDecoder()
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			decoded, derr := dec.Decode(chunk[:n])
			if derr != nil {
				return nil, derr
			}
			if decoded != nil {
				return decoded, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncatedFile
		}
		if err != nil {
			return nil, errors.Wrap(err, "read scene stream")
		}
	}
}
