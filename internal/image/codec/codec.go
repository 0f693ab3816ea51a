// Package codec decodes uploads and encodes rasters into the supported output formats.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	goimage "image"
	"strings"

	// Decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/DMarby/image-api/internal/image"
	"github.com/gen2brain/avif"
)

func init() {
	goimage.RegisterFormat("avif", "????ftypavif", avif.Decode, avif.DecodeConfig)
	goimage.RegisterFormat("avif", "????ftypavis", avif.Decode, avif.DecodeConfig)
}

// Encoder encodes a raster into a single format
type Encoder interface {
	// Format returns the format the encoder produces
	Format() image.Format
	// Encode encodes the raster at the given quality, 1-100.
	// Rasters in a colour mode the format can't represent are converted first.
	Encode(buf *bytes.Buffer, img goimage.Image, quality int) error
}

// Codec decodes uploads and encodes images using the registered encoders
type Codec struct {
	encoders     map[image.Format]Encoder
	maxDimension int
}

// New returns a codec with encoders for every supported format
func New() *Codec {
	return NewWithEncoders(
		&avifEncoder{},
		&webpEncoder{},
		&pngEncoder{},
		&jpegEncoder{},
	)
}

// NewWithEncoders returns a codec using the given encoders
func NewWithEncoders(encoders ...Encoder) *Codec {
	c := &Codec{
		encoders:     make(map[image.Format]Encoder, len(encoders)),
		maxDimension: image.MaxDimension,
	}

	for _, encoder := range encoders {
		c.encoders[encoder.Format()] = encoder
	}

	return c
}

// Decode decodes an upload.
// The image header is checked against the maximum dimension before the pixels are decoded.
func (c *Codec) Decode(data []byte) (*image.Image, error) {
	if len(data) == 0 {
		return nil, image.DecodeFailure(image.ErrInvalidImage, "empty image")
	}

	config, format, err := goimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(err)
	}

	if config.Width > c.maxDimension || config.Height > c.maxDimension {
		return nil, image.Validation("Image dimensions %dx%d exceed the maximum of %d pixels per side", config.Width, config.Height, c.maxDimension)
	}

	pixels, _, err := goimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(err)
	}

	if pixels.Bounds().Empty() {
		return nil, image.DecodeFailure(image.ErrInvalidImage, "image has no pixels")
	}

	return &image.Image{
		Pixels: pixels,
		Format: strings.ToUpper(format),
		Source: data,
	}, nil
}

func decodeError(err error) error {
	if errors.Is(err, goimage.ErrFormat) {
		return image.DecodeFailure(image.ErrInvalidImage, "unsupported image format")
	}

	return image.DecodeFailure(fmt.Errorf("%w: %s", image.ErrInvalidImage, err), "invalid image")
}

// Encode encodes a raster into the given format.
// No bytes are returned when encoding fails.
func (c *Codec) Encode(img goimage.Image, format image.Format, quality int) ([]byte, error) {
	encoder, ok := c.encoders[format]
	if !ok {
		return nil, image.EncodeFailure(image.ErrUnsupportedFormat, fmt.Sprintf("unsupported format %q", format))
	}

	if err := image.ValidateQuality(quality); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img, quality); err != nil {
		return nil, image.EncodeFailure(err, fmt.Sprintf("error encoding image as %s", format))
	}

	return buf.Bytes(), nil
}

// Formats returns the formats the codec can encode, in report order
func (c *Codec) Formats() []image.Format {
	formats := make([]image.Format, 0, len(c.encoders))
	for _, format := range image.Formats {
		if _, ok := c.encoders[format]; ok {
			formats = append(formats, format)
		}
	}

	return formats
}

// SelfTest encodes and decodes a small image in every format
func (c *Codec) SelfTest() error {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	for _, format := range c.Formats() {
		data, err := c.Encode(img, format, image.DefaultQuality)
		if err != nil {
			return err
		}

		if _, err := c.Decode(data); err != nil {
			return fmt.Errorf("error decoding %s: %w", format, err)
		}
	}

	return nil
}
