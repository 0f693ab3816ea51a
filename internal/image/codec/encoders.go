package codec

import (
	"bytes"
	goimage "image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/DMarby/image-api/internal/image"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
)

// avifSpeed trades encoding speed for size, 0 (slowest) - 10 (fastest)
const avifSpeed = 8

// Background is the colour transparent pixels are flattened onto for formats without alpha
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

type jpegEncoder struct{}

func (e *jpegEncoder) Format() image.Format { return image.JPEG }

func (e *jpegEncoder) Encode(buf *bytes.Buffer, img goimage.Image, quality int) error {
	return jpeg.Encode(buf, Flatten(img), &jpeg.Options{Quality: quality})
}

// PNG is lossless, so quality selects the compression effort instead of a lossy quality.
// The mapping is monotonic: a higher quality never selects less effort.
//
//	  1-33  png.BestSpeed
//	 34-66  png.DefaultCompression
//	67-100  png.BestCompression
type pngEncoder struct{}

func (e *pngEncoder) Format() image.Format { return image.PNG }

func (e *pngEncoder) Encode(buf *bytes.Buffer, img goimage.Image, quality int) error {
	encoder := png.Encoder{CompressionLevel: PNGCompressionLevel(quality)}
	return encoder.Encode(buf, img)
}

// PNGCompressionLevel maps a 1-100 quality to a PNG compression level
func PNGCompressionLevel(quality int) png.CompressionLevel {
	switch {
	case quality <= 33:
		return png.BestSpeed
	case quality <= 66:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

type webpEncoder struct{}

func (e *webpEncoder) Format() image.Format { return image.WebP }

func (e *webpEncoder) Encode(buf *bytes.Buffer, img goimage.Image, quality int) error {
	return webp.Encode(buf, img, &webp.Options{
		Lossless: false,
		Quality:  float32(quality),
	})
}

type avifEncoder struct{}

func (e *avifEncoder) Format() image.Format { return image.AVIF }

func (e *avifEncoder) Encode(buf *bytes.Buffer, img goimage.Image, quality int) error {
	return avif.Encode(buf, img, avif.Options{
		Quality:      quality,
		QualityAlpha: quality,
		Speed:        avifSpeed,
	})
}

// Flatten composites a raster with transparency onto the opaque Background.
// Opaque rasters are returned unchanged.
func Flatten(img goimage.Image) goimage.Image {
	if !image.HasAlpha(img) {
		return img
	}

	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), Background)
	return imaging.Overlay(background, img, goimage.Pt(0, 0), 1.0)
}
