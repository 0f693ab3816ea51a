package image

import (
	goimage "image"
)

// Mode is the colour mode of a decoded image, named the way PIL names them
type Mode string

// Colour modes
const (
	ModeRGB  Mode = "RGB"
	ModeRGBA Mode = "RGBA"
	ModeL    Mode = "L"
	ModeLA   Mode = "LA"
	ModeI16  Mode = "I;16"
	ModeP    Mode = "P"
	ModeCMYK Mode = "CMYK"
)

// Image is a decoded upload. It is owned by a single request and never shared.
type Image struct {
	// Pixels holds the decoded raster
	Pixels goimage.Image
	// Format is the name of the container the upload was decoded from, e.g. JPEG
	Format string
	// Source is the encoded upload, read only
	Source []byte
}

// Width returns the width of the image in pixels
func (i *Image) Width() int {
	return i.Pixels.Bounds().Dx()
}

// Height returns the height of the image in pixels
func (i *Image) Height() int {
	return i.Pixels.Bounds().Dy()
}

// Mode returns the colour mode of the image
func (i *Image) Mode() Mode {
	return ModeOf(i.Pixels)
}

type opaquer interface {
	Opaque() bool
}

// ModeOf returns the colour mode of a raster.
// Alpha capable rasters whose pixels are all opaque are reported as RGB.
func ModeOf(img goimage.Image) Mode {
	switch img.(type) {
	case *goimage.Gray:
		return ModeL
	case *goimage.Gray16:
		return ModeI16
	case *goimage.Alpha, *goimage.Alpha16:
		return ModeLA
	case *goimage.Paletted:
		return ModeP
	case *goimage.CMYK:
		return ModeCMYK
	case *goimage.YCbCr:
		return ModeRGB
	}

	if HasAlpha(img) {
		return ModeRGBA
	}

	return ModeRGB
}

// HasAlpha reports whether any pixel of the raster is not fully opaque
func HasAlpha(img goimage.Image) bool {
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}

	return false
}
