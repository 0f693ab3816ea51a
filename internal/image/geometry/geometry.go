// Package geometry resizes and crops decoded images
package geometry

import (
	goimage "image"
	"math"

	"github.com/DMarby/image-api/internal/image"
	"github.com/disintegration/imaging"
)

// Dimensions resolves resize options against the dimensions of an image
func Dimensions(width, height int, opts image.ResizeOptions) (int, int, error) {
	if err := opts.Validate(); err != nil {
		return 0, 0, err
	}

	w, h := float64(width), float64(height)
	var newWidth, newHeight float64

	switch {
	case opts.Percentage != nil:
		scale := *opts.Percentage / 100
		newWidth, newHeight = w*scale, h*scale
	case opts.Width != nil && opts.Height != nil:
		newWidth, newHeight = float64(*opts.Width), float64(*opts.Height)
		if opts.MaintainAspectRatio {
			// Largest size that fits inside the box
			scale := math.Min(newWidth/w, newHeight/h)
			newWidth, newHeight = w*scale, h*scale
		}
	case opts.Width != nil:
		newWidth, newHeight = float64(*opts.Width), h
		if opts.MaintainAspectRatio {
			newHeight = newWidth * h / w
		}
	default:
		newWidth, newHeight = w, float64(*opts.Height)
		if opts.MaintainAspectRatio {
			newWidth = newHeight * w / h
		}
	}

	resolvedWidth, resolvedHeight := int(math.Round(newWidth)), int(math.Round(newHeight))
	if resolvedWidth < 1 || resolvedHeight < 1 {
		return 0, 0, image.Validation("Resize would produce an empty image (%dx%d)", resolvedWidth, resolvedHeight)
	}

	if resolvedWidth > image.MaxDimension || resolvedHeight > image.MaxDimension {
		return 0, 0, image.Validation("Resize would exceed the maximum of %d pixels per side (%dx%d)", image.MaxDimension, resolvedWidth, resolvedHeight)
	}

	return resolvedWidth, resolvedHeight, nil
}

// Resize returns a resized copy of the image, leaving the input untouched
func Resize(img goimage.Image, opts image.ResizeOptions) (goimage.Image, error) {
	bounds := img.Bounds()
	width, height, err := Dimensions(bounds.Dx(), bounds.Dy(), opts)
	if err != nil {
		return nil, err
	}

	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// Crop returns a copy of the pixels inside the rectangle.
// Rectangles that extend past the image are rejected rather than clamped.
func Crop(img goimage.Image, rect image.Rectangle) (goimage.Image, error) {
	bounds := img.Bounds()
	if err := rect.Validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	region := goimage.Rect(rect.Left, rect.Top, rect.Right, rect.Bottom).Add(bounds.Min)
	return imaging.Crop(img, region), nil
}
