// Package watermark composites a diagonal, tiled text overlay onto images
package watermark

import (
	goimage "image"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/DMarby/image-api/internal/image"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// fontSizeDivisor derives the font size from the image diagonal: 800x600 gives 40pt
	fontSizeDivisor = 25
	// MinFontSize is the smallest derived font size
	MinFontSize = 10
	// angle the text runs at, counter clockwise from horizontal
	angle = 45
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

func loadFont() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})

	return regular, regularErr
}

// Diagonal returns the length of the diagonal of an image
func Diagonal(width, height int) float64 {
	return math.Hypot(float64(width), float64(height))
}

// FontSize returns the font size used for an image when none is given
func FontSize(width, height int) int {
	size := int(Diagonal(width, height) / fontSizeDivisor)
	if size < MinFontSize {
		return MinFontSize
	}

	return size
}

// Spacing returns the gap in pixels between repeated text instances.
// Higher densities give smaller gaps.
func Spacing(width, height, density int) int {
	spacing := int(Diagonal(width, height) / float64(density))
	if spacing < 1 {
		return 1
	}

	return spacing
}

// ParseColor parses a hex colour such as #ff0000 or #f00
func ParseColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return image.DefaultWatermarkColor, nil
	}

	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, image.Validation("Color must be a hex colour such as #000000")
	}

	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Apply returns a copy of the image with the watermark composited on top.
// An opacity of zero returns the image unchanged.
func Apply(img goimage.Image, spec image.WatermarkSpec) (goimage.Image, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if spec.Opacity == 0 {
		return img, nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	fontSize := spec.FontSize
	if fontSize == 0 {
		fontSize = FontSize(width, height)
	}

	textColor := spec.Color
	if textColor == (color.NRGBA{}) {
		textColor = image.DefaultWatermarkColor
	}

	// The text is tiled over a square that still covers the canvas once rotated
	side := int(math.Ceil(Diagonal(width, height))) + 2
	overlay, err := tile(side, spec.Text, fontSize, Spacing(width, height, spec.Density), textColor)
	if err != nil {
		return nil, image.Internal(err, "error rendering watermark")
	}

	rotated := transform.Rotate(overlay, -angle, nil)

	offsetX, offsetY := (side-width)/2, (side-height)/2
	visible := imaging.Crop(rotated, goimage.Rect(offsetX, offsetY, offsetX+width, offsetY+height))

	return imaging.Overlay(img, visible, bounds.Min, spec.Opacity), nil
}

// tile renders the text repeatedly onto a transparent square, staggering odd rows by half a step
func tile(side int, text string, fontSize int, spacing int, textColor color.NRGBA) (*goimage.NRGBA, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	ascent := metrics.Ascent.Ceil()

	stepX := textWidth + spacing
	stepY := textHeight + spacing

	overlay := goimage.NewNRGBA(goimage.Rect(0, 0, side, side))
	drawer := &font.Drawer{
		Dst:  overlay,
		Src:  goimage.NewUniform(textColor),
		Face: face,
	}

	for row, y := 0, 0; y < side; row, y = row+1, y+stepY {
		startX := 0
		if row%2 == 1 {
			startX = -stepX / 2
		}

		for x := startX; x < side; x += stepX {
			drawer.Dot = fixed.P(x, y+ascent)
			drawer.DrawString(text)
		}
	}

	return overlay, nil
}
