package image

import (
	"image/color"
	"math"
	"strings"
)

// Operation is the kind of transformation a task performs
type Operation int

// Operations
const (
	OperationConvert Operation = iota
	OperationInfo
	OperationResize
	OperationCrop
	OperationWatermark
	OperationMetadata
)

func (o Operation) String() string {
	switch o {
	case OperationConvert:
		return "convert"
	case OperationInfo:
		return "info"
	case OperationResize:
		return "resize"
	case OperationCrop:
		return "crop"
	case OperationWatermark:
		return "watermark"
	case OperationMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Task is a validated, immutable image processing request
type Task interface {
	Operation() Operation
	Validate() error
}

// ConvertTask re-encodes an image into another format
type ConvertTask struct {
	Output Output `json:"output"`
}

// Operation returns OperationConvert
func (t *ConvertTask) Operation() Operation { return OperationConvert }

// Validate validates the task parameters
func (t *ConvertTask) Validate() error {
	return t.Output.Validate()
}

// InfoTask compares the encoded size of an image across every supported format
type InfoTask struct {
	Quality int `json:"quality"`
}

// Operation returns OperationInfo
func (t *InfoTask) Operation() Operation { return OperationInfo }

// Validate validates the task parameters
func (t *InfoTask) Validate() error {
	return ValidateQuality(t.Quality)
}

// MetadataTask extracts structural properties and EXIF tags
type MetadataTask struct{}

// Operation returns OperationMetadata
func (t *MetadataTask) Operation() Operation { return OperationMetadata }

// Validate validates the task parameters
func (t *MetadataTask) Validate() error {
	return nil
}

// MaxDimension is the largest width or height an image may be decoded or resized to
const MaxDimension = 16384

// maxPercentage bounds percentage based resizing
const maxPercentage = 1000

// ResizeOptions describes a resize by absolute dimensions or by percentage.
// Nil fields were not supplied.
type ResizeOptions struct {
	Width               *int     `json:"width,omitempty"`
	Height              *int     `json:"height,omitempty"`
	Percentage          *float64 `json:"percentage,omitempty"`
	MaintainAspectRatio bool     `json:"maintain_aspect_ratio"`
}

// Validate checks the options without knowledge of the image they apply to
func (o ResizeOptions) Validate() error {
	if o.Width == nil && o.Height == nil && o.Percentage == nil {
		return Validation("At least one of width, height, or percentage must be provided")
	}

	if o.Percentage != nil {
		if o.Width != nil || o.Height != nil {
			return Validation("Percentage can't be combined with width or height")
		}

		p := *o.Percentage
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 || p > maxPercentage {
			return Validation("Percentage must be greater than 0 and at most %d", maxPercentage)
		}
	}

	if o.Width != nil && (*o.Width < 1 || *o.Width > MaxDimension) {
		return Validation("Width must be between 1 and %d", MaxDimension)
	}

	if o.Height != nil && (*o.Height < 1 || *o.Height > MaxDimension) {
		return Validation("Height must be between 1 and %d", MaxDimension)
	}

	return nil
}

// ResizeTask resizes an image
type ResizeTask struct {
	Output  Output        `json:"output"`
	Options ResizeOptions `json:"options"`
}

// Operation returns OperationResize
func (t *ResizeTask) Operation() Operation { return OperationResize }

// Validate validates the task parameters
func (t *ResizeTask) Validate() error {
	if err := t.Output.Validate(); err != nil {
		return err
	}

	return t.Options.Validate()
}

// Rectangle is a crop region. Pixels inside [Left,Right) x [Top,Bottom) are kept.
type Rectangle struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the width of the rectangle
func (r Rectangle) Width() int {
	return r.Right - r.Left
}

// Height returns the height of the rectangle
func (r Rectangle) Height() int {
	return r.Bottom - r.Top
}

// Validate checks the rectangle against the dimensions of an image
func (r Rectangle) Validate(width, height int) error {
	if r.Left < 0 || r.Top < 0 || r.Right > width || r.Bottom > height || r.Left >= r.Right || r.Top >= r.Bottom {
		return Validation("Invalid crop coordinates. Image dimensions are %dx%d.", width, height)
	}

	return nil
}

// CropTask crops an image
type CropTask struct {
	Output    Output    `json:"output"`
	Rectangle Rectangle `json:"rectangle"`
}

// Operation returns OperationCrop
func (t *CropTask) Operation() Operation { return OperationCrop }

// Validate validates the parameters that don't depend on the image.
// The rectangle is checked against the decoded image dimensions by the geometry engine.
func (t *CropTask) Validate() error {
	if err := t.Output.Validate(); err != nil {
		return err
	}

	r := t.Rectangle
	if r.Left < 0 || r.Top < 0 || r.Left >= r.Right || r.Top >= r.Bottom {
		return Validation("Invalid crop coordinates. Expected 0 <= left < right and 0 <= top < bottom.")
	}

	return nil
}

// Watermark bounds and defaults
const (
	MinDensity       = 1
	MaxDensity       = 50
	DefaultDensity   = 20
	DefaultOpacity   = 0.3
	MaxFontSize      = 2048
	maxWatermarkText = 512
)

// DefaultWatermarkColor is the colour of watermark text when none is given
var DefaultWatermarkColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

// WatermarkSpec describes a diagonal, tiled text watermark
type WatermarkSpec struct {
	Text    string  `json:"text"`
	Opacity float64 `json:"opacity"`
	Density int     `json:"density"`
	// FontSize is derived from the image diagonal when zero
	FontSize int         `json:"font_size,omitempty"`
	Color    color.NRGBA `json:"color"`
}

// Validate validates the watermark parameters
func (s WatermarkSpec) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return Validation("Text must not be empty")
	}

	if len(s.Text) > maxWatermarkText {
		return Validation("Text must be at most %d bytes", maxWatermarkText)
	}

	if math.IsNaN(s.Opacity) || s.Opacity < 0 || s.Opacity > 1 {
		return Validation("Opacity must be between 0.0 and 1.0")
	}

	if s.Density < MinDensity || s.Density > MaxDensity {
		return Validation("Density must be between %d and %d", MinDensity, MaxDensity)
	}

	if s.FontSize < 0 || s.FontSize > MaxFontSize {
		return Validation("Font size must be between 1 and %d", MaxFontSize)
	}

	return nil
}

// WatermarkTask applies a watermark to an image
type WatermarkTask struct {
	Output Output        `json:"output"`
	Spec   WatermarkSpec `json:"spec"`
}

// Operation returns OperationWatermark
func (t *WatermarkTask) Operation() Operation { return OperationWatermark }

// Validate validates the task parameters
func (t *WatermarkTask) Validate() error {
	if err := t.Output.Validate(); err != nil {
		return err
	}

	return t.Spec.Validate()
}
