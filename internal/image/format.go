package image

import (
	"fmt"
	"strings"
)

// Format is an output image format
type Format string

// Supported output formats
const (
	AVIF Format = "avif"
	WebP Format = "webp"
	PNG  Format = "png"
	JPEG Format = "jpg"
)

// Formats lists every supported output format, in the order they are reported
var Formats = []Format{AVIF, WebP, PNG, JPEG}

// Quality bounds
const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 85
)

// allowedFormatNames are the format names accepted from clients
var allowedFormatNames = []string{"avif", "webp", "png", "jpg", "jpeg"}

// ParseFormat parses a client supplied format name, accepting jpeg as an alias of jpg
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avif":
		return AVIF, nil
	case "webp":
		return WebP, nil
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}

	return "", Validation("Format must be one of %v", allowedFormatNames)
}

// ContentType returns the media type of the format
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	default:
		return "image/" + string(f)
	}
}

// Extension returns the file extension of the format, without a leading dot
func (f Format) Extension() string {
	return string(f)
}

// Valid reports whether the format is one of the supported formats
func (f Format) Valid() bool {
	for _, format := range Formats {
		if f == format {
			return true
		}
	}

	return false
}

// ValidateQuality checks that a quality value is within [MinQuality, MaxQuality]
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return Validation("Quality must be between %d and %d", MinQuality, MaxQuality)
	}

	return nil
}

// Output is the target encoding of an image producing operation
type Output struct {
	Format  Format `json:"format"`
	Quality int    `json:"quality"`
}

// Validate validates the output format and quality
func (o Output) Validate() error {
	if !o.Format.Valid() {
		return Validation("Format must be one of %v", allowedFormatNames)
	}

	return ValidateQuality(o.Quality)
}

func (o Output) String() string {
	return fmt.Sprintf("%s@%d", o.Format, o.Quality)
}
