// Package savings compares the size of an upload with its encoding in every supported format
package savings

import (
	"context"
	"fmt"
	goimage "image"

	"github.com/DMarby/image-api/internal/image"
	"golang.org/x/sync/errgroup"
)

// Encoder encodes a raster into a format
type Encoder interface {
	Encode(img goimage.Image, format image.Format, quality int) ([]byte, error)
	Formats() []image.Format
}

// Analyze encodes the image in every format the encoder supports and reports the sizes.
// Savings are relative to the size of the original upload, not a re-encoding of it.
func Analyze(ctx context.Context, encoder Encoder, img *image.Image, quality int) (*image.SizeReport, error) {
	if err := image.ValidateQuality(quality); err != nil {
		return nil, err
	}

	originalSize := len(img.Source)
	report := &image.SizeReport{
		Original: image.OriginalStats{
			SizeBytes: originalSize,
			SizeHuman: HumanSize(originalSize),
			Format:    img.Format,
			Width:     img.Width(),
			Height:    img.Height(),
			Mode:      img.Mode(),
		},
	}

	formats := encoder.Formats()
	sizes := make([]int, len(formats))

	g, ctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		i, format := i, format
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := encoder.Encode(img.Pixels, format, quality)
			if err != nil {
				return err
			}

			sizes[i] = len(data)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, format := range formats {
		report.Formats.Set(format, Compare(originalSize, sizes[i], quality))
	}

	return report, nil
}

// Compare returns the size entry for an encoding of size bytes against the original
func Compare(originalSize, size, quality int) image.FormatSize {
	return image.FormatSize{
		Quality:   quality,
		SizeBytes: size,
		SizeHuman: HumanSize(size),
		Savings: image.Savings{
			Bytes:      originalSize - size,
			Percentage: Percentage(originalSize, size),
		},
	}
}

// Percentage formats the reduction from original to size as a percentage with two decimals.
// Larger encodings give negative percentages.
func Percentage(originalSize, size int) string {
	if originalSize == 0 {
		return "0.00%"
	}

	return fmt.Sprintf("%.2f%%", float64(originalSize-size)/float64(originalSize)*100)
}

// HumanSize formats a byte count in binary units with two decimals
func HumanSize(size int) string {
	const unit = 1024

	switch {
	case size < unit:
		return fmt.Sprintf("%.2f B", float64(size))
	case size < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(size)/unit)
	default:
		return fmt.Sprintf("%.2f MB", float64(size)/(unit*unit))
	}
}
