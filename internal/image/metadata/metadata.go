// Package metadata reports the structure and embedded EXIF tags of an upload
package metadata

import (
	"github.com/DMarby/image-api/internal/image"
)

// Extract builds the metadata report for a decoded upload.
// Uploads without EXIF give an empty EXIF mapping.
func Extract(img *image.Image) *image.MetadataReport {
	c := readContainer(img.Format, img.Source)

	return &image.MetadataReport{
		Format: img.Format,
		Mode:   img.Mode(),
		Size: image.Dimensions{
			Width:  img.Width(),
			Height: img.Height(),
		},
		Info: c.info,
		EXIF: readEXIF(c.exif),
	}
}
