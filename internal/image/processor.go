package image

import (
	"context"
	"encoding/json"
	"fmt"
)

// Processor is an image processor
type Processor interface {
	ProcessImage(ctx context.Context, data []byte, task Task) (*Result, error)
}

// Result is the outcome of a task: encoded image bytes, or a JSON serializable report
type Result struct {
	Operation Operation
	// Format and Data are set for image producing operations
	Format Format
	Data   []byte
	// Report is set for Info (*SizeReport) and Metadata (*MetadataReport)
	Report interface{}
}

// IsImage reports whether the result holds encoded image bytes
func (r *Result) IsImage() bool {
	return r.Report == nil
}

// Bytes serializes the result, returning the encoded image or the JSON encoded report
func (r *Result) Bytes() ([]byte, error) {
	if r.IsImage() {
		return r.Data, nil
	}

	return json.Marshal(r.Report)
}

// ResultFromBytes restores a result serialized with Result.Bytes for the given task
func ResultFromBytes(task Task, data []byte) (*Result, error) {
	result := &Result{
		Operation: task.Operation(),
	}

	switch t := task.(type) {
	case *InfoTask:
		report := &SizeReport{}
		if err := json.Unmarshal(data, report); err != nil {
			return nil, fmt.Errorf("error decoding size report: %w", err)
		}
		result.Report = report
	case *MetadataTask:
		report := &MetadataReport{}
		if err := json.Unmarshal(data, report); err != nil {
			return nil, fmt.Errorf("error decoding metadata report: %w", err)
		}
		result.Report = report
	case *ConvertTask:
		result.Format, result.Data = t.Output.Format, data
	case *ResizeTask:
		result.Format, result.Data = t.Output.Format, data
	case *CropTask:
		result.Format, result.Data = t.Output.Format, data
	case *WatermarkTask:
		result.Format, result.Data = t.Output.Format, data
	default:
		return nil, fmt.Errorf("unknown task %T", task)
	}

	return result, nil
}

// SizeReport compares the size of an upload with its encoding in every supported format
type SizeReport struct {
	Original OriginalStats `json:"original"`
	Formats  FormatSizes   `json:"formats"`
}

// OriginalStats describes the uploaded image
type OriginalStats struct {
	SizeBytes int    `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Mode      Mode   `json:"mode"`
}

// FormatSizes holds one entry per supported format, in report order
type FormatSizes struct {
	AVIF FormatSize `json:"avif"`
	WebP FormatSize `json:"webp"`
	PNG  FormatSize `json:"png"`
	JPEG FormatSize `json:"jpg"`
}

// Set stores the entry for a format
func (f *FormatSizes) Set(format Format, size FormatSize) {
	switch format {
	case AVIF:
		f.AVIF = size
	case WebP:
		f.WebP = size
	case PNG:
		f.PNG = size
	case JPEG:
		f.JPEG = size
	}
}

// Get returns the entry for a format
func (f *FormatSizes) Get(format Format) FormatSize {
	switch format {
	case AVIF:
		return f.AVIF
	case WebP:
		return f.WebP
	case PNG:
		return f.PNG
	default:
		return f.JPEG
	}
}

// FormatSize is the encoded size of the upload in one format
type FormatSize struct {
	Quality   int     `json:"quality"`
	SizeBytes int     `json:"size_bytes"`
	SizeHuman string  `json:"size_human"`
	Savings   Savings `json:"savings"`
}

// Savings is the reduction in size relative to the upload; negative when the format is larger
type Savings struct {
	Bytes      int    `json:"bytes"`
	Percentage string `json:"percentage"`
}

// MetadataReport describes the structure and embedded metadata of an upload
type MetadataReport struct {
	Filename string                 `json:"filename,omitempty"`
	Format   string                 `json:"format"`
	Mode     Mode                   `json:"mode"`
	Size     Dimensions             `json:"size"`
	Info     map[string]interface{} `json:"info"`
	EXIF     map[string]interface{} `json:"exif"`
}

// Dimensions is a width and height in pixels
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
