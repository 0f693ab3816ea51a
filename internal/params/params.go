package params

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/watermark"
)

// ImageField is the multipart field holding the upload
const ImageField = "image"

// Form fields held in memory while parsing, the rest spills to disk
const maxMemory = 32 << 20

// Upload is an uploaded image
type Upload struct {
	Filename string
	Data     []byte
}

// Base returns the filename without its directory or extension
func (u *Upload) Base() string {
	name := filepath.Base(strings.ReplaceAll(u.Filename, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "image"
	}

	return name
}

// Form is a parsed multipart request
type Form struct {
	r *http.Request
}

// Parse parses a multipart upload no larger than maxSize bytes and returns the uploaded image
func Parse(w http.ResponseWriter, r *http.Request, maxSize int64) (*Form, *Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, nil, image.Validation("Upload exceeds the maximum size of %d bytes", maxSize)
		}

		return nil, nil, image.Validation("Expected a multipart/form-data upload")
	}

	file, header, err := r.FormFile(ImageField)
	if err != nil {
		return nil, nil, image.Validation("Missing image upload in field %q", ImageField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, image.Validation("Error reading upload")
	}

	return &Form{r: r}, &Upload{Filename: header.Filename, Data: data}, nil
}

// Cleanup removes any temporary files created while parsing
func (f *Form) Cleanup() {
	if f.r.MultipartForm != nil {
		f.r.MultipartForm.RemoveAll()
	}
}

func (f *Form) value(name string) (string, bool) {
	values, ok := f.r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return "", false
	}

	value := strings.TrimSpace(values[0])
	return value, value != ""
}

// Int returns an optional integer field
func (f *Form) Int(name string) (*int, error) {
	value, ok := f.value(name)
	if !ok {
		return nil, nil
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return nil, image.Validation("%s must be an integer", fieldName(name))
	}

	return &i, nil
}

// RequiredInt returns a required integer field
func (f *Form) RequiredInt(name string) (int, error) {
	i, err := f.Int(name)
	if err != nil {
		return 0, err
	}

	if i == nil {
		return 0, image.Validation("%s is required", fieldName(name))
	}

	return *i, nil
}

// IntDefault returns an integer field, or def when it's absent
func (f *Form) IntDefault(name string, def int) (int, error) {
	i, err := f.Int(name)
	if err != nil || i == nil {
		return def, err
	}

	return *i, nil
}

// Float returns an optional decimal field
func (f *Form) Float(name string) (*float64, error) {
	value, ok := f.value(name)
	if !ok {
		return nil, nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, image.Validation("%s must be a number", fieldName(name))
	}

	return &v, nil
}

// FloatDefault returns a decimal field, or def when it's absent
func (f *Form) FloatDefault(name string, def float64) (float64, error) {
	v, err := f.Float(name)
	if err != nil || v == nil {
		return def, err
	}

	return *v, nil
}

// BoolDefault returns a boolean field, or def when it's absent
func (f *Form) BoolDefault(name string, def bool) (bool, error) {
	value, ok := f.value(name)
	if !ok {
		return def, nil
	}

	switch strings.ToLower(value) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}

	return def, image.Validation("%s must be true or false", fieldName(name))
}

// Output returns the required format and optional quality fields
func (f *Form) Output() (image.Output, error) {
	name, ok := f.value("format")
	if !ok {
		return image.Output{}, image.Validation("Format is required")
	}

	format, err := image.ParseFormat(name)
	if err != nil {
		return image.Output{}, err
	}

	quality, err := f.IntDefault("quality", image.DefaultQuality)
	if err != nil {
		return image.Output{}, err
	}

	return image.Output{Format: format, Quality: quality}, nil
}

func fieldName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToUpper(name[:1]) + name[1:]
}

// ConvertTask builds a convert task from the form
func (f *Form) ConvertTask() (*image.ConvertTask, error) {
	output, err := f.Output()
	if err != nil {
		return nil, err
	}

	return &image.ConvertTask{Output: output}, nil
}

// InfoTask builds an info task from the form
func (f *Form) InfoTask() (*image.InfoTask, error) {
	quality, err := f.IntDefault("quality", image.DefaultQuality)
	if err != nil {
		return nil, err
	}

	return &image.InfoTask{Quality: quality}, nil
}

// ResizeTask builds a resize task from the form
func (f *Form) ResizeTask() (*image.ResizeTask, error) {
	output, err := f.Output()
	if err != nil {
		return nil, err
	}

	var opts image.ResizeOptions
	if opts.Width, err = f.Int("width"); err != nil {
		return nil, err
	}
	if opts.Height, err = f.Int("height"); err != nil {
		return nil, err
	}
	if opts.Percentage, err = f.Float("percentage"); err != nil {
		return nil, err
	}
	if opts.MaintainAspectRatio, err = f.BoolDefault("maintain_aspect_ratio", true); err != nil {
		return nil, err
	}

	return &image.ResizeTask{Output: output, Options: opts}, nil
}

// CropTask builds a crop task from the form
func (f *Form) CropTask() (*image.CropTask, error) {
	output, err := f.Output()
	if err != nil {
		return nil, err
	}

	var rect image.Rectangle
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"left", &rect.Left},
		{"top", &rect.Top},
		{"right", &rect.Right},
		{"bottom", &rect.Bottom},
	} {
		if *field.dst, err = f.RequiredInt(field.name); err != nil {
			return nil, err
		}
	}

	return &image.CropTask{Output: output, Rectangle: rect}, nil
}

// WatermarkTask builds a watermark task from the form
func (f *Form) WatermarkTask() (*image.WatermarkTask, error) {
	output, err := f.Output()
	if err != nil {
		return nil, err
	}

	text, ok := f.value("text")
	if !ok {
		return nil, image.Validation("Text is required")
	}

	spec := image.WatermarkSpec{Text: text}
	if spec.Opacity, err = f.FloatDefault("opacity", image.DefaultOpacity); err != nil {
		return nil, err
	}
	if spec.Density, err = f.IntDefault("density", image.DefaultDensity); err != nil {
		return nil, err
	}

	fontSize, err := f.Int("font_size")
	if err != nil {
		return nil, err
	}
	if fontSize != nil {
		if *fontSize < 1 {
			return nil, image.Validation("Font size must be between 1 and %d", image.MaxFontSize)
		}
		spec.FontSize = *fontSize
	}

	hex, _ := f.value("color")
	if spec.Color, err = watermark.ParseColor(hex); err != nil {
		return nil, err
	}

	return &image.WatermarkTask{Output: output, Spec: spec}, nil
}
