package metadata

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// BinaryData replaces values that have no readable form
const BinaryData = "binary data"

// IFD pointers are structural and never reported
var pointerFields = map[exif.FieldName]bool{
	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

type walker map[string]interface{}

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if pointerFields[name] {
		return nil
	}

	w[string(name)] = normalize(name, tag)
	return nil
}

// readEXIF decodes an EXIF payload into a map of tag name to normalized value.
// Payloads that can't be decoded give an empty map.
func readEXIF(payload []byte) (tags map[string]interface{}) {
	tags = make(map[string]interface{})
	if len(payload) == 0 {
		return tags
	}

	// Malformed offsets can panic deep inside the tiff reader
	defer func() {
		if r := recover(); r != nil {
			tags = make(map[string]interface{})
		}
	}()

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return tags
	}

	x.Walk(walker(tags))
	return tags
}

func normalize(name exif.FieldName, tag *tiff.Tag) interface{} {
	switch name {
	case exif.ExposureTime:
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			return ExposureTime(num, den)
		}
	case exif.FNumber:
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			return fmt.Sprintf("f/%.1f", float64(num)/float64(den))
		}
	case exif.FocalLength:
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			return formatDecimal(float64(num)/float64(den)) + " mm"
		}
	}

	return value(tag)
}

// ExposureTime formats an exposure as a fraction of a second, e.g. 1/125
func ExposureTime(num, den int64) string {
	switch {
	case num == 0:
		return "0"
	case num >= den:
		return formatDecimal(float64(num) / float64(den))
	case den%num == 0:
		return fmt.Sprintf("1/%d", den/num)
	default:
		return fmt.Sprintf("%d/%d", num, den)
	}
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

// value returns the natural JSON representation of a tag
func value(tag *tiff.Tag) interface{} {
	count := int(tag.Count)

	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return BinaryData
		}
		return strings.TrimRight(s, "\x00 ")
	case tiff.IntVal:
		values := make([]int64, 0, count)
		for i := 0; i < count; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				return BinaryData
			}
			values = append(values, v)
		}
		return single(values)
	case tiff.RatVal:
		values := make([]float64, 0, count)
		for i := 0; i < count; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return BinaryData
			}
			if den == 0 {
				values = append(values, 0)
				continue
			}
			values = append(values, float64(num)/float64(den))
		}
		return single(values)
	case tiff.FloatVal:
		values := make([]float64, 0, count)
		for i := 0; i < count; i++ {
			v, err := tag.Float(i)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return BinaryData
			}
			values = append(values, v)
		}
		return single(values)
	default:
		return BinaryData
	}
}

func single[T any](values []T) interface{} {
	if len(values) == 1 {
		return values[0]
	}

	return values
}
