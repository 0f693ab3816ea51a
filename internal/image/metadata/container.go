package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"image/gif"
	"io"
	"math"
)

// container holds the structural properties read from the encoded upload
type container struct {
	info map[string]interface{}
	// exif is the raw EXIF payload, a TIFF stream optionally prefixed with "Exif\x00\x00"
	exif []byte
}

func readContainer(format string, data []byte) container {
	c := container{info: make(map[string]interface{})}

	switch format {
	case "JPEG":
		c.readJPEG(data)
	case "PNG":
		c.readPNG(data)
	case "WEBP":
		c.readWebP(data)
	case "GIF":
		c.readGIF(data)
	case "TIFF":
		c.exif = data
	}

	return c
}

var (
	jfifIdentifier  = []byte("JFIF\x00")
	exifIdentifier  = []byte("Exif\x00\x00")
	adobeIdentifier = []byte("Adobe")
)

func (c *container) readJPEG(data []byte) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return
	}

	for i := 2; i+4 <= len(data); {
		if data[i] != 0xff {
			return
		}

		marker := data[i+1]
		switch {
		case marker == 0xff:
			// Fill byte
			i++
			continue
		case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
			i += 2
			continue
		case marker == 0xd9 || marker == 0xda:
			// End of image or start of scan, no more headers
			return
		}

		length := int(binary.BigEndian.Uint16(data[i+2:]))
		if length < 2 || i+2+length > len(data) {
			return
		}
		segment := data[i+4 : i+2+length]

		switch {
		case marker == 0xe0 && bytes.HasPrefix(segment, jfifIdentifier) && len(segment) >= 12:
			c.info["jfif"] = int(segment[5])<<8 | int(segment[6])
			c.info["jfif_version"] = []int{int(segment[5]), int(segment[6])}
			c.info["jfif_unit"] = int(segment[7])
			c.info["jfif_density"] = []int{
				int(binary.BigEndian.Uint16(segment[8:])),
				int(binary.BigEndian.Uint16(segment[10:])),
			}
			if segment[7] == 1 {
				c.info["dpi"] = c.info["jfif_density"]
			}
		case marker == 0xe1 && bytes.HasPrefix(segment, exifIdentifier) && c.exif == nil:
			c.exif = segment
		case marker == 0xee && bytes.HasPrefix(segment, adobeIdentifier) && len(segment) >= 12:
			c.info["adobe"] = int(binary.BigEndian.Uint16(segment[5:]))
			c.info["adobe_transform"] = int(segment[11])
		case marker == 0xfe:
			c.info["comment"] = string(segment)
		case marker == 0xc2 || marker == 0xc6 || marker == 0xca || marker == 0xce:
			c.info["progressive"] = true
			c.info["progression"] = true
		}

		i += 2 + length
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func (c *container) readPNG(data []byte) {
	if !bytes.HasPrefix(data, pngSignature) {
		return
	}

	for i := len(pngSignature); i+8 <= len(data); {
		length := int(binary.BigEndian.Uint32(data[i:]))
		chunkType := string(data[i+4 : i+8])
		if length < 0 || i+12+length > len(data) {
			return
		}
		chunk := data[i+8 : i+8+length]

		switch chunkType {
		case "IHDR":
			if len(chunk) >= 13 && chunk[12] == 1 {
				c.info["interlace"] = 1
			}
		case "gAMA":
			if len(chunk) >= 4 {
				c.info["gamma"] = float64(binary.BigEndian.Uint32(chunk)) / 100000
			}
		case "pHYs":
			if len(chunk) >= 9 && chunk[8] == 1 {
				// Pixels per metre
				c.info["dpi"] = []float64{
					math.Round(float64(binary.BigEndian.Uint32(chunk)) * 0.0254),
					math.Round(float64(binary.BigEndian.Uint32(chunk[4:])) * 0.0254),
				}
			}
		case "sRGB":
			if len(chunk) >= 1 {
				c.info["srgb"] = int(chunk[0])
			}
		case "tRNS":
			c.info["transparency"] = true
		case "tEXt":
			if key, value, ok := bytes.Cut(chunk, []byte{0}); ok {
				c.info[string(key)] = latin1(value)
			}
		case "zTXt":
			if key, rest, ok := bytes.Cut(chunk, []byte{0}); ok && len(rest) > 0 {
				if text, err := inflate(rest[1:]); err == nil {
					c.info[string(key)] = latin1(text)
				}
			}
		case "iTXt":
			c.readITXt(chunk)
		case "eXIf":
			c.exif = chunk
		case "IEND":
			return
		}

		i += 12 + length
	}
}

// readITXt reads an international text chunk: keyword, compression flag and method,
// language tag, translated keyword, then UTF-8 text
func (c *container) readITXt(chunk []byte) {
	key, rest, ok := bytes.Cut(chunk, []byte{0})
	if !ok || len(rest) < 2 {
		return
	}

	compressed := rest[0] == 1
	rest = rest[2:]

	_, rest, ok = bytes.Cut(rest, []byte{0})
	if !ok {
		return
	}

	_, text, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return
	}

	if compressed {
		var err error
		if text, err = inflate(text); err != nil {
			return
		}
	}

	c.info[string(key)] = string(text)
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(io.LimitReader(r, 1<<20))
}

func latin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}

	return string(runes)
}

// VP8X feature flags
const (
	webpFlagAnimation = 0x02
	webpFlagXMP       = 0x04
	webpFlagEXIF      = 0x08
	webpFlagAlpha     = 0x10
	webpFlagICC       = 0x20
)

func (c *container) readWebP(data []byte) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return
	}

	frames := 0
	for i := 12; i+8 <= len(data); {
		fourCC := string(data[i : i+4])
		length := int(binary.LittleEndian.Uint32(data[i+4:]))
		if length < 0 || i+8+length > len(data) {
			break
		}
		chunk := data[i+8 : i+8+length]

		switch fourCC {
		case "VP8 ":
			c.info["compression"] = "lossy"
		case "VP8L":
			c.info["compression"] = "lossless"
		case "VP8X":
			if len(chunk) >= 1 {
				flags := chunk[0]
				c.info["alpha"] = flags&webpFlagAlpha != 0
				c.info["animated"] = flags&webpFlagAnimation != 0
				c.info["icc_profile"] = flags&webpFlagICC != 0
				c.info["xmp"] = flags&webpFlagXMP != 0
				c.info["has_exif"] = flags&webpFlagEXIF != 0
			}
		case "ANIM":
			if len(chunk) >= 6 {
				c.info["background"] = []int{int(chunk[2]), int(chunk[1]), int(chunk[0]), int(chunk[3])}
				c.info["loop"] = int(binary.LittleEndian.Uint16(chunk[4:]))
			}
		case "ANMF":
			frames++
		case "EXIF":
			c.exif = chunk
		}

		// Chunks are padded to an even length
		i += 8 + length + length&1
	}

	if frames > 0 {
		c.info["frames"] = frames
	}
}

func (c *container) readGIF(data []byte) {
	if len(data) < 6 {
		return
	}
	c.info["version"] = string(data[:6])

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return
	}

	c.info["frames"] = len(g.Image)
	c.info["background"] = int(g.BackgroundIndex)
	if g.LoopCount >= 0 {
		c.info["loop"] = g.LoopCount
	}
	if len(g.Delay) > 0 {
		// Delays are in hundredths of a second
		c.info["duration"] = g.Delay[0] * 10
	}
}
