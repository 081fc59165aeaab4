// Package exifmeta extracts camera metadata from source images and loads
// the optional per-image YAML sidecars. Extraction is best effort: an
// image without a usable EXIF block still yields attributes, with the
// capture timestamp synthesized from the file's modification time so every
// image sorts deterministically.
package exifmeta

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/services"
)

// Attributes is the extracted metadata of one image.
type Attributes struct {
	// EXIF maps allow-listed field names to display-formatted values.
	// DateTimeOriginal is always present, synthesized from mtime when the
	// image carries none.
	EXIF map[string]string
	// Lat and Lon are decimal degrees, nil without a complete GPS block.
	Lat *float64
	Lon *float64
	// Orientation is the raw EXIF orientation, 1 when absent or invalid.
	Orientation int
}

// Extractor reads EXIF blocks and formats the configured field subset.
type Extractor struct {
	fields []string
	logger *slog.Logger
}

// NewExtractor returns an extractor surfacing only the allow-listed fields.
func NewExtractor(fields []string, logger *slog.Logger) *Extractor {
	return &Extractor{
		fields: fields,
		logger: logging.WithComponent(logger, "exif"),
	}
}

// Extract reads the image's EXIF block and returns formatted attributes.
// Decode failures degrade to the mtime fallback rather than failing the
// image; only filesystem errors are returned.
func (e *Extractor) Extract(path string) (*Attributes, error) {
	attrs := &Attributes{
		EXIF:        make(map[string]string),
		Orientation: 1,
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrImage, "exif", "extract", "open image", err)
	}
	defer f.Close()

	x, decodeErr := exif.Decode(f)
	if decodeErr != nil {
		e.logger.Debug("no usable EXIF block",
			logging.String(logging.FieldImage, path),
			logging.Error(decodeErr))
	} else {
		for _, field := range e.fields {
			if value, ok := formatField(x, field); ok {
				attrs.EXIF[field] = value
			}
		}
		if orientation, err := intValue(x, exif.Orientation); err == nil && orientation >= 1 && orientation <= 8 {
			attrs.Orientation = orientation
		}
		if lat, lon, err := x.LatLong(); err == nil {
			attrs.Lat = &lat
			attrs.Lon = &lon
		}
	}

	if attrs.EXIF[records.FieldDateTimeOriginal] == "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrImage, "exif", "extract", "stat image", err)
		}
		attrs.EXIF[records.FieldDateTimeOriginal] = info.ModTime().Format(records.EXIFTimestampLayout)
	}
	return attrs, nil
}

func formatField(x *exif.Exif, field string) (string, bool) {
	name := exif.FieldName(field)
	switch name {
	case exif.Make, exif.Model, exif.LensModel, exif.DateTimeOriginal:
		return stringValue(x, name)
	case exif.FocalLength:
		return formatRational(x, name, "%.1f mm")
	case exif.FNumber:
		return formatRational(x, name, "f/%.1f")
	case exif.ExposureBiasValue:
		return formatRational(x, name, "%.1f EV")
	case exif.ExposureTime:
		return formatExposureTime(x)
	case exif.ISOSpeedRatings, exif.Orientation:
		v, err := intValue(x, name)
		if err != nil {
			return "", false
		}
		return strconv.Itoa(v), true
	case exif.MeteringMode:
		return formatEnum(x, name, meteringModeNames)
	case exif.ExposureProgram:
		return formatEnum(x, name, exposureProgramNames)
	default:
		return stringValue(x, name)
	}
}

func stringValue(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.TrimRight(strings.TrimSpace(s), "\x00")
	return s, s != ""
}

func intValue(x *exif.Exif, name exif.FieldName) (int, error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

func ratValue(x *exif.Exif, name exif.FieldName) (num, den int64, err error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, 0, err
	}
	return tag.Rat2(0)
}

func formatRational(x *exif.Exif, name exif.FieldName, layout string) (string, bool) {
	num, den, err := ratValue(x, name)
	if err != nil || den == 0 {
		return "", false
	}
	return fmt.Sprintf(layout, float64(num)/float64(den)), true
}

// formatExposureTime renders shutter speed as a reduced fraction, the way
// photographers read it: 10/2000 becomes 1/200 and 2 seconds become 2/1.
func formatExposureTime(x *exif.Exif) (string, bool) {
	num, den, err := ratValue(x, exif.ExposureTime)
	if err != nil || den == 0 || num < 0 {
		return "", false
	}
	if num > 0 {
		g := gcd(num, den)
		num, den = num/g, den/g
	}
	return fmt.Sprintf("%d/%d", num, den), true
}

func formatEnum(x *exif.Exif, name exif.FieldName, names map[int]string) (string, bool) {
	v, err := intValue(x, name)
	if err != nil {
		return "", false
	}
	if label, ok := names[v]; ok {
		return label, true
	}
	return strconv.Itoa(v), true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

var meteringModeNames = map[int]string{
	0:   "UNKNOWN",
	1:   "AVERAGE",
	2:   "CENTER_WEIGHTED_AVERAGE",
	3:   "SPOT",
	4:   "MULTI_SPOT",
	5:   "PATTERN",
	6:   "PARTIAL",
	255: "OTHER",
}

var exposureProgramNames = map[int]string{
	0: "NOT_PROGRAMMED",
	1: "MANUAL",
	2: "NORMAL_PROGRAM",
	3: "APERTURE_PRIORITY",
	4: "SHUTTER_PRIORITY",
	5: "CREATIVE_PROGRAM",
	6: "ACTION_PROGRAM",
	7: "PORTRAIT_MODE",
	8: "LANDSCAPE_MODE",
}
