package config

const (
	defaultJPGQuality = 85
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
)

// defaultEXIFFields is the allow-list of EXIF fields surfaced in image
// records when the config file does not override it.
var defaultEXIFFields = []string{
	"Make",
	"Model",
	"LensModel",
	"DateTimeOriginal",
	"FocalLength",
	"FNumber",
	"ISOSpeedRatings",
	"ExposureTime",
	"ExposureBiasValue",
	"MeteringMode",
	"ExposureProgram",
	"Orientation",
}

// defaultImageSizes is the rendition set produced when the config file does
// not override it: a grid thumbnail, a gallery cover, and the full view.
var defaultImageSizes = map[string]int{
	"thumbnail": 300,
	"cover":     800,
	"full":      2000,
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	sizes := make(map[string]int, len(defaultImageSizes))
	for name, max := range defaultImageSizes {
		sizes[name] = max
	}
	fields := make([]string, len(defaultEXIFFields))
	copy(fields, defaultEXIFFields)

	return Config{
		ImageSizes: sizes,
		JPGQuality: defaultJPGQuality,
		EXIFFields: fields,
		LogLevel:   defaultLogLevel,
		LogFormat:  defaultLogFormat,
	}
}
