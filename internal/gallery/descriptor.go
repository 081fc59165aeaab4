// Package gallery loads gallery descriptors and consolidates per-image
// records into gallery records.
package gallery

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"darkroom/internal/services"
)

// DescriptorFilename is the per-gallery configuration file naming a
// directory as a gallery.
const DescriptorFilename = "gallery.yaml"

// Persisted gallery timestamp layouts.
const (
	dateLayout        = "2006:01:02 15:04:05"
	displayDateLayout = "Monday, January 02, 2006"
)

// descriptorDateLayouts are the accepted forms of the descriptor's date
// key, tried in order.
var descriptorDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Descriptor is the gallery.yaml contents. A password makes the gallery
// token-protected; encrypted additionally ciphers every rendition and
// forces the gallery unlisted.
type Descriptor struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Location    string   `yaml:"location"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Content     string   `yaml:"content"`
	Cover       string   `yaml:"cover"`
	Password    string   `yaml:"password"`
	Unlisted    bool     `yaml:"unlisted"`
	Encrypted   bool     `yaml:"encrypted"`
}

// LoadDescriptor reads and validates a gallery.yaml. A missing or
// malformed descriptor is a configuration error: the gallery cannot be
// processed at all.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "descriptor", "read gallery.yaml", err)
	}

	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "descriptor", "parse gallery.yaml", err)
	}
	if desc.Encrypted && desc.Password == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "descriptor", "encrypted gallery requires a password", nil)
	}
	if desc.Tags == nil {
		desc.Tags = []string{}
	}
	return &desc, nil
}

// ParseDate parses the descriptor's date key. An empty date is allowed
// and yields a zero time.
func (d *Descriptor) ParseDate() (time.Time, error) {
	if d.Date == "" {
		return time.Time{}, nil
	}
	for _, layout := range descriptorDateLayouts {
		if ts, err := time.Parse(layout, d.Date); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, services.Wrap(services.ErrConfiguration, "gallery", "descriptor",
		fmt.Sprintf("unrecognized date %q", d.Date), nil)
}
