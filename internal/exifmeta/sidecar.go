package exifmeta

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"darkroom/internal/services"
)

// Sidecar is the optional per-image YAML file sitting next to the source
// image, named after the image with a .yaml extension.
type Sidecar struct {
	Title   string  `yaml:"title"`
	Caption string  `yaml:"caption"`
	Tags    tagList `yaml:"tags"`
}

// tagList accepts either a YAML sequence or a single scalar, so
// "tags: sunset" and "tags: [sunset, beach]" both parse.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*t = tagList{single}
		return nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*t = tagList(many)
	return nil
}

// LoadSidecar reads the sidecar for imagePath. A missing sidecar is not an
// error: it yields an empty Sidecar with a non-nil tag list.
func LoadSidecar(imagePath string) (*Sidecar, error) {
	sidecarPath := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".yaml"

	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Sidecar{Tags: tagList{}}, nil
		}
		return nil, services.Wrap(services.ErrImage, "sidecar", "load", "read sidecar", err)
	}

	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, services.Wrap(services.ErrImage, "sidecar", "load", "parse sidecar", err)
	}
	if sc.Tags == nil {
		sc.Tags = tagList{}
	}
	return &sc, nil
}

// DefaultTitle derives a display title from an image filename: extension
// stripped, underscores become spaces, words title-cased. A fresh caser
// per call, cases.Caser is not safe for concurrent use.
func DefaultTitle(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return cases.Title(language.English).String(strings.ReplaceAll(stem, "_", " "))
}
