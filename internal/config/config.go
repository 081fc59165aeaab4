package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

//go:embed sample_config.yaml
var sampleConfig string

// Config encapsulates all configuration values for a pipeline run. It is
// constructed once by Load and passed explicitly into every component; there
// is no ambient global configuration state.
type Config struct {
	// SourcePath is the directory holding one subdirectory per gallery.
	SourcePath string `yaml:"source_path" env:"DARKROOM_SOURCE_PATH"`
	// OutputPath is the root of the generated tree (metadata/ and public_html/).
	OutputPath string `yaml:"output_path" env:"DARKROOM_OUTPUT_PATH"`
	// ImageSizes maps size-class names to the maximum dimension in pixels.
	ImageSizes map[string]int `yaml:"image_sizes"`
	// JPGQuality is the JPEG encoder quality (1-100) for every rendition.
	JPGQuality int `yaml:"jpg_quality" env:"DARKROOM_JPG_QUALITY"`
	// EXIFFields is the allow-list of EXIF fields surfaced in image records.
	EXIFFields []string `yaml:"exif_fields"`
	// Workers bounds per-image parallelism; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" env:"DARKROOM_WORKERS"`

	LogLevel  string `yaml:"log_level" env:"DARKROOM_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"DARKROOM_LOG_FORMAT"`

	// path is the resolved location of the loaded config file. Its
	// modification time is a staleness input for every image.
	path string
}

// DefaultConfigPath returns the absolute path of the user-level config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/darkroom/config.yaml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is a
// configuration error: the pipeline never runs on implicit settings.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if err := cleanenv.ReadConfig(resolved, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.path = resolved

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", fmt.Errorf("stat config: %w", err)
		}
		return expanded, nil
	}

	projectPath, err := filepath.Abs("config.yaml")
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, nil
	}

	return "", fmt.Errorf("no config file found (looked for %s and %s; create one with 'darkroom config init')", projectPath, defaultPath)
}

// Path returns the resolved location of the loaded configuration file.
func (c *Config) Path() string {
	return c.path
}

// GalleryDir returns the source directory of the named gallery.
func (c *Config) GalleryDir(galleryID string) string {
	return filepath.Join(c.SourcePath, galleryID)
}

// GalleryDescriptorPath returns the gallery.yaml location for a gallery.
func (c *Config) GalleryDescriptorPath(galleryID string) string {
	return filepath.Join(c.GalleryDir(galleryID), "gallery.yaml")
}

// MetadataDir returns the per-gallery metadata directory.
func (c *Config) MetadataDir(galleryID string) string {
	return filepath.Join(c.OutputPath, "metadata", galleryID)
}

// ImageRecordPath returns the persisted JSON record location for an image.
func (c *Config) ImageRecordPath(galleryID, imageID string) string {
	return filepath.Join(c.MetadataDir(galleryID), imageID+".json")
}

// GalleryIndexPath returns the consolidated gallery record location.
func (c *Config) GalleryIndexPath(galleryID string) string {
	return filepath.Join(c.MetadataDir(galleryID), "index.json")
}

// SiteIndexPath returns the site-wide index location.
func (c *Config) SiteIndexPath() string {
	return filepath.Join(c.OutputPath, "metadata", "galleries.json")
}

// RenditionDir returns the output directory for one size class of a gallery.
func (c *Config) RenditionDir(galleryID, sizeClass string) string {
	return filepath.Join(c.OutputPath, "public_html", "galleries", galleryID, sizeClass)
}

// RenditionPath returns the output location of one rendition.
func (c *Config) RenditionPath(galleryID, sizeClass, imageID string) string {
	return filepath.Join(c.RenditionDir(galleryID, sizeClass), imageID+".jpg")
}

// LockPath returns the location of the run lock guarding the output tree.
func (c *Config) LockPath() string {
	return filepath.Join(c.OutputPath, ".darkroom.lock")
}

// EnsureDirectories creates the output roots needed before processing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.OutputPath,
		filepath.Join(c.OutputPath, "metadata"),
		filepath.Join(c.OutputPath, "public_html", "galleries"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
