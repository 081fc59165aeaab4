package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"darkroom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string

	imageSizes map[string]int
	jpgQuality int
	workers    int
	extraYAML  []string
}

// NewConfig writes a real config.yaml into a per-test temp directory and
// loads it through config.Load, so tests exercise the same code path as
// production and the config file's mtime participates in staleness checks.
// Source and output directories are created under the same temp root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	builder := &configBuilder{
		t:       t,
		baseDir: base,
		imageSizes: map[string]int{
			"thumbnail": 120,
			"full":      600,
		},
		jpgQuality: 85,
	}
	for _, opt := range opts {
		opt(builder)
	}

	sourceDir := filepath.Join(base, "source")
	outputDir := filepath.Join(base, "output")
	for _, dir := range []string{sourceDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "source_path: %s\n", sourceDir)
	fmt.Fprintf(&sb, "output_path: %s\n", outputDir)
	sb.WriteString("image_sizes:\n")
	names := make([]string, 0, len(builder.imageSizes))
	for name := range builder.imageSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s: %d\n", name, builder.imageSizes[name])
	}
	fmt.Fprintf(&sb, "jpg_quality: %d\n", builder.jpgQuality)
	fmt.Fprintf(&sb, "workers: %d\n", builder.workers)
	for _, extra := range builder.extraYAML {
		sb.WriteString(extra)
		sb.WriteString("\n")
	}

	configPath := filepath.Join(base, "config.yaml")
	if err := os.WriteFile(configPath, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	return cfg
}

// WithImageSizes overrides the rendition size classes of the test config.
func WithImageSizes(sizes map[string]int) ConfigOption {
	return func(b *configBuilder) {
		b.imageSizes = sizes
	}
}

// WithJPGQuality overrides the JPEG quality of the test config.
func WithJPGQuality(quality int) ConfigOption {
	return func(b *configBuilder) {
		b.jpgQuality = quality
	}
}

// WithWorkers overrides the per-image parallelism of the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.workers = workers
	}
}

// WithYAML appends raw YAML lines to the generated config file.
func WithYAML(lines string) ConfigOption {
	return func(b *configBuilder) {
		b.extraYAML = append(b.extraYAML, lines)
	}
}

// WriteGalleryDescriptor writes a gallery.yaml into the gallery's source
// directory, creating the directory if needed, and returns the gallery dir.
func WriteGalleryDescriptor(t testing.TB, cfg *config.Config, galleryID, body string) string {
	t.Helper()
	dir := cfg.GalleryDir(galleryID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir gallery %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gallery.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write gallery descriptor: %v", err)
	}
	return dir
}
