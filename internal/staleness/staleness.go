// Package staleness decides whether an image's persisted outputs are
// current. The check is conservative: an image is reprocessed whenever any
// input (source file, runtime config, gallery descriptor) is newer than
// any output (renditions, metadata record), or when any output is missing.
package staleness

import (
	"os"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/services"
)

// Checker compares input and output modification times for one config.
type Checker struct {
	cfg *config.Config
}

// NewChecker returns a checker bound to the given config.
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// NeedsReprocessing reports whether the image at imagePath must be
// rebuilt. The config file and the gallery descriptor count as inputs, so
// touching either reprocesses the whole gallery.
func (c *Checker) NeedsReprocessing(galleryID, imageID, imagePath string) (bool, error) {
	newestInput, err := fileutil.LatestModTime(
		imagePath,
		c.cfg.Path(),
		c.cfg.GalleryDescriptorPath(galleryID),
	)
	if err != nil {
		return true, services.Wrap(services.ErrImage, "staleness", "check", "stat inputs", err)
	}

	for sizeClass := range c.cfg.ImageSizes {
		if stale(c.cfg.RenditionPath(galleryID, sizeClass, imageID), newestInput) {
			return true, nil
		}
	}
	return stale(c.cfg.ImageRecordPath(galleryID, imageID), newestInput), nil
}

// stale reports whether the output at path is missing or older than the
// newest input. Stat errors count as stale.
func stale(path string, newestInput time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.ModTime().Before(newestInput)
}
