// Package imageproc runs the per-image pipeline: identity derivation,
// staleness check, EXIF extraction, sidecar merge, rendition generation
// and metadata persistence. For encrypted galleries the renditions are
// ciphered in memory, a plaintext rendition never reaches disk.
package imageproc

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"darkroom/internal/config"
	"darkroom/internal/crypt"
	"darkroom/internal/exifmeta"
	"darkroom/internal/gallery"
	"darkroom/internal/identity"
	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/render"
	"darkroom/internal/services"
	"darkroom/internal/staleness"
)

// Builder processes single source images into renditions plus a record.
// A Builder is safe for concurrent use; each Process call touches only
// its own image's outputs.
type Builder struct {
	cfg       *config.Config
	store     *records.Store
	extractor *exifmeta.Extractor
	checker   *staleness.Checker
	logger    *slog.Logger
}

// NewBuilder wires a builder over the given store.
func NewBuilder(cfg *config.Config, store *records.Store, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:       cfg,
		store:     store,
		extractor: exifmeta.NewExtractor(cfg.EXIFFields, logger),
		checker:   staleness.NewChecker(cfg),
		logger:    logging.WithComponent(logger, "image"),
	}
}

// Result reports the outcome of processing one image.
type Result struct {
	Record *records.ImageRecord
	// Skipped is true when every output was already current and the
	// record was loaded from disk instead of rebuilt.
	Skipped bool
}

// Process builds all renditions and the metadata record for one source
// image, or skips it entirely when the outputs are current. Renditions
// written before a failure are removed again so outputs stay all-or-nothing.
func (b *Builder) Process(ctx context.Context, galleryID string, desc *gallery.Descriptor, imagePath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename := filepath.Base(imagePath)
	imageID := identity.ForGallery(galleryID, filename, desc.Encrypted)

	stale, err := b.checker.NeedsReprocessing(galleryID, imageID, imagePath)
	if err != nil {
		return nil, err
	}
	if !stale {
		if rec, err := b.store.LoadImage(galleryID, imageID); err == nil {
			b.logger.Debug("outputs current, skipping",
				logging.String(logging.FieldGallery, galleryID),
				logging.String(logging.FieldImage, filename),
				logging.String(logging.FieldImageID, imageID))
			return &Result{Record: rec, Skipped: true}, nil
		}
		// Unreadable record despite fresh mtimes: rebuild it.
	}

	attrs, err := b.extractor.Extract(imagePath)
	if err != nil {
		return nil, err
	}
	sidecar, err := exifmeta.LoadSidecar(imagePath)
	if err != nil {
		return nil, err
	}
	img, err := render.Open(imagePath)
	if err != nil {
		return nil, err
	}

	rec := b.newRecord(galleryID, imageID, filename, attrs, sidecar)

	if err := b.writeRenditions(ctx, galleryID, imageID, desc, render.Orient(img, attrs.Orientation)); err != nil {
		return nil, err
	}
	if err := b.store.SaveImage(galleryID, rec); err != nil {
		b.removeRenditions(galleryID, imageID)
		return nil, services.Wrap(services.ErrImage, "image", "persist", "save image record", err)
	}

	b.logger.Info("processed image",
		logging.String(logging.FieldGallery, galleryID),
		logging.String(logging.FieldImage, filename),
		logging.String(logging.FieldImageID, imageID),
		logging.Int("renditions", len(b.cfg.ImageSizes)),
		logging.Bool("encrypted", desc.Encrypted))
	return &Result{Record: rec}, nil
}

func (b *Builder) newRecord(galleryID, imageID, filename string, attrs *exifmeta.Attributes, sidecar *exifmeta.Sidecar) *records.ImageRecord {
	title := sidecar.Title
	if title == "" {
		title = exifmeta.DefaultTitle(filename)
	}

	paths := make(map[string]string, len(b.cfg.ImageSizes))
	for sizeClass := range b.cfg.ImageSizes {
		paths[sizeClass] = fmt.Sprintf("/galleries/%s/%s/%s.jpg", galleryID, sizeClass, imageID)
	}

	return &records.ImageRecord{
		ID:       imageID,
		Filename: filename,
		URL:      fmt.Sprintf("/galleries/%s/%s.html", galleryID, imageID),
		Title:    title,
		Caption:  sidecar.Caption,
		Tags:     []string(sidecar.Tags),
		Lat:      attrs.Lat,
		Lon:      attrs.Lon,
		EXIF:     attrs.EXIF,
		Paths:    paths,
	}
}

// writeRenditions produces every size class from the oriented master.
// With encryption enabled the JPEG bytes are ciphered before the atomic
// write; on any failure the renditions written so far are removed.
func (b *Builder) writeRenditions(ctx context.Context, galleryID, imageID string, desc *gallery.Descriptor, oriented image.Image) error {
	var key, iv []byte
	if desc.Encrypted {
		key, iv = crypt.Params(galleryID, imageID, desc.Password)
	}

	var written []string
	fail := func(err error) error {
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				b.logger.Debug("rendition cleanup failed", logging.Error(rmErr))
			}
		}
		return err
	}

	for _, sizeClass := range sortedSizeClasses(b.cfg.ImageSizes) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		data, err := render.EncodeJPEG(render.Fit(oriented, b.cfg.ImageSizes[sizeClass]), b.cfg.JPGQuality)
		if err != nil {
			return fail(err)
		}
		if desc.Encrypted {
			if data, err = crypt.Encrypt(data, key, iv); err != nil {
				return fail(services.Wrap(services.ErrEncryption, "image", "encrypt", "encrypt rendition", err))
			}
		}

		path := b.cfg.RenditionPath(galleryID, sizeClass, imageID)
		if err := render.WriteRendition(path, data); err != nil {
			return fail(err)
		}
		written = append(written, path)
		b.logger.Debug("wrote rendition",
			logging.String(logging.FieldImageID, imageID),
			logging.String(logging.FieldSizeClass, sizeClass),
			logging.Int("bytes", len(data)))
	}
	return nil
}

func (b *Builder) removeRenditions(galleryID, imageID string) {
	for sizeClass := range b.cfg.ImageSizes {
		if err := os.Remove(b.cfg.RenditionPath(galleryID, sizeClass, imageID)); err != nil && !os.IsNotExist(err) {
			b.logger.Debug("rendition cleanup failed", logging.Error(err))
		}
	}
}

func sortedSizeClasses(sizes map[string]int) []string {
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
