package gallery

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/identity"
	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/services"
)

// Aggregator consolidates a gallery's per-image records into its
// index.json, cleaning up records whose source image has disappeared.
type Aggregator struct {
	cfg    *config.Config
	store  *records.Store
	logger *slog.Logger
}

// NewAggregator returns an aggregator over the given store.
func NewAggregator(cfg *config.Config, store *records.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		store:  store,
		logger: logging.WithComponent(logger, "gallery"),
	}
}

// Aggregate rebuilds and persists the consolidated record for one
// gallery. Image records whose source file no longer exists are removed
// together with their renditions before consolidation.
func (a *Aggregator) Aggregate(galleryID string, desc *Descriptor) (*records.GalleryRecord, error) {
	rec := &records.GalleryRecord{
		ID:          galleryID,
		Name:        galleryID,
		Title:       desc.Title,
		Location:    desc.Location,
		Description: desc.Description,
		Tags:        desc.Tags,
		Content:     desc.Content,
		Encrypted:   desc.Encrypted,
		Unlisted:    desc.Encrypted || desc.Unlisted,
		Images:      []records.ImageRecord{},
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	if ts, err := desc.ParseDate(); err != nil {
		return nil, err
	} else if !ts.IsZero() {
		rec.Date = ts.Format(dateLayout)
		rec.DisplayDate = ts.Format(displayDateLayout)
	}

	if desc.Password != "" {
		rec.PrivateGalleryID = identity.PrivateGalleryToken(galleryID, desc.Password)
		rec.PrivateGalleryIDHash = identity.TokenHash(rec.PrivateGalleryID)
	}

	images, err := a.store.LoadGalleryImages(galleryID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "aggregate", "load image records", err)
	}

	galleryDir := a.cfg.GalleryDir(galleryID)
	for _, img := range images {
		if _, err := os.Stat(filepath.Join(galleryDir, img.Filename)); os.IsNotExist(err) {
			if err := a.store.DeleteImage(galleryID, img.ID); err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "gallery", "aggregate", "remove orphaned image", err)
			}
			a.logger.Info("removed orphaned image",
				logging.String(logging.FieldGallery, galleryID),
				logging.String(logging.FieldImageID, img.ID),
				logging.String(logging.FieldImage, img.Filename))
			continue
		}
		rec.Images = append(rec.Images, img)
	}

	a.sortImages(galleryID, rec.Images)
	rec.Cover = resolveCover(desc.Cover, rec.Images)

	latest, err := fileutil.LatestModTimeInDir(galleryDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "aggregate", "scan gallery directory", err)
	}
	rec.LastUpdated = latest.Format(dateLayout)

	if err := a.store.SaveGallery(rec); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "aggregate", "save gallery record", err)
	}
	return rec, nil
}

// sortImages orders images newest first by capture time. Records without
// a capture time sort last and are flagged.
func (a *Aggregator) sortImages(galleryID string, images []records.ImageRecord) {
	for _, img := range images {
		if img.CaptureTime() == "" {
			a.logger.Warn("image record has no capture time",
				logging.String(logging.FieldGallery, galleryID),
				logging.String(logging.FieldImageID, img.ID))
		}
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].CaptureTime() > images[j].CaptureTime()
	})
}

// resolveCover picks the cover image: the descriptor's filename when it
// matches a processed image, otherwise the first image after sorting.
func resolveCover(coverFilename string, images []records.ImageRecord) *records.CoverRecord {
	if coverFilename != "" {
		for _, img := range images {
			if img.Filename == coverFilename {
				return img.Cover()
			}
		}
	}
	if len(images) > 0 {
		return images[0].Cover()
	}
	return nil
}
