// Package workflow coordinates a publishing run: gallery discovery, the
// run lock, per-image processing with bounded parallelism, gallery
// consolidation and the site index rewrite.
package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/gallery"
	"darkroom/internal/imageproc"
	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/render"
	"darkroom/internal/services"
	"darkroom/internal/site"
)

// Manager owns one publishing run over the configured source tree.
type Manager struct {
	cfg       *config.Config
	store     *records.Store
	builder   *imageproc.Builder
	galleries *gallery.Aggregator
	siteIndex *site.Aggregator
	logger    *slog.Logger
}

// NewManager wires the full pipeline for the given config.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	store := records.NewStore(cfg)
	return &Manager{
		cfg:       cfg,
		store:     store,
		builder:   imageproc.NewBuilder(cfg, store, logger),
		galleries: gallery.NewAggregator(cfg, store, logger),
		siteIndex: site.NewAggregator(store, logger),
		logger:    logging.WithComponent(logger, "workflow"),
	}
}

// GalleryStats is the per-gallery outcome of a run.
type GalleryStats struct {
	Gallery   string
	Processed int
	Skipped   int
	Failed    int
	// Err is set when the gallery as a whole could not be handled, for
	// example a missing or malformed descriptor.
	Err error
}

// Summary aggregates the outcome of one run.
type Summary struct {
	Galleries []GalleryStats
	Duration  time.Duration
}

// Totals sums image outcomes across all galleries.
func (s *Summary) Totals() (processed, skipped, failed int) {
	for _, g := range s.Galleries {
		processed += g.Processed
		skipped += g.Skipped
		failed += g.Failed
	}
	return processed, skipped, failed
}

// GalleriesFailed counts galleries that could not be handled at all.
func (s *Summary) GalleriesFailed() int {
	n := 0
	for _, g := range s.Galleries {
		if g.Err != nil {
			n++
		}
	}
	return n
}

// ExitCode classifies the run outcome: 0 clean, 2 with failed images,
// 3 with failed galleries, 4 when nothing succeeded at all.
func (s *Summary) ExitCode() int {
	failedGalleries := s.GalleriesFailed()
	if len(s.Galleries) > 0 && failedGalleries == len(s.Galleries) {
		return 4
	}
	if failedGalleries > 0 {
		return 3
	}
	if _, _, failed := s.Totals(); failed > 0 {
		return 2
	}
	return 0
}

// DiscoverGalleries lists source subdirectories containing at least one
// supported image, sorted by name.
func (m *Manager) DiscoverGalleries() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.SourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "discover", "read source directory", err)
	}

	var galleries []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		images, err := m.listImages(entry.Name())
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			m.logger.Debug("directory has no images, skipping",
				logging.String(logging.FieldGallery, entry.Name()))
			continue
		}
		galleries = append(galleries, entry.Name())
	}
	sort.Strings(galleries)
	return galleries, nil
}

// listImages returns the supported image files directly inside a gallery
// directory, sorted by filename.
func (m *Manager) listImages(galleryID string) ([]string, error) {
	dir := m.cfg.GalleryDir(galleryID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "discover", "read gallery directory", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !render.IsSupportedFile(entry.Name()) {
			continue
		}
		if fileutil.IsTempPath(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(images)
	return images, nil
}

// Run executes the pipeline for the named galleries, or all discovered
// galleries when the list is empty. Gallery consolidation and the site
// index rewrite always run, also when only skips occurred, so record
// edits propagate without image work.
func (m *Manager) Run(ctx context.Context, galleryIDs []string) (*Summary, error) {
	start := time.Now()

	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "run", "prepare output tree", err)
	}

	unlock, err := m.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := fileutil.SweepTempFiles(m.cfg.OutputPath); err != nil {
		m.logger.Warn("stale temp file sweep failed", logging.Error(err))
	}

	if len(galleryIDs) == 0 {
		if galleryIDs, err = m.DiscoverGalleries(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	var galleryRecords []records.GalleryRecord

	for _, galleryID := range galleryIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		stats, rec := m.runGallery(ctx, galleryID)
		summary.Galleries = append(summary.Galleries, stats)
		if rec != nil {
			galleryRecords = append(galleryRecords, *rec)
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if _, err := m.siteIndex.WriteIndex(galleryRecords); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	processed, skipped, failed := summary.Totals()
	m.logger.Info("run complete",
		logging.Int("galleries", len(summary.Galleries)),
		logging.Int("gallery_failures", summary.GalleriesFailed()),
		logging.Int("processed", processed),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

// Aggregate rebuilds gallery records and the site index for the named
// galleries without touching renditions.
func (m *Manager) Aggregate(ctx context.Context, galleryIDs []string) (*Summary, error) {
	start := time.Now()

	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "aggregate", "prepare output tree", err)
	}

	unlock, err := m.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if len(galleryIDs) == 0 {
		if galleryIDs, err = m.DiscoverGalleries(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	var galleryRecords []records.GalleryRecord
	for _, galleryID := range galleryIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		stats := GalleryStats{Gallery: galleryID}
		rec, err := m.aggregateGallery(galleryID)
		if err != nil {
			stats.Err = err
			m.logger.Error("gallery aggregation failed",
				logging.String(logging.FieldGallery, galleryID),
				logging.Error(err))
		} else {
			galleryRecords = append(galleryRecords, *rec)
		}
		summary.Galleries = append(summary.Galleries, stats)
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if _, err := m.siteIndex.WriteIndex(galleryRecords); err != nil {
		return summary, err
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// runGallery processes one gallery's images in parallel, then rebuilds
// its consolidated record. Image failures are counted, not propagated;
// descriptor or aggregation failures fail the gallery.
func (m *Manager) runGallery(ctx context.Context, galleryID string) (GalleryStats, *records.GalleryRecord) {
	stats := GalleryStats{Gallery: galleryID}

	desc, err := gallery.LoadDescriptor(m.cfg.GalleryDescriptorPath(galleryID))
	if err != nil {
		stats.Err = err
		m.logger.Error("gallery descriptor unusable",
			logging.String(logging.FieldGallery, galleryID),
			logging.Error(err))
		return stats, nil
	}

	m.processGalleryImages(ctx, galleryID, desc, &stats)
	if err := ctx.Err(); err != nil {
		return stats, nil
	}

	rec, err := m.galleries.Aggregate(galleryID, desc)
	if err != nil {
		stats.Err = err
		m.logger.Error("gallery aggregation failed",
			logging.String(logging.FieldGallery, galleryID),
			logging.Error(err))
		return stats, nil
	}
	return stats, rec
}

func (m *Manager) processGalleryImages(ctx context.Context, galleryID string, desc *gallery.Descriptor, stats *GalleryStats) {
	images, err := m.listImages(galleryID)
	if err != nil {
		stats.Err = err
		return
	}

	m.logger.Info("processing gallery",
		logging.String(logging.FieldGallery, galleryID),
		logging.Int("images", len(images)),
		logging.Bool("encrypted", desc.Encrypted))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.workers())

	for _, imagePath := range images {
		imagePath := imagePath
		group.Go(func() error {
			res, err := m.builder.Process(groupCtx, galleryID, desc, imagePath)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Skipped:
				stats.Skipped++
			case err == nil:
				stats.Processed++
			case groupCtx.Err() != nil:
				// Cancellation is not an image failure.
			default:
				stats.Failed++
				m.logger.Error("image failed",
					logging.String(logging.FieldGallery, galleryID),
					logging.String(logging.FieldImage, filepath.Base(imagePath)),
					logging.Error(err))
			}
			return nil
		})
	}
	// Workers only report errors through stats.
	_ = group.Wait()
}

// ProcessImages runs only the per-image pipeline for the named galleries,
// leaving consolidated records and the site index untouched.
func (m *Manager) ProcessImages(ctx context.Context, galleryIDs []string) (*Summary, error) {
	start := time.Now()

	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "process", "prepare output tree", err)
	}

	unlock, err := m.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := fileutil.SweepTempFiles(m.cfg.OutputPath); err != nil {
		m.logger.Warn("stale temp file sweep failed", logging.Error(err))
	}

	if len(galleryIDs) == 0 {
		if galleryIDs, err = m.DiscoverGalleries(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	for _, galleryID := range galleryIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		stats := GalleryStats{Gallery: galleryID}
		desc, err := gallery.LoadDescriptor(m.cfg.GalleryDescriptorPath(galleryID))
		if err != nil {
			stats.Err = err
			m.logger.Error("gallery descriptor unusable",
				logging.String(logging.FieldGallery, galleryID),
				logging.Error(err))
		} else {
			m.processGalleryImages(ctx, galleryID, desc, &stats)
		}
		summary.Galleries = append(summary.Galleries, stats)
	}

	summary.Duration = time.Since(start)
	return summary, ctx.Err()
}

func (m *Manager) aggregateGallery(galleryID string) (*records.GalleryRecord, error) {
	desc, err := gallery.LoadDescriptor(m.cfg.GalleryDescriptorPath(galleryID))
	if err != nil {
		return nil, err
	}
	return m.galleries.Aggregate(galleryID, desc)
}

// acquireLock takes the non-blocking run lock under the output tree.
func (m *Manager) acquireLock() (func(), error) {
	lock := flock.New(m.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock", "acquire run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock", "another run holds the lock", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("releasing run lock failed", logging.Error(err))
		}
	}, nil
}

func (m *Manager) workers() int {
	if m.cfg.Workers > 0 {
		return m.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}
