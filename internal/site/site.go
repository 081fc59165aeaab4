// Package site builds the site-wide gallery index. Every run rewrites
// galleries.json from the full set of consolidated gallery records, so a
// run restricted to a few galleries still publishes the complete
// inventory.
package site

import (
	"log/slog"
	"sort"
	"time"

	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/services"
)

// Aggregator writes galleries.json from consolidated gallery records.
type Aggregator struct {
	store  *records.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator returns a site-index aggregator over the given store.
func NewAggregator(store *records.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logging.WithComponent(logger, "site"),
		now:    time.Now,
	}
}

// WriteIndex persists the site index, galleries ordered newest first by
// gallery date. The given records are overlaid onto every gallery record
// already persisted in the metadata tree, so rebuilding a subset of
// galleries never drops the rest from the index. Unlisted and encrypted
// galleries are included; hiding them is the renderer's concern, the
// index is the complete inventory.
func (a *Aggregator) WriteIndex(galleries []records.GalleryRecord) (*records.SiteIndex, error) {
	persisted, err := a.store.LoadGalleries()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "site", "index", "load persisted gallery records", err)
	}

	merged := make(map[string]records.GalleryRecord, len(persisted)+len(galleries))
	for _, rec := range persisted {
		merged[rec.ID] = rec
	}
	for _, rec := range galleries {
		merged[rec.ID] = rec
	}

	sorted := make([]records.GalleryRecord, 0, len(merged))
	for _, rec := range merged {
		sorted = append(sorted, rec)
	}
	// Dates share a fixed-width layout, so lexicographic order is
	// chronological order. Ties fall back to gallery ID to keep the
	// index stable across runs.
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].ID < sorted[j].ID
	})

	index := &records.SiteIndex{
		LastUpdated: a.now().UTC().Format(time.RFC3339),
		Galleries:   sorted,
	}
	if err := a.store.SaveSiteIndex(index); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "site", "index", "save site index", err)
	}

	a.logger.Info("wrote site index", logging.Int("galleries", len(sorted)))
	return index, nil
}
