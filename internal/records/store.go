package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
)

// Store persists and loads records in the configured output tree. All
// writes are atomic temp-then-rename so downstream consumers never observe
// partial JSON.
type Store struct {
	cfg *config.Config
}

// NewStore returns a store rooted at the config's output tree.
func NewStore(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}

// SaveImage persists one image record under metadata/{gallery}/{id}.json.
func (s *Store) SaveImage(galleryID string, rec *ImageRecord) error {
	return s.writeJSON(s.cfg.ImageRecordPath(galleryID, rec.ID), rec)
}

// LoadImage reads one persisted image record.
func (s *Store) LoadImage(galleryID, imageID string) (*ImageRecord, error) {
	var rec ImageRecord
	if err := readJSON(s.cfg.ImageRecordPath(galleryID, imageID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadGalleryImages reads every persisted image record of a gallery. The
// gallery's own index.json and staging leftovers are skipped. A missing
// metadata directory yields an empty slice: the gallery simply has no
// processed images yet.
func (s *Store) LoadGalleryImages(galleryID string) ([]ImageRecord, error) {
	dir := s.cfg.MetadataDir(galleryID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata directory %q: %w", dir, err)
	}

	var recs []ImageRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "index.json" || !strings.HasSuffix(name, ".json") {
			continue
		}
		if fileutil.IsTempPath(name) {
			continue
		}
		var rec ImageRecord
		if err := readJSON(filepath.Join(dir, name), &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// DeleteImage removes an image's JSON record and every one of its
// renditions. Used by orphan cleanup when the source file disappears.
func (s *Store) DeleteImage(galleryID, imageID string) error {
	if err := removeIfExists(s.cfg.ImageRecordPath(galleryID, imageID)); err != nil {
		return err
	}
	for sizeClass := range s.cfg.ImageSizes {
		if err := removeIfExists(s.cfg.RenditionPath(galleryID, sizeClass, imageID)); err != nil {
			return err
		}
	}
	return nil
}

// SaveGallery persists the consolidated gallery record as index.json.
func (s *Store) SaveGallery(rec *GalleryRecord) error {
	return s.writeJSON(s.cfg.GalleryIndexPath(rec.ID), rec)
}

// LoadGallery reads a persisted gallery record.
func (s *Store) LoadGallery(galleryID string) (*GalleryRecord, error) {
	var rec GalleryRecord
	if err := readJSON(s.cfg.GalleryIndexPath(galleryID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadGalleries reads every persisted gallery record under the metadata
// tree. Gallery directories without an index.json have not been
// consolidated yet and are skipped. A missing metadata tree yields an
// empty slice.
func (s *Store) LoadGalleries() ([]GalleryRecord, error) {
	root := filepath.Dir(s.cfg.SiteIndexPath())
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata tree %q: %w", root, err)
	}

	var recs []GalleryRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var rec GalleryRecord
		if err := readJSON(s.cfg.GalleryIndexPath(entry.Name()), &rec); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SaveSiteIndex persists the site-wide index as galleries.json.
func (s *Store) SaveSiteIndex(index *SiteIndex) error {
	return s.writeJSON(s.cfg.SiteIndexPath(), index)
}

func (s *Store) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	data = append(data, '\n')
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

func readJSON(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
