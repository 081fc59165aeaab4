package gallery_test

import (
	"os"
	"path/filepath"
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/gallery"
	"darkroom/internal/identity"
	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/testsupport"
)

func imageRecord(id, filename, captureTime string) *records.ImageRecord {
	return &records.ImageRecord{
		ID:       id,
		Filename: filename,
		Title:    filename,
		Tags:     []string{},
		EXIF:     map[string]string{records.FieldDateTimeOriginal: captureTime},
		Paths: map[string]string{
			"thumbnail": "/galleries/trip/thumbnail/" + id + ".jpg",
		},
	}
}

func seedImage(t *testing.T, cfg *config.Config, store *records.Store, galleryID string, rec *records.ImageRecord) {
	t.Helper()
	if err := store.SaveImage(galleryID, rec); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	src := filepath.Join(cfg.GalleryDir(galleryID), rec.Filename)
	if err := os.WriteFile(src, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write source image: %v", err)
	}
}

func TestAggregateSortsAndPicksCover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\ndate: 2023-07-01\n")

	seedImage(t, cfg, store, "trip", imageRecord("111111111111", "a.jpg", "2023:07:01 08:00:00"))
	seedImage(t, cfg, store, "trip", imageRecord("222222222222", "b.jpg", "2023:07:02 08:00:00"))
	seedImage(t, cfg, store, "trip", imageRecord("333333333333", "c.jpg", "2023:07:01 20:00:00"))

	agg := gallery.NewAggregator(cfg, store, logging.NewNop())
	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := agg.Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	var order []string
	for _, img := range rec.Images {
		order = append(order, img.Filename)
	}
	if len(order) != 3 || order[0] != "b.jpg" || order[1] != "c.jpg" || order[2] != "a.jpg" {
		t.Fatalf("sort order = %v", order)
	}

	if rec.Cover == nil || rec.Cover.Filename != "b.jpg" {
		t.Fatalf("cover = %+v, want first sorted image", rec.Cover)
	}
	if rec.Date != "2023:07:01 00:00:00" {
		t.Fatalf("date = %q", rec.Date)
	}
	if rec.DisplayDate != "Saturday, July 01, 2023" {
		t.Fatalf("display date = %q", rec.DisplayDate)
	}
	if rec.LastUpdated == "" {
		t.Fatal("last_updated empty")
	}

	// The record is persisted as index.json.
	loaded, err := store.LoadGallery("trip")
	if err != nil {
		t.Fatalf("LoadGallery failed: %v", err)
	}
	if len(loaded.Images) != 3 {
		t.Fatalf("persisted image count = %d", len(loaded.Images))
	}
}

func TestAggregateExplicitCover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\ncover: a.jpg\n")

	seedImage(t, cfg, store, "trip", imageRecord("111111111111", "a.jpg", "2023:07:01 08:00:00"))
	seedImage(t, cfg, store, "trip", imageRecord("222222222222", "b.jpg", "2023:07:02 08:00:00"))

	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := gallery.NewAggregator(cfg, store, logging.NewNop()).Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if rec.Cover == nil || rec.Cover.Filename != "a.jpg" {
		t.Fatalf("cover = %+v, want explicit a.jpg", rec.Cover)
	}
}

func TestAggregateCoverFallbackWhenNameUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\ncover: missing.jpg\n")

	seedImage(t, cfg, store, "trip", imageRecord("111111111111", "a.jpg", "2023:07:01 08:00:00"))

	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := gallery.NewAggregator(cfg, store, logging.NewNop()).Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if rec.Cover == nil || rec.Cover.Filename != "a.jpg" {
		t.Fatalf("cover = %+v, want fallback a.jpg", rec.Cover)
	}
}

func TestAggregateCleansOrphans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\n")

	seedImage(t, cfg, store, "trip", imageRecord("111111111111", "a.jpg", "2023:07:01 08:00:00"))

	// Record without a source file, plus a leftover rendition.
	orphan := imageRecord("222222222222", "gone.jpg", "2023:07:02 08:00:00")
	if err := store.SaveImage("trip", orphan); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	renditionPath := cfg.RenditionPath("trip", "thumbnail", orphan.ID)
	if err := os.MkdirAll(filepath.Dir(renditionPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(renditionPath, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write rendition: %v", err)
	}

	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := gallery.NewAggregator(cfg, store, logging.NewNop()).Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(rec.Images) != 1 || rec.Images[0].Filename != "a.jpg" {
		t.Fatalf("images = %+v", rec.Images)
	}
	if _, err := os.Stat(cfg.ImageRecordPath("trip", orphan.ID)); !os.IsNotExist(err) {
		t.Fatal("orphan record still present")
	}
	if _, err := os.Stat(renditionPath); !os.IsNotExist(err) {
		t.Fatal("orphan rendition still present")
	}
}

func TestAggregatePasswordDerivesToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\npassword: secret\nencrypted: true\n")

	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := gallery.NewAggregator(cfg, store, logging.NewNop()).Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	wantToken := identity.PrivateGalleryToken("trip", "secret")
	if rec.PrivateGalleryID != wantToken {
		t.Fatalf("token = %q, want %q", rec.PrivateGalleryID, wantToken)
	}
	if rec.PrivateGalleryIDHash != identity.TokenHash(wantToken) {
		t.Fatalf("token hash = %q", rec.PrivateGalleryIDHash)
	}
	if !rec.Unlisted || !rec.Encrypted {
		t.Fatal("encrypted gallery must be unlisted")
	}
	if len(rec.Images) != 0 {
		t.Fatalf("images = %v", rec.Images)
	}
	if rec.Cover != nil {
		t.Fatalf("cover = %+v, want nil for empty gallery", rec.Cover)
	}
}

func TestAggregateUnlistedWithoutEncryption(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	testsupport.WriteGalleryDescriptor(t, cfg, "trip", "title: Trip\nunlisted: true\npassword: secret\n")

	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath("trip"))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	rec, err := gallery.NewAggregator(cfg, store, logging.NewNop()).Aggregate("trip", desc)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if !rec.Unlisted || rec.Encrypted {
		t.Fatalf("flags = unlisted %v encrypted %v", rec.Unlisted, rec.Encrypted)
	}
	if rec.PrivateGalleryID == "" {
		t.Fatal("password galleries still derive a token")
	}
}
