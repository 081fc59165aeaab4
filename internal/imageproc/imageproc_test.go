package imageproc_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"darkroom/internal/config"
	"darkroom/internal/crypt"
	"darkroom/internal/gallery"
	"darkroom/internal/identity"
	"darkroom/internal/imageproc"
	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/testsupport"
)

const galleryID = "trip"

func setup(t *testing.T, descriptorBody string) (*config.Config, *records.Store, *imageproc.Builder, *gallery.Descriptor) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteGalleryDescriptor(t, cfg, galleryID, descriptorBody)
	desc, err := gallery.LoadDescriptor(cfg.GalleryDescriptorPath(galleryID))
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	store := records.NewStore(cfg)
	return cfg, store, imageproc.NewBuilder(cfg, store, logging.NewNop()), desc
}

func TestProcessLogsEachRendition(t *testing.T) {
	cfg, store, _, desc := setup(t, "title: Trip\n")
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	builder := imageproc.NewBuilder(cfg, store, logger)

	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "pier.jpg")
	testsupport.WriteJPEG(t, imagePath, 800, 600)
	if _, err := builder.Process(context.Background(), galleryID, desc, imagePath); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// One debug line per configured size class, tagged with its name.
	for sizeClass := range cfg.ImageSizes {
		want := `"size_class":"` + sizeClass + `"`
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("log output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestProcessPlainImage(t *testing.T) {
	cfg, store, builder, desc := setup(t, "title: Trip\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "city_walk.jpg")
	testsupport.WriteEXIFJPEG(t, imagePath, 800, 600, testsupport.EXIFMeta{
		DateTimeOriginal: "2023:07:01 10:00:00",
	})

	res, err := builder.Process(context.Background(), galleryID, desc, imagePath)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Skipped {
		t.Fatal("first run must not skip")
	}

	rec := res.Record
	wantID := identity.ImageID(galleryID, "city_walk.jpg")
	if rec.ID != wantID {
		t.Fatalf("id = %q, want %q", rec.ID, wantID)
	}
	if rec.URL != "/galleries/trip/"+wantID+".html" {
		t.Fatalf("url = %q", rec.URL)
	}
	if rec.Title != "City Walk" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.CaptureTime() != "2023:07:01 10:00:00" {
		t.Fatalf("capture time = %q", rec.CaptureTime())
	}

	for sizeClass, maxEdge := range cfg.ImageSizes {
		wantPath := "/galleries/trip/" + sizeClass + "/" + wantID + ".jpg"
		if rec.Paths[sizeClass] != wantPath {
			t.Errorf("paths[%s] = %q, want %q", sizeClass, rec.Paths[sizeClass], wantPath)
		}

		data, err := os.ReadFile(cfg.RenditionPath(galleryID, sizeClass, wantID))
		if err != nil {
			t.Fatalf("read %s rendition: %v", sizeClass, err)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode %s rendition: %v", sizeClass, err)
		}
		b := img.Bounds()
		if b.Dx() > maxEdge || b.Dy() > maxEdge {
			t.Errorf("%s rendition %dx%d exceeds %d", sizeClass, b.Dx(), b.Dy(), maxEdge)
		}
	}

	if _, err := store.LoadImage(galleryID, wantID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

func TestProcessSkipsWhenCurrent(t *testing.T) {
	cfg, _, builder, desc := setup(t, "title: Trip\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "a.jpg")
	testsupport.WriteJPEG(t, imagePath, 400, 300)
	backdate(t, imagePath, cfg)

	if res, err := builder.Process(context.Background(), galleryID, desc, imagePath); err != nil || res.Skipped {
		t.Fatalf("first run: res=%+v err=%v", res, err)
	}
	res, err := builder.Process(context.Background(), galleryID, desc, imagePath)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !res.Skipped {
		t.Fatal("second run should skip")
	}
	if res.Record == nil || res.Record.Filename != "a.jpg" {
		t.Fatalf("skip must return the persisted record, got %+v", res.Record)
	}
}

func TestProcessRebuildsAfterSourceChange(t *testing.T) {
	cfg, _, builder, desc := setup(t, "title: Trip\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "a.jpg")
	testsupport.WriteJPEG(t, imagePath, 400, 300)
	backdate(t, imagePath, cfg)

	if _, err := builder.Process(context.Background(), galleryID, desc, imagePath); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(imagePath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	res, err := builder.Process(context.Background(), galleryID, desc, imagePath)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if res.Skipped {
		t.Fatal("touched source must reprocess")
	}
}

func TestProcessEncryptedGallery(t *testing.T) {
	cfg, _, builder, desc := setup(t, "title: Secret\nencrypted: true\npassword: hunter2\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "a.jpg")
	testsupport.WriteJPEG(t, imagePath, 400, 300)

	res, err := builder.Process(context.Background(), galleryID, desc, imagePath)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	wantID := identity.EncryptedImageID(galleryID, "a.jpg")
	if res.Record.ID != wantID {
		t.Fatalf("id = %q, want encrypted-scheme %q", res.Record.ID, wantID)
	}

	data, err := os.ReadFile(cfg.RenditionPath(galleryID, "thumbnail", wantID))
	if err != nil {
		t.Fatalf("read rendition: %v", err)
	}
	if len(data)%16 != 0 {
		t.Fatalf("ciphertext length %d not block aligned", len(data))
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		t.Fatal("rendition decodable without decryption")
	}

	key, iv := crypt.Params(galleryID, wantID, "hunter2")
	plain, err := crypt.Decrypt(data, key, iv)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if _, err := imaging.Decode(bytes.NewReader(plain)); err != nil {
		t.Fatalf("decrypted rendition not a jpeg: %v", err)
	}
}

func TestProcessUsesSidecar(t *testing.T) {
	cfg, _, builder, desc := setup(t, "title: Trip\n")
	dir := cfg.GalleryDir(galleryID)
	imagePath := filepath.Join(dir, "a.jpg")
	testsupport.WriteJPEG(t, imagePath, 200, 150)
	sidecar := "title: Harbor at Dusk\ncaption: Long exposure.\ntags:\n  - harbor\n"
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	res, err := builder.Process(context.Background(), galleryID, desc, imagePath)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	rec := res.Record
	if rec.Title != "Harbor at Dusk" || rec.Caption != "Long exposure." {
		t.Fatalf("sidecar not applied: %+v", rec)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "harbor" {
		t.Fatalf("tags = %v", rec.Tags)
	}
}

func TestProcessUndecodableImageFailsClean(t *testing.T) {
	cfg, store, builder, desc := setup(t, "title: Trip\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "broken.jpg")
	if err := os.WriteFile(imagePath, []byte("not a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := builder.Process(context.Background(), galleryID, desc, imagePath); err == nil {
		t.Fatal("expected decode error")
	}

	imageID := identity.ImageID(galleryID, "broken.jpg")
	if _, err := store.LoadImage(galleryID, imageID); err == nil {
		t.Fatal("record must not be persisted on failure")
	}
	for sizeClass := range cfg.ImageSizes {
		if _, err := os.Stat(cfg.RenditionPath(galleryID, sizeClass, imageID)); !os.IsNotExist(err) {
			t.Fatalf("unexpected %s rendition", sizeClass)
		}
	}
}

func TestProcessCanceledContext(t *testing.T) {
	cfg, _, builder, desc := setup(t, "title: Trip\n")
	imagePath := filepath.Join(cfg.GalleryDir(galleryID), "a.jpg")
	testsupport.WriteJPEG(t, imagePath, 200, 150)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := builder.Process(ctx, galleryID, desc, imagePath); err == nil {
		t.Fatal("expected context error")
	}
}

// backdate pushes the image, config and descriptor mtimes into the past so
// freshly written outputs compare newer.
func backdate(t *testing.T, imagePath string, cfg *config.Config) {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	for _, path := range []string{imagePath, cfg.Path(), cfg.GalleryDescriptorPath(galleryID)} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}
