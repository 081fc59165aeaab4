package site_test

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"darkroom/internal/logging"
	"darkroom/internal/records"
	"darkroom/internal/site"
	"darkroom/internal/testsupport"
)

func TestWriteIndexSortsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)

	galleries := []records.GalleryRecord{
		{ID: "older", Date: "2022:05:01 00:00:00"},
		{ID: "newest", Date: "2023:07:01 00:00:00"},
		{ID: "undated"},
		{ID: "middle", Date: "2023:01:15 00:00:00"},
	}

	index, err := site.NewAggregator(store, logging.NewNop()).WriteIndex(galleries)
	if err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}

	var order []string
	for _, g := range index.Galleries {
		order = append(order, g.ID)
	}
	want := []string{"newest", "middle", "older", "undated"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	// Input slice order is untouched.
	if galleries[0].ID != "older" {
		t.Fatal("input slice reordered")
	}

	if _, err := time.Parse(time.RFC3339, index.LastUpdated); err != nil {
		t.Fatalf("last_updated %q not RFC3339: %v", index.LastUpdated, err)
	}
}

func TestWriteIndexPersistsJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)

	galleries := []records.GalleryRecord{
		{ID: "trip", Date: "2023:07:01 00:00:00", Unlisted: true, Encrypted: true},
	}
	if _, err := site.NewAggregator(store, logging.NewNop()).WriteIndex(galleries); err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}

	data, err := os.ReadFile(cfg.SiteIndexPath())
	if err != nil {
		t.Fatalf("read site index: %v", err)
	}
	var index records.SiteIndex
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatalf("parse site index: %v", err)
	}
	if len(index.Galleries) != 1 || index.Galleries[0].ID != "trip" {
		t.Fatalf("index = %+v", index)
	}
	// Unlisted galleries stay in the inventory.
	if !index.Galleries[0].Unlisted {
		t.Fatal("unlisted flag lost")
	}
}

func TestWriteIndexKeepsPersistedGalleries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)
	aggregator := site.NewAggregator(store, logging.NewNop())

	beach := &records.GalleryRecord{ID: "beach", Title: "Beach", Date: "2023:07:01 00:00:00"}
	alps := &records.GalleryRecord{ID: "alps", Title: "Alps", Date: "2022:02:01 00:00:00"}
	if err := store.SaveGallery(beach); err != nil {
		t.Fatalf("save beach: %v", err)
	}
	if err := store.SaveGallery(alps); err != nil {
		t.Fatalf("save alps: %v", err)
	}

	// Rebuild only alps with a new title. Beach must survive untouched.
	updated := *alps
	updated.Title = "Alps Revisited"
	index, err := aggregator.WriteIndex([]records.GalleryRecord{updated})
	if err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}

	if len(index.Galleries) != 2 {
		t.Fatalf("galleries = %+v, want beach and alps", index.Galleries)
	}
	if index.Galleries[0].ID != "beach" || index.Galleries[1].ID != "alps" {
		t.Fatalf("order = [%s %s], want [beach alps]", index.Galleries[0].ID, index.Galleries[1].ID)
	}
	if index.Galleries[1].Title != "Alps Revisited" {
		t.Fatalf("alps title = %q, want the rebuilt record", index.Galleries[1].Title)
	}
}

func TestWriteIndexEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg)

	index, err := site.NewAggregator(store, logging.NewNop()).WriteIndex(nil)
	if err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}
	if len(index.Galleries) != 0 {
		t.Fatalf("galleries = %v", index.Galleries)
	}
}
