package gallery_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"darkroom/internal/gallery"
	"darkroom/internal/services"
)

func writeDescriptor(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), gallery.DescriptorFilename)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func TestLoadDescriptor(t *testing.T) {
	path := writeDescriptor(t, `title: Summer in Kyoto
date: 2023-07-01
location: Kyoto, Japan
description: A week of temples.
tags:
  - travel
  - japan
cover: torii.jpg
unlisted: true
`)
	desc, err := gallery.LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	if desc.Title != "Summer in Kyoto" || desc.Location != "Kyoto, Japan" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if !desc.Unlisted || desc.Encrypted {
		t.Fatalf("flags wrong: %+v", desc)
	}
	if len(desc.Tags) != 2 {
		t.Fatalf("tags = %v", desc.Tags)
	}

	ts, err := desc.ParseDate()
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if ts.Year() != 2023 || ts.Month() != 7 || ts.Day() != 1 {
		t.Fatalf("parsed date = %v", ts)
	}
}

func TestLoadDescriptorMissing(t *testing.T) {
	_, err := gallery.LoadDescriptor(filepath.Join(t.TempDir(), gallery.DescriptorFilename))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error not a configuration error: %v", err)
	}
}

func TestLoadDescriptorEncryptedWithoutPassword(t *testing.T) {
	path := writeDescriptor(t, "title: Secret\nencrypted: true\n")
	if _, err := gallery.LoadDescriptor(path); err == nil {
		t.Fatal("expected error for encrypted gallery without password")
	}
}

func TestLoadDescriptorEncryptedWithPassword(t *testing.T) {
	path := writeDescriptor(t, "title: Secret\nencrypted: true\npassword: hunter2\n")
	desc, err := gallery.LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor failed: %v", err)
	}
	if !desc.Encrypted || desc.Password != "hunter2" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestParseDateEmpty(t *testing.T) {
	desc := &gallery.Descriptor{}
	ts, err := desc.ParseDate()
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if !ts.IsZero() {
		t.Fatalf("expected zero time, got %v", ts)
	}
}

func TestParseDateInvalid(t *testing.T) {
	desc := &gallery.Descriptor{Date: "July 1st"}
	if _, err := desc.ParseDate(); err == nil {
		t.Fatal("expected error")
	}
}
