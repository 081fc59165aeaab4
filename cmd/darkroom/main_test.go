package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"darkroom/internal/records"
	"darkroom/internal/testsupport"
	"darkroom/internal/workflow"
)

func executeCommand(t *testing.T, app *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRefreshCommandEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.WriteGalleryDescriptor(t, cfg, "beach", "title: Beach\ndate: 2023-07-01\n")
	testsupport.WriteJPEG(t, filepath.Join(dir, "a.jpg"), 300, 200)

	app := newCommandContext()
	out, err := executeCommand(t, app, "--config", cfg.Path(), "refresh")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if app.exitCode != 0 {
		t.Fatalf("exit code = %d, output:\n%s", app.exitCode, out)
	}
	if !strings.Contains(out, "beach") || !strings.Contains(out, "1 processed") {
		t.Fatalf("summary output missing counts:\n%s", out)
	}

	if _, err := os.Stat(cfg.SiteIndexPath()); err != nil {
		t.Fatalf("site index missing: %v", err)
	}
	if _, err := records.NewStore(cfg).LoadGallery("beach"); err != nil {
		t.Fatalf("gallery record missing: %v", err)
	}
}

func TestProcessCommandSkipsAggregation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.WriteGalleryDescriptor(t, cfg, "beach", "title: Beach\n")
	testsupport.WriteJPEG(t, filepath.Join(dir, "a.jpg"), 300, 200)

	app := newCommandContext()
	if _, err := executeCommand(t, app, "--config", cfg.Path(), "process"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, err := os.Stat(cfg.SiteIndexPath()); !os.IsNotExist(err) {
		t.Fatal("process must not write the site index")
	}
}

func TestGalleriesCommandSetsFailureExit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// Gallery with images but no descriptor.
	testsupport.WriteJPEG(t, filepath.Join(cfg.SourcePath, "bad", "x.jpg"), 100, 100)

	app := newCommandContext()
	if _, err := executeCommand(t, app, "--config", cfg.Path(), "galleries"); err != nil {
		t.Fatalf("galleries failed: %v", err)
	}
	if app.exitCode != 4 {
		t.Fatalf("exit code = %d, want 4", app.exitCode)
	}
}

func TestMissingConfigFails(t *testing.T) {
	app := newCommandContext()
	_, err := executeCommand(t, app, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "refresh")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "darkroom", "config.yaml")

	app := newCommandContext()
	out, err := executeCommand(t, app, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output does not mention target:\n%s", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(string(data), "source_path") {
		t.Fatal("sample config missing keys")
	}

	// Second init without --overwrite refuses.
	if _, err := executeCommand(t, newCommandContext(), "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestConfigShow(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	app := newCommandContext()
	out, err := executeCommand(t, app, "--config", cfg.Path(), "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{cfg.SourcePath, cfg.OutputPath, "jpg_quality"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummaryStatuses(t *testing.T) {
	summary := &workflow.Summary{
		Galleries: []workflow.GalleryStats{
			{Gallery: "beach", Processed: 3, Skipped: 1},
			{Gallery: "alps", Failed: 2},
			{Gallery: "bad", Err: errors.New("descriptor missing")},
		},
		Duration: 1500 * time.Millisecond,
	}

	var out bytes.Buffer
	printSummary(&out, summary)
	text := out.String()
	for _, want := range []string{"beach", "partial", "descriptor missing", "3 processed", "2 failed", "1 galleries failed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestPrintSummaryEmpty(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &workflow.Summary{})
	if !strings.Contains(out.String(), "No galleries found") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
