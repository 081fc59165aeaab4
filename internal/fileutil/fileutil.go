package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tempInfix marks in-flight files that must never be treated as valid
// pipeline output. A crashed run can leave them behind; readers skip them
// and the next run sweeps them.
const tempInfix = ".tmp-"

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// TempPath returns a unique sibling path for staging content destined for
// final. The suffix keeps staged files distinguishable from real output.
func TempPath(final string) string {
	return final + tempInfix + uuid.NewString()
}

// IsTempPath reports whether path is a staging file produced by TempPath.
func IsTempPath(path string) bool {
	return strings.Contains(filepath.Base(path), tempInfix)
}

// WriteFileAtomic writes data to path via a staged temp file and rename, so
// readers never observe a partially written file. The parent directory is
// created if needed.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	tmp := TempPath(path)
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// LatestModTime returns the most recent modification time among the given
// paths. Missing paths are an error: staleness decisions need every input
// accounted for.
func LatestModTime(paths ...string) (time.Time, error) {
	var latest time.Time
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, fmt.Errorf("stat %q: %w", path, err)
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// LatestModTimeInDir returns the most recent modification time of regular
// files directly inside dir (not recursive). The zero time is returned when
// dir holds no regular files.
func LatestModTimeInDir(dir string) (time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, fmt.Errorf("read directory %q: %w", dir, err)
	}
	var latest time.Time
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return time.Time{}, fmt.Errorf("stat %q: %w", filepath.Join(dir, entry.Name()), err)
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// SweepTempFiles removes staging leftovers under root. Used at the start of
// a run to clear debris from interrupted runs.
func SweepTempFiles(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsTempPath(path) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		return nil
	})
}
