package installer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// zip "version made by" hosts that carry POSIX permission bits
const (
	creatorUnix  = 3
	creatorMacOS = 19
)

// ExtractZip extracts every entry of the archive into destDir, which must
// already exist. Entries are written to a staging directory inside destDir
// and moved into place only once all of them were extracted, so a failed
// extraction leaves destDir as it was.
func ExtractZip(zipPath string, destDir string, progress Progress) error {
	if progress == nil {
		progress = nopProgress{}
	}

	// entry names are sanitized below, so insecure paths are not fatal
	reader, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		progress.Finish("Extraction failed")
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	progress.SetTotal(int64(len(reader.File)))

	staging, err := os.MkdirTemp(destDir, ".xupg-staging-*")
	if err != nil {
		progress.Finish("Extraction failed")
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, file := range reader.File {
		if err := extractEntry(file, staging); err != nil {
			progress.Finish("Extraction failed")
			return err
		}
		progress.Advance(1)
	}

	if err := promote(staging, destDir); err != nil {
		progress.Finish("Extraction failed")
		return err
	}

	progress.Finish(fmt.Sprintf("Extracted %d entries to %s", len(reader.File), destDir))
	return nil
}

// entryPath turns an archive entry name into a slash path that cannot
// escape the extraction root.
func entryPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func extractEntry(file *zip.File, root string) error {
	rel := entryPath(file.Name)
	if rel == "" {
		return nil
	}
	target := filepath.Join(root, filepath.FromSlash(rel))

	if strings.HasSuffix(file.Name, "/") {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", rel, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	outFile, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	rc, err := file.Open()
	if err != nil {
		outFile.Close()
		return fmt.Errorf("failed to open file in zip: %w", err)
	}

	_, err = io.Copy(outFile, rc)
	rc.Close()
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", rel, err)
	}

	if hasUnixMode(file) && runtime.GOOS != "windows" {
		if err := os.Chmod(target, file.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to set permissions on %s: %w", rel, err)
		}
	}
	return nil
}

func hasUnixMode(file *zip.File) bool {
	switch file.CreatorVersion >> 8 {
	case creatorUnix, creatorMacOS:
		return true
	}
	return false
}

// promote moves the staged tree into destDir, merging with existing
// directories and replacing existing files. Nothing is moved when a staged
// entry would replace a directory with a file or the reverse.
func promote(staging, destDir string) error {
	if err := checkConflicts(staging, destDir); err != nil {
		return err
	}
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(destDir, rel)

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", rel, err)
			}
			return nil
		}

		if err := os.Rename(p, target); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", rel, err)
		}
		return nil
	})
}

// checkConflicts reports the first staged entry whose type differs from
// what already exists at the same place in destDir.
func checkConflicts(staging, destDir string) error {
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := os.Lstat(filepath.Join(destDir, rel))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to inspect %s: %w", rel, err)
		case info.IsDir() != d.IsDir():
			return fmt.Errorf("cannot replace %s: existing entry has a different type", rel)
		}
		return nil
	})
}
