// Package fsops provides the filesystem primitives dataset packaging is
// built on: copies that survive copying a file onto itself, cross-device
// moves, additive tree merges, and placeholder cleanup.
package fsops

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/sdskit/internal/apperr"
)

// CopyFile copies a regular file, preserving its mode and modification
// time. The content is staged in a temporary sibling and renamed into
// place, so copying a file onto its own path rewrites it instead of
// truncating it mid-read.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("fsops: stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("fsops: copy %s: not a regular file: %w", src, apperr.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fsops: mkdir for %s: %w", dst, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fsops: open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".sdskit-tmp-*")
	if err != nil {
		return fmt.Errorf("fsops: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("fsops: copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsops: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsops: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode()); err != nil {
		return fmt.Errorf("fsops: chmod: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("fsops: rename: %w", err)
	}
	success = true
	_ = os.Chtimes(dst, time.Now(), info.ModTime())
	return nil
}

// MoveFile relocates a file, falling back to copy-and-remove when a
// plain rename cannot cross the filesystem boundary.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fsops: mkdir for %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("fsops: remove %s after copy: %w", src, err)
	}
	return nil
}

// MergeTree copies src's directories and files into dst, creating and
// updating but never deleting. Merging a tree onto its own path is a
// no-op.
func MergeTree(src, dst string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("fsops: resolve %s: %w", src, err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("fsops: resolve %s: %w", dst, err)
	}
	if absSrc == absDst {
		return nil
	}
	err = filepath.WalkDir(absSrc, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(absSrc, p)
		if err != nil {
			return err
		}
		target := filepath.Join(absDst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return CopyFile(p, target)
	})
	if err != nil {
		return fmt.Errorf("fsops: merge %s into %s: %w", src, dst, err)
	}
	return nil
}

// RemoveTree deletes a file or directory tree.
func RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("fsops: remove %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates a directory if it does not exist. A regular file
// occupying the path fails with ErrNotADirectory.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("fsops: %s: %w", path, apperr.ErrNotADirectory)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("fsops: mkdir %s: %w", path, err)
	}
	return nil
}

// ListSubdirs returns the names of a directory's immediate
// subdirectories in lexical order.
func ListSubdirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("fsops: read %s: %w", path, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// RemovePlaceholders deletes every .gitkeep file under root. The files
// exist only to keep empty directories trackable and have no place in a
// saved dataset.
func RemovePlaceholders(root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && d.Name() == ".gitkeep" {
			return os.Remove(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fsops: strip placeholders under %s: %w", root, err)
	}
	return nil
}

// Within resolves a relative path against root and rejects any result
// that escapes it (directory traversal).
func Within(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("fsops: resolve root: %w", err)
	}
	if rel == "" {
		return absRoot, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("fsops: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidArgument)
	}
	joined := filepath.Join(absRoot, cleaned)
	if !strings.HasPrefix(joined, absRoot+string(os.PathSeparator)) && joined != absRoot {
		return "", fmt.Errorf("fsops: path escapes %s: %s: %w", root, rel, apperr.ErrInvalidArgument)
	}
	return joined, nil
}
