// Package watch keeps a dataset's manifest in step with its data trees,
// either as a one-shot reconciliation pass or as a long-running
// fsnotify service.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/tabular"
)

// dataTrees are the dataset folders whose files belong in the manifest.
var dataTrees = []string{"primary", "derivative", "docs"}

// EventCallback is called after a watcher-driven manifest change.
// kind is one of "added", "updated", "removed".
type EventCallback func(kind, path string)

// Sync walks the data trees once and brings the manifest up to date:
// files with no manifest row are recorded with a description derived
// from their tree position, rows whose files vanished are dropped. Rows
// for files still on disk are left alone, timestamps included.
func Sync(ds *dataset.Dataset, logger *slog.Logger) error {
	root := ds.Path()
	if root == "" {
		return fmt.Errorf("watch: dataset has no root directory: %w", apperr.ErrNotLoaded)
	}

	known := manifestPaths(ds)
	disk := make(map[string]struct{})
	for _, tree := range dataTrees {
		dir := filepath.Join(root, tree)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			rel, ok := dataRel(root, path)
			if !ok {
				return nil
			}
			disk[rel] = struct{}{}
			if _, exists := known[rel]; exists {
				return nil
			}
			if err := ds.SyncManifest(path, describe(rel)); err != nil {
				return err
			}
			logger.Debug("watch: recorded", slog.String("path", rel))
			return nil
		})
		if err != nil {
			return fmt.Errorf("watch: walk %s: %w", dir, err)
		}
	}

	ed, err := ds.GetMetadata("manifest")
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	t := ed.Data()
	stale := 0
	for i := t.Len() - 1; i >= 0; i-- {
		v, _ := t.Cell(i, "filename")
		rel := tabular.ValueString(v)
		if !underDataTree(rel) {
			continue
		}
		if _, ok := disk[rel]; ok {
			continue
		}
		t.RemoveRowAt(i)
		stale++
		logger.Debug("watch: removed stale", slog.String("path", rel))
	}
	if stale > 0 {
		if err := ed.Save(); err != nil {
			return err
		}
	}
	logger.Info("watch: manifest reconciled", slog.Int("files", len(disk)), slog.Int("stale", stale))
	return nil
}

// Watch starts an fsnotify watcher over the dataset's data trees and
// keeps the manifest in step until ctx is cancelled. It calls cb (if
// non-nil) after each successful manifest change.
//
// New directories created at runtime are added to the watch list.
// Rename events fire on the old path only, so a short debounced
// reconciliation pass follows them and catches the re-created side.
func Watch(ctx context.Context, ds *dataset.Dataset, logger *slog.Logger, cb EventCallback) error {
	root := ds.Path()
	if root == "" {
		return fmt.Errorf("watch: dataset has no root directory: %w", apperr.ErrNotLoaded)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	for _, tree := range dataTrees {
		dir := filepath.Join(root, tree)
		if _, statErr := os.Stat(dir); statErr != nil {
			continue
		}
		if err := addDirsRecursive(w, dir); err != nil {
			return err
		}
	}

	logger.Info("watch: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ds, logger); err != nil {
				logger.Warn("watch: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			// New directories join the watch list before their files
			// are recorded.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					recordDir(ds, root, absPath, logger, cb)
					continue
				}
			}

			rel, inTree := dataRel(root, absPath)
			if !inTree || strings.HasPrefix(filepath.Base(absPath), ".") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				_, existed := manifestPaths(ds)[rel]
				if err := ds.SyncManifest(absPath, describe(rel)); err != nil {
					logger.Warn("watch: manifest sync failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				kind := "updated"
				if !existed {
					kind = "added"
				}
				logger.Debug("watch: recorded", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if err := dropRow(ds, rel); err != nil {
					logger.Warn("watch: drop row failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watch: removed", slog.String("path", rel))
				if cb != nil {
					cb("removed", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the OLD path only; the new path
				// arrives as a separate Create if it stays in a watched
				// dir. Drop the old row now and reconcile shortly after
				// for any stragglers.
				if err := dropRow(ds, rel); err != nil {
					logger.Warn("watch: rename drop failed", slog.String("path", rel), slog.String("error", err.Error()))
				} else {
					logger.Debug("watch: rename old removed", slog.String("path", rel))
					if cb != nil {
						cb("removed", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// recordDir records any files already present in a newly created
// directory.
func recordDir(ds *dataset.Dataset, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, ok := dataRel(root, path)
		if !ok {
			return nil
		}
		if syncErr := ds.SyncManifest(path, describe(rel)); syncErr != nil {
			return nil
		}
		logger.Debug("watch: recorded from new dir", slog.String("path", rel))
		if cb != nil {
			cb("added", rel)
		}
		return nil
	})
}

// dropRow removes rel's manifest row and persists the manifest.
func dropRow(ds *dataset.Dataset, rel string) error {
	ed, err := ds.GetMetadata("manifest")
	if err != nil {
		return err
	}
	ed.RemoveRow(rel)
	return ed.Save()
}

// manifestPaths returns the set of filenames currently in the manifest.
func manifestPaths(ds *dataset.Dataset) map[string]struct{} {
	out := map[string]struct{}{}
	ed, err := ds.GetMetadata("manifest")
	if err != nil {
		return out
	}
	t := ed.Data()
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Cell(i, "filename")
		if s := tabular.ValueString(v); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// dataRel renders path relative to root with forward slashes and
// reports whether it falls under one of the data trees.
func dataRel(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !underDataTree(rel) {
		return "", false
	}
	return rel, true
}

func underDataTree(rel string) bool {
	for _, tree := range dataTrees {
		if strings.HasPrefix(rel, tree+"/") {
			return true
		}
	}
	return false
}

// describe derives the manifest description for a discovered file from
// its tree position.
func describe(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) >= 3 && (parts[0] == "primary" || parts[0] == "derivative") {
		return fmt.Sprintf("File of subject %s sample %s", parts[1], parts[2])
	}
	if parts[0] == "docs" {
		return "This is a thumbnail file"
	}
	return "Data file"
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
