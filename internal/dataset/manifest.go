package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
)

// SyncManifest records a file that has just landed inside the dataset
// tree. The manifest is read fresh from disk (created with the
// canonical columns when absent), the row for the file's root-relative
// path is upserted, and the result is written straight back in its
// original form. A path already present keeps its description; only the
// timestamp advances.
func (d *Dataset) SyncManifest(path, description string) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	rel, ok := d.relToRoot(path)
	if !ok {
		return fmt.Errorf("dataset: %s is outside the dataset tree: %w", path, apperr.ErrInvalidArgument)
	}
	manifestPath, ext, t, err := d.readManifest()
	if err != nil {
		return err
	}
	ts := d.clock.Now().UTC().Format(metadata.TimestampLayout)
	if rows := t.FindRows("filename", rel); len(rows) > 0 {
		t.SetCell(rows[0], "timestamp", ts)
	} else {
		t.Append(tabular.Row{
			"filename":    rel,
			"description": description,
			"timestamp":   ts,
			"file type":   fileType(path),
		})
	}
	if err := writeTableFile(manifestPath, ext, t); err != nil {
		return err
	}
	d.entries.Set(metadata.ManifestName, &TabularEntry{Source: manifestPath, Table: t})
	d.registry[metadata.ManifestName] = metadata.NewEditor(metadata.ManifestName, d.path, ext, t)
	d.log.Debug("manifest synced", "file", rel)
	return nil
}

// readManifest locates the manifest file directly under the dataset
// root by name and parses it according to its extension. With no
// manifest on disk it returns a fresh table destined for manifest.xlsx.
func (d *Dataset) readManifest() (path, ext string, t *tabular.Table, err error) {
	children, err := os.ReadDir(d.path)
	if err != nil {
		return "", "", nil, fmt.Errorf("dataset: read %s: %w", d.path, err)
	}
	for _, child := range children {
		if child.IsDir() || !strings.Contains(child.Name(), "manifest") {
			continue
		}
		path = filepath.Join(d.path, child.Name())
		ext = extOf(child.Name())
		switch ext {
		case ".xlsx":
			t, err = tabular.ReadFile(path)
		case ".csv":
			t, err = tabular.ReadCSV(path)
		case ".json":
			t, err = tabular.ReadIndexJSON(path, metadata.ManifestColumns()...)
		default:
			return "", "", nil, fmt.Errorf("dataset: manifest %s: %w", child.Name(), apperr.ErrUnsupportedManifestFormat)
		}
		if err != nil {
			return "", "", nil, err
		}
		for _, col := range metadata.ManifestColumns() {
			t.EnsureColumn(col)
		}
		return path, ext, t, nil
	}
	t = tabular.NewTable(metadata.ManifestColumns()...)
	return filepath.Join(d.path, "manifest.xlsx"), ".xlsx", t, nil
}

// writeTableFile persists a table in the on-disk form its extension
// names.
func writeTableFile(path, ext string, t *tabular.Table) error {
	switch ext {
	case ".xlsx":
		return tabular.WriteFile(path, t)
	case ".csv":
		return tabular.WriteCSV(path, t)
	case ".json":
		return tabular.WriteIndexJSON(path, t)
	}
	return fmt.Errorf("dataset: %s: %w", ext, apperr.ErrUnsupportedManifestFormat)
}

// relToRoot renders a path relative to the dataset root with forward
// slashes, reporting false for paths outside the tree.
func (d *Dataset) relToRoot(path string) (string, bool) {
	absRoot, err := filepath.Abs(d.path)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// fileType is the manifest's "file type" rendering of a file name:
// lowercased extension, no dot, empty for none.
func fileType(name string) string {
	return strings.TrimPrefix(extOf(name), ".")
}
