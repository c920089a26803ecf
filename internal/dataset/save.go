package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/fsops"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/template"
)

// Save writes every entry into dir (empty means the dataset root).
// Tabular entries are rewritten in their on-disk form; with removeEmpty
// the root description table drops rows carrying no "Value"; with
// keepStyle each workbook is restyled from its template counterpart.
// Opaque directories are merged additively and opaque files copied.
// Placeholder .gitkeep files are stripped from the destination last.
// Failures abort immediately and earlier writes are not rolled back.
func (d *Dataset) Save(dir string, removeEmpty, keepStyle bool) error {
	if err := d.ensureLoaded(); err != nil {
		return err
	}
	if dir == "" {
		dir = d.path
	}
	if dir == "" {
		return fmt.Errorf("dataset: no destination directory: %w", apperr.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dataset: mkdir %s: %w", dir, err)
	}
	templateDir := template.Dir(d.resourcesDir, d.version)

	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		switch e := pair.Value.(type) {
		case *TabularEntry:
			filename := filepath.Base(e.Source)
			t := e.Table
			if removeEmpty && strings.Contains(filename, "dataset_description") {
				t = dropValuelessRows(t)
			}
			dest := filepath.Join(dir, filename)
			ext := extOf(filename)
			if err := writeTableFile(dest, ext, t); err != nil {
				return err
			}
			if keepStyle && ext == ".xlsx" {
				source := filepath.Join(templateDir, filename)
				if _, err := os.Stat(source); err == nil {
					if err := d.styler.Restyle(dest, source); err != nil {
						return err
					}
				}
			}
		case *FileEntry:
			info, err := os.Stat(e.Location)
			if err != nil {
				return fmt.Errorf("dataset: stat %s: %w", e.Location, err)
			}
			target := filepath.Join(dir, filepath.Base(e.Location))
			if info.IsDir() {
				if err := fsops.MergeTree(e.Location, target); err != nil {
					return err
				}
			} else if err := fsops.CopyFile(e.Location, target); err != nil {
				return err
			}
		}
	}
	if err := fsops.RemovePlaceholders(dir); err != nil {
		return err
	}
	d.log.Info("dataset saved", "dir", dir, "entries", d.entries.Len())
	return nil
}

// dropValuelessRows clones the table without the rows whose "Value"
// cell is null or empty.
func dropValuelessRows(t *tabular.Table) *tabular.Table {
	out := t.Clone()
	for i := out.Len() - 1; i >= 0; i-- {
		v, ok := out.Cell(i, metadata.ValueColumn)
		if !ok || tabular.ValueString(v) == "" {
			out.RemoveRowAt(i)
		}
	}
	return out
}
