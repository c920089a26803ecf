package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/fsops"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/template"
)

// LoadFromTemplate populates the dataset from the bundled skeleton for
// the given version (empty means the current one). The dataset root
// stays unset; point it somewhere with LoadDataset or SetPath before
// folder operations.
func (d *Dataset) LoadFromTemplate(version string) error {
	if version != "" {
		d.version = template.Normalize(version)
	}
	dir := template.Dir(d.resourcesDir, d.version)
	if err := d.loadDir(dir); err != nil {
		return err
	}
	d.log.Info("loaded template", "version", d.version, "entries", d.entries.Len())
	return nil
}

// CreateEmpty starts a fresh dataset from the template skeleton.
func (d *Dataset) CreateEmpty(version string) error {
	return d.LoadFromTemplate(version)
}

// LoadDataset populates the dataset from an existing package directory
// and adopts it as the dataset root.
func (d *Dataset) LoadDataset(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("dataset: resolve %s: %w", path, err)
	}
	d.path = abs
	if err := d.loadDir(abs); err != nil {
		return err
	}
	d.log.Info("loaded dataset", "path", abs, "entries", d.entries.Len())
	return nil
}

// loadDir reads every direct child of dir into a fresh entry map and
// rebuilds the metadata registry on top of it.
func (d *Dataset) loadDir(dir string) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", dir, err)
	}
	m := orderedmap.New[string, Entry]()
	for _, child := range children {
		p := filepath.Join(dir, child.Name())
		if !child.IsDir() && filepath.Ext(child.Name()) == ".xlsx" {
			t, err := tabular.ReadFile(p)
			if err != nil {
				return err
			}
			m.Set(stem(child.Name()), &TabularEntry{Source: p, Table: t})
			continue
		}
		m.Set(child.Name(), &FileEntry{Location: p})
	}
	d.entries = m
	d.buildRegistry()
	return nil
}

// LoadMetadata (re)loads a single spreadsheet into the entry map,
// rebuilding its editor when the name is a recognized one, and returns
// the parsed table.
func (d *Dataset) LoadMetadata(path string) (*tabular.Table, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := stem(filepath.Base(path))
	d.entries.Set(name, &TabularEntry{Source: path, Table: t})
	if metadata.IsKnown(name) {
		d.registry[name] = metadata.NewEditor(name, d.path, extOf(path), t)
	}
	return t, nil
}

// ListMetadataFiles returns the metadata file stems present in the
// template for a version (empty means the current one).
func (d *Dataset) ListMetadataFiles(version string) ([]string, error) {
	if version == "" {
		version = d.version
	}
	dir := template.Dir(d.resourcesDir, version)
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read template %s: %w", dir, err)
	}
	var out []string
	for _, child := range children {
		if !child.IsDir() && filepath.Ext(child.Name()) == ".xlsx" {
			out = append(out, stem(child.Name()))
		}
	}
	return out, nil
}

// ListElements returns the element names of a metadata file, read from
// its template workbook. With byRow the names are the first-column
// values, otherwise the column headers past the first; the root
// description file always lists by row.
func (d *Dataset) ListElements(file string, byRow bool) ([]string, error) {
	if file == "dataset_description" {
		byRow = true
	}
	path := filepath.Join(template.Dir(d.resourcesDir, d.version), file+".xlsx")
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cols := t.Columns()
	if len(cols) == 0 {
		return nil, nil
	}
	if !byRow {
		return cols[1:], nil
	}
	out := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		v, _ := t.Cell(i, cols[0])
		out = append(out, tabular.ValueString(v))
	}
	return out, nil
}

// ElementInfo is one annotated element row from a version's schema
// workbook.
type ElementInfo struct {
	Element     string
	Required    string
	Type        string
	Description string
	Example     string
}

// DescribeElements returns the annotated element descriptions for a
// metadata file from the schema workbook of a version (empty means the
// current one).
func (d *Dataset) DescribeElements(file, version string) ([]ElementInfo, error) {
	if version == "" {
		version = d.version
	}
	path := template.SchemaWorkbook(d.resourcesDir, version)
	t, err := tabular.ReadSheet(path, file)
	if err != nil {
		return nil, err
	}
	out := make([]ElementInfo, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, ElementInfo{
			Element:     cellString(t, i, "Element"),
			Required:    cellString(t, i, "Required"),
			Type:        cellString(t, i, "Type"),
			Description: cellString(t, i, "Description"),
			Example:     cellString(t, i, "Example"),
		})
	}
	return out, nil
}

// SaveTemplate copies the resolved template tree for a version (empty
// means the current one) into a destination directory.
func (d *Dataset) SaveTemplate(destDir, version string) error {
	if version == "" {
		version = d.version
	}
	dir := template.Dir(d.resourcesDir, version)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("dataset: template %s: %w", dir, apperr.ErrNotFound)
	}
	return fsops.MergeTree(dir, destDir)
}

// GenerateFileFromTemplate writes one metadata file standalone. A nil
// table copies the template file as-is; otherwise the table is written
// and, when keepStyle is set, restyled from its template counterpart.
func (d *Dataset) GenerateFileFromTemplate(savePath, file string, t *tabular.Table, keepStyle bool) error {
	source := filepath.Join(template.Dir(d.resourcesDir, d.version), file+".xlsx")
	if t == nil {
		return fsops.CopyFile(source, savePath)
	}
	if err := tabular.WriteFile(savePath, t); err != nil {
		return err
	}
	if keepStyle {
		if _, err := os.Stat(source); err == nil {
			return d.styler.Restyle(savePath, source)
		}
	}
	return nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func cellString(t *tabular.Table, i int, col string) string {
	v, _ := t.Cell(i, col)
	return tabular.ValueString(v)
}
