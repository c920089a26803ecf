// Package testutil provides shared helpers for tests that need a
// template resource tree or a dataset loaded from one.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/starford/sdskit/internal/dataset"
)

// Quiet returns a logger that discards everything it is given.
func Quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteWorkbook writes rows as a single-sheet workbook at path,
// creating parent directories as needed. The first row is the header.
func WriteWorkbook(t *testing.T, path string, rows ...[]any) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
}

// TestResources builds a resources tree carrying a version 2.0.0
// template skeleton plus its schema workbook and returns the tree root.
func TestResources(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "templates", "version_2_0_0", "DatasetTemplate")

	WriteWorkbook(t, filepath.Join(dir, "dataset_description.xlsx"),
		[]any{"Metadata element", "Description", "Value"},
		[]any{"Title", "Descriptive title of the dataset", ""},
		[]any{"Subtitle", "One sentence summary", ""},
		[]any{"Keywords", "Search terms", ""},
		[]any{"Contributor name", "Last, First", ""},
		[]any{"    Contributor orcid", "ORCID of the contributor", ""},
		[]any{"    Contributor role", "Role of the contributor", ""},
		[]any{"Number of subjects", "Subject folders under primary", 0},
		[]any{"Number of samples", "Sample folders under primary", 0},
	)
	WriteWorkbook(t, filepath.Join(dir, "code_description.xlsx"),
		[]any{"Metadata element", "Value"},
		[]any{"TSR1: Define Context Clearly Rating (0-4)", ""},
		[]any{"TSR2: Use Appropriate Data Rating (0-4)", ""},
	)
	WriteWorkbook(t, filepath.Join(dir, "subjects.xlsx"),
		[]any{"subject id", "species", "sex"},
	)
	WriteWorkbook(t, filepath.Join(dir, "samples.xlsx"),
		[]any{"subject id", "sample id", "sample type"},
	)
	WriteWorkbook(t, filepath.Join(dir, "manifest.xlsx"),
		[]any{"filename", "description", "timestamp", "file type"},
	)
	WriteWorkbook(t, filepath.Join(dir, "submission.xlsx"),
		[]any{"Submission item", "Definition", "Value"},
		[]any{"Award number", "Funding award supporting the data", ""},
		[]any{"Milestone achieved", "Milestone covered by this submission", ""},
	)

	for _, sub := range []string{"primary", "docs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "primary", ".gitkeep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	writeSchema(t, filepath.Join(root, "templates", "version_2_0_0", "schema.xlsx"))
	return root
}

// writeSchema writes the element reference workbook with one sheet per
// documented metadata file.
func writeSchema(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheets := []struct {
		name string
		rows [][]any
	}{
		{"subjects", [][]any{
			{"Element", "Required", "Type", "Description", "Example"},
			{"subject id", "Y", "string", "Lab-based identifier of the subject", "sub-1"},
			{"species", "Y", "string", "Subject species", "mouse"},
		}},
		{"dataset_description", [][]any{
			{"Element", "Required", "Type", "Description", "Example"},
			{"Title", "Y", "string", "Descriptive title of the dataset", "Cortical maps"},
		}},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			t.Fatal(err)
		}
		for i, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			row := row
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save schema workbook: %v", err)
	}
}

// TestDataset loads the 2.0.0 template, saves it into a fresh root and
// reloads it from there, leaving it ready for folder operations.
func TestDataset(t *testing.T, opts ...dataset.Option) (*dataset.Dataset, string) {
	t.Helper()

	res := TestResources(t)
	root := filepath.Join(t.TempDir(), "dataset")
	base := []dataset.Option{
		dataset.WithResourcesDir(res),
		dataset.WithLogger(Quiet()),
	}
	ds := dataset.New(append(base, opts...)...)
	if err := ds.LoadFromTemplate(""); err != nil {
		t.Fatalf("load template: %v", err)
	}
	if err := ds.Save(root, false, false); err != nil {
		t.Fatalf("save template copy: %v", err)
	}
	if err := ds.LoadDataset(root); err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	return ds, root
}
