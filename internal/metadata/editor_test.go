package metadata

import (
	"errors"
	"os"
	"testing"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/tabular"
)

func descriptionTable() *tabular.Table {
	t := tabular.NewTable(ElementColumn, ValueColumn)
	t.Append(tabular.Row{ElementColumn: "Title"})
	t.Append(tabular.Row{ElementColumn: "Contributor name"})
	return t
}

func TestRemoveRowAbsentKeyIsNoOp(t *testing.T) {
	tbl := descriptionTable()
	e := NewEditor("dataset_description", t.TempDir(), ".xlsx", tbl)
	e.RemoveRow("No such element")
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	e.RemoveRow("Title")
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d after removal, want 1", tbl.Len())
	}
}

func TestSetValuesDescriptionStyle(t *testing.T) {
	tbl := descriptionTable()
	e := NewEditor("dataset_description", t.TempDir(), ".xlsx", tbl)

	if err := e.SetValues("Title", "My study"); err != nil {
		t.Fatalf("SetValues() error: %v", err)
	}
	if v, _ := tbl.Cell(0, ValueColumn); v != "My study" {
		t.Fatalf("Value cell = %v", v)
	}

	err := e.SetValues("No such element", "x")
	if !errors.Is(err, apperr.ErrRowNotFound) {
		t.Fatalf("SetValues on absent element = %v, want ErrRowNotFound", err)
	}
}

func TestSetValuesSpreadsExtraColumns(t *testing.T) {
	tbl := descriptionTable()
	e := NewEditor("dataset_description", t.TempDir(), ".xlsx", tbl)

	if err := e.SetValues("Contributor name", []string{"Doe, Jane", "Roe, Riley"}); err != nil {
		t.Fatalf("SetValues() error: %v", err)
	}
	if v, _ := tbl.Cell(1, "Value"); v != "Doe, Jane" {
		t.Fatalf("Value cell = %v", v)
	}
	if v, _ := tbl.Cell(1, "Value 2"); v != "Roe, Riley" {
		t.Fatalf("Value 2 cell = %v", v)
	}
}

func TestSetValuesRowStyleGrowsRows(t *testing.T) {
	tbl := tabular.NewTable("subject id")
	tbl.Append(tabular.Row{"subject id": "sub-1"})
	e := NewEditor("subjects", t.TempDir(), ".xlsx", tbl)

	if err := e.SetValues("species", []string{"mouse", "rat"}); err != nil {
		t.Fatalf("SetValues() error: %v", err)
	}
	if !tbl.HasColumn("species") {
		t.Fatalf("species column missing")
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (row growth)", tbl.Len())
	}
	if v, _ := tbl.Cell(1, "species"); v != "rat" {
		t.Fatalf("grown row species = %v", v)
	}
}

func TestSaveDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	tbl := descriptionTable()

	e := NewEditor("dataset_description", dir, ".xlsx", tbl)
	if err := e.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(e.Path()); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	bad := NewEditor("manifest", dir, ".parquet", tbl)
	if err := bad.Save(); !errors.Is(err, apperr.ErrUnsupportedManifestFormat) {
		t.Fatalf("Save(.parquet) = %v, want ErrUnsupportedManifestFormat", err)
	}
}

func TestIsKnownAndStyle(t *testing.T) {
	if !IsKnown("subjects") || IsKnown("notes") {
		t.Fatalf("IsKnown misclassifies")
	}
	if !DescriptionStyle("code_description") || DescriptionStyle("subjects") {
		t.Fatalf("DescriptionStyle misclassifies")
	}
}
