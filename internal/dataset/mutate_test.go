package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/testutil"
)

// elementValue reads the "Value" cell of the description row named
// element, rendered as a string.
func elementValue(t *testing.T, tbl *tabular.Table, element string) string {
	t.Helper()
	rows := tbl.FindRows("Metadata element", element)
	if len(rows) != 1 {
		t.Fatalf("element %q: %d matches", element, len(rows))
	}
	v, _ := tbl.Cell(rows[0], "Value")
	return tabular.ValueString(v)
}

func TestSetField(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if err := ds.SetField("dataset_description", 2, "Value", "Cortical maps"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	if got := elementValue(t, ed.Data(), "Title"); got != "Cortical maps" {
		t.Errorf("Title value = %q, want Cortical maps", got)
	}
}

func TestSetField_RowBounds(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if err := ds.SetField("dataset_description", 1, "Value", "x"); !errors.Is(err, apperr.ErrRowNotFound) {
		t.Errorf("header row error = %v, want ErrRowNotFound", err)
	}
	if err := ds.SetField("dataset_description", 0, "Value", "x"); !errors.Is(err, apperr.ErrRowNotFound) {
		t.Errorf("row zero error = %v, want ErrRowNotFound", err)
	}
	if err := ds.SetField("dataset_description", 99, "Value", "x"); !errors.Is(err, apperr.ErrRowNotFound) {
		t.Errorf("past-the-end error = %v, want ErrRowNotFound", err)
	}
}

func TestSetField_GrowsColumn(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if err := ds.SetField("dataset_description", 2, "Value 2", "alternate"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	if !ed.Data().HasColumn("Value 2") {
		t.Error("unknown header did not grow a column")
	}
}

func TestSetFieldByRowName(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if err := ds.SetFieldByRowName("dataset_description", "Keywords", "Value", "cortex"); err != nil {
		t.Fatalf("SetFieldByRowName: %v", err)
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	if got := elementValue(t, ed.Data(), "Keywords"); got != "cortex" {
		t.Errorf("Keywords value = %q, want cortex", got)
	}

	err = ds.SetFieldByRowName("dataset_description", "Nope", "Value", "x")
	if !errors.Is(err, apperr.ErrRowNotFound) {
		t.Errorf("unknown row error = %v, want ErrRowNotFound", err)
	}
}

func TestSetFieldByRowName_Ambiguous(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if _, err := ds.AddElement("dataset_description", "Title"); err != nil {
		t.Fatal(err)
	}
	err := ds.SetFieldByRowName("dataset_description", "Title", "Value", "x")
	if !errors.Is(err, apperr.ErrAmbiguousRow) {
		t.Errorf("duplicate row error = %v, want ErrAmbiguousRow", err)
	}
}

func TestAppend(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	grew, err := ds.Append("subjects", tabular.Row{"subject id": "sub-1", "species": "mouse"}, false, "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if grew {
		t.Error("known columns reported as new")
	}
	ed, err := ds.GetMetadata("subjects")
	if err != nil {
		t.Fatal(err)
	}
	if ed.Data().Len() != 1 {
		t.Fatalf("rows = %d, want 1", ed.Data().Len())
	}
}

func TestAppend_MergeOnExisting(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if _, err := ds.Append("subjects", tabular.Row{"subject id": "sub-1", "species": "mouse"}, false, ""); err != nil {
		t.Fatal(err)
	}

	grew, err := ds.Append("subjects", tabular.Row{"subject id": "sub-1", "age": "p56"}, true, "subject id")
	if err != nil {
		t.Fatalf("merge append: %v", err)
	}
	if !grew {
		t.Error("expected the age column to be new")
	}
	ed, err := ds.GetMetadata("subjects")
	if err != nil {
		t.Fatal(err)
	}
	tbl := ed.Data()
	if tbl.Len() != 1 {
		t.Fatalf("rows = %d, want 1 after merge", tbl.Len())
	}
	if v, _ := tbl.Cell(0, "species"); v != "mouse" {
		t.Errorf("species = %v, merge must keep untouched cells", v)
	}
	if v, _ := tbl.Cell(0, "age"); v != "p56" {
		t.Errorf("age = %v, want p56", v)
	}

	if _, err := ds.Append("subjects", tabular.Row{"subject id": "sub-2"}, true, "subject id"); err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 {
		t.Errorf("rows = %d, want 2 after a miss appends", tbl.Len())
	}
}

func TestAppend_CheckExistGuards(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if _, err := ds.Append("subjects", tabular.Row{"subject id": "s"}, true, ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("missing uniqueColumn error = %v, want ErrInvalidArgument", err)
	}
	if _, err := ds.Append("subjects", tabular.Row{"species": "mouse"}, true, "subject id"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("row without key value error = %v, want ErrInvalidArgument", err)
	}
	if _, err := ds.Append("subjects", tabular.Row{"strain id": "x"}, true, "strain id"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("unknown column error = %v, want ErrInvalidArgument", err)
	}
}

func TestAddElement(t *testing.T) {
	ds, _ := testutil.TestDataset(t)

	added, err := ds.AddElement("subjects", "handedness")
	if err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if !added {
		t.Error("expected a new column")
	}
	again, err := ds.AddElement("subjects", "handedness")
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Error("existing column reported as new")
	}

	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	before := ed.Data().Len()
	if _, err := ds.AddElement("dataset_description", "Funding source"); err != nil {
		t.Fatal(err)
	}
	if ed.Data().Len() != before+1 {
		t.Fatalf("rows = %d, want %d", ed.Data().Len(), before+1)
	}
	if v, _ := ed.Data().Cell(before, "Metadata element"); v != "Funding source" {
		t.Errorf("appended element = %v, want Funding source", v)
	}
}

func TestAddElement_ClearsExistingColumn(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if _, err := ds.Append("subjects", tabular.Row{"subject id": "sub-1", "species": "mouse"}, false, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ds.AddElement("subjects", "species"); err != nil {
		t.Fatal(err)
	}
	ed, err := ds.GetMetadata("subjects")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := ed.Data().Cell(0, "species"); ok {
		t.Errorf("species = %v, want the column nulled out", v)
	}
}

func TestUpdateFromJSONBytes(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	doc := []byte(`{
  "Title": "Cortical maps",
  "Keywords": ["mouse", "cortex"],
  "Contributor name": {
    "Contributor orcid": "0000-0001-2345-6789",
    "Contributor role": "Researcher"
  }
}`)
	if err := ds.UpdateFromJSONBytes("dataset_description", doc); err != nil {
		t.Fatalf("UpdateFromJSONBytes: %v", err)
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	tbl := ed.Data()
	if got := elementValue(t, tbl, "Title"); got != "Cortical maps" {
		t.Errorf("Title = %q", got)
	}
	if got := elementValue(t, tbl, "Keywords"); got != `["mouse","cortex"]` {
		t.Errorf("Keywords = %q, want the literal list text", got)
	}
	if got := elementValue(t, tbl, "    Contributor orcid"); got != "0000-0001-2345-6789" {
		t.Errorf("nested orcid = %q", got)
	}
	if got := elementValue(t, tbl, "    Contributor role"); got != "Researcher" {
		t.Errorf("nested role = %q", got)
	}
	// The grouping element itself stays untouched.
	if got := elementValue(t, tbl, "Contributor name"); got != "" {
		t.Errorf("Contributor name = %q, want empty", got)
	}
}

func TestUpdateFromJSONBytes_UnknownElement(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	err := ds.UpdateFromJSONBytes("dataset_description", []byte(`{"Nope": 1}`))
	if !errors.Is(err, apperr.ErrRowNotFound) {
		t.Errorf("error = %v, want ErrRowNotFound", err)
	}
}

func TestUpdateFromJSON_File(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	p := filepath.Join(t.TempDir(), "desc.json")
	if err := os.WriteFile(p, []byte(`{"Subtitle": "One sentence"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ds.UpdateFromJSON("dataset_description", p); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatal(err)
	}
	if got := elementValue(t, ed.Data(), "Subtitle"); got != "One sentence" {
		t.Errorf("Subtitle = %q", got)
	}
}
