package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/testutil"
)

func TestLoadFromTemplate(t *testing.T) {
	res := testutil.TestResources(t)
	ds := dataset.New(dataset.WithResourcesDir(res), dataset.WithLogger(testutil.Quiet()))
	if err := ds.LoadFromTemplate(""); err != nil {
		t.Fatalf("LoadFromTemplate: %v", err)
	}
	if ds.Version() != "2_0_0" {
		t.Errorf("version = %q, want 2_0_0", ds.Version())
	}
	if ds.Path() != "" {
		t.Errorf("path = %q, want empty before a directory is adopted", ds.Path())
	}
	names := ds.MetadataNames()
	for _, want := range []string{"dataset_description", "code_description", "subjects", "samples", "manifest", "submission"} {
		if !slices.Contains(names, want) {
			t.Errorf("metadata names %v missing %q", names, want)
		}
	}
	if _, ok := ds.Entry("primary"); !ok {
		t.Error("primary folder entry missing")
	}
	if _, ok := ds.Entry("docs"); !ok {
		t.Error("docs folder entry missing")
	}
}

func TestLoadDatasetRoundTrip(t *testing.T) {
	ds, root := testutil.TestDataset(t)
	if ds.Path() != root {
		t.Errorf("path = %q, want %q", ds.Path(), root)
	}
	if _, err := os.Stat(filepath.Join(root, "primary", ".gitkeep")); !os.IsNotExist(err) {
		t.Error("placeholder file survived the save")
	}
	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if got := ed.Data().Len(); got != 8 {
		t.Errorf("description rows = %d, want 8", got)
	}
	if !ed.Data().HasColumn("Value") {
		t.Error("Value column lost in the round trip")
	}
}

func TestGetMetadata_Unknown(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if _, err := ds.GetMetadata("banana"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGuards_NotLoaded(t *testing.T) {
	ds := dataset.New(dataset.WithLogger(testutil.Quiet()))
	if _, err := ds.GetMetadata("subjects"); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("GetMetadata error = %v, want ErrNotLoaded", err)
	}
	if err := ds.SetField("subjects", 2, "species", "mouse"); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("SetField error = %v, want ErrNotLoaded", err)
	}
	if err := ds.Save("anywhere", false, false); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("Save error = %v, want ErrNotLoaded", err)
	}
	if err := ds.SyncManifest("a.txt", ""); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("SyncManifest error = %v, want ErrNotLoaded", err)
	}
}

func TestSyncManifest_NeedsRoot(t *testing.T) {
	res := testutil.TestResources(t)
	ds := dataset.New(dataset.WithResourcesDir(res), dataset.WithLogger(testutil.Quiet()))
	if err := ds.LoadFromTemplate(""); err != nil {
		t.Fatal(err)
	}
	if err := ds.SyncManifest("a.txt", ""); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("error = %v, want ErrNotLoaded while no root is set", err)
	}
}

func TestVersionNormalization(t *testing.T) {
	ds := dataset.New(dataset.WithVersion("2.0.0"), dataset.WithLogger(testutil.Quiet()))
	if ds.Version() != "2_0_0" {
		t.Errorf("version = %q, want 2_0_0", ds.Version())
	}
	ds.SetVersion("1.2.3")
	if ds.Version() != "1_2_3" {
		t.Errorf("version = %q, want 1_2_3", ds.Version())
	}
	ds.SetVersion("3")
	if ds.Version() != "3_0_0" {
		t.Errorf("version = %q, want 3_0_0", ds.Version())
	}
}

func TestNewSubject_UnsupportedVersion(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	ds.SetVersion("9.9.9")
	if _, err := ds.NewSubject("sub-1"); !errors.Is(err, apperr.ErrUnsupportedVersion) {
		t.Errorf("error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestListMetadataFiles(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	files, err := ds.ListMetadataFiles("")
	if err != nil {
		t.Fatalf("ListMetadataFiles: %v", err)
	}
	if len(files) != 6 {
		t.Errorf("files = %v, want 6 entries", files)
	}
	if !slices.Contains(files, "dataset_description") {
		t.Errorf("files %v missing dataset_description", files)
	}
}

func TestListElements(t *testing.T) {
	ds, _ := testutil.TestDataset(t)

	cols, err := ds.ListElements("subjects", false)
	if err != nil {
		t.Fatalf("ListElements subjects: %v", err)
	}
	if !slices.Equal(cols, []string{"species", "sex"}) {
		t.Errorf("subjects elements = %v, want header names past the first", cols)
	}

	// The root description file always lists by row.
	rows, err := ds.ListElements("dataset_description", false)
	if err != nil {
		t.Fatalf("ListElements dataset_description: %v", err)
	}
	if len(rows) == 0 || rows[0] != "Title" {
		t.Errorf("description elements = %v, want Title first", rows)
	}
	if !slices.Contains(rows, "Number of subjects") {
		t.Errorf("description elements %v missing Number of subjects", rows)
	}
}

func TestDescribeElements(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	infos, err := ds.DescribeElements("subjects", "")
	if err != nil {
		t.Fatalf("DescribeElements: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("infos = %d, want 2", len(infos))
	}
	first := infos[0]
	if first.Element != "subject id" || first.Required != "Y" || first.Example != "sub-1" {
		t.Errorf("first info = %+v", first)
	}
}

func TestLoadMetadata_Rebind(t *testing.T) {
	ds, root := testutil.TestDataset(t)
	path := filepath.Join(root, "subjects.xlsx")
	nt := tabular.NewTable("subject id", "species")
	nt.Append(tabular.Row{"subject id": "sub-77", "species": "rat"})
	if err := tabular.WriteFile(path, nt); err != nil {
		t.Fatal(err)
	}

	got, err := ds.LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("rows = %d, want 1", got.Len())
	}
	ed, err := ds.GetMetadata("subjects")
	if err != nil {
		t.Fatal(err)
	}
	if ed.Data() != got {
		t.Error("editor not rebound to the reloaded table")
	}
}

func TestSaveTemplate(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	dest := t.TempDir()
	if err := ds.SaveTemplate(dest, ""); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "dataset_description.xlsx")); err != nil {
		t.Error("template description file not copied")
	}
	if _, err := os.Stat(filepath.Join(dest, "primary")); err != nil {
		t.Error("template primary folder not copied")
	}
}

func TestSaveTemplate_UnknownVersion(t *testing.T) {
	ds, _ := testutil.TestDataset(t)
	if err := ds.SaveTemplate(t.TempDir(), "9.9.9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGenerateFileFromTemplate(t *testing.T) {
	ds, _ := testutil.TestDataset(t)

	out := filepath.Join(t.TempDir(), "out", "subjects.xlsx")
	if err := ds.GenerateFileFromTemplate(out, "subjects", nil, false); err != nil {
		t.Fatalf("copy form: %v", err)
	}
	tbl, err := tabular.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !tbl.HasColumn("subject id") {
		t.Error("copied template lost its columns")
	}

	nt := tabular.NewTable("subject id")
	nt.Append(tabular.Row{"subject id": "sub-1"})
	out2 := filepath.Join(t.TempDir(), "filled.xlsx")
	if err := ds.GenerateFileFromTemplate(out2, "subjects", nt, true); err != nil {
		t.Fatalf("table form: %v", err)
	}
	tbl, err = tabular.ReadFile(out2)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 1 {
		t.Errorf("rows = %d, want 1", tbl.Len())
	}
}
