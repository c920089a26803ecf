package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/testutil"
)

func testServer(t *testing.T) (*Server, *dataset.Dataset) {
	t.Helper()

	ds, _ := testutil.TestDataset(t)
	srv := New(ds)
	return srv, ds
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_metadata":
		result, err = srv.listMetadata(ctx, req)
	case "read_metadata":
		result, err = srv.readMetadata(ctx, req)
	case "set_field":
		result, err = srv.setField(ctx, req)
	case "set_field_by_name":
		result, err = srv.setFieldByName(ctx, req)
	case "append_row":
		result, err = srv.appendRow(ctx, req)
	case "add_data_file":
		result, err = srv.addDataFile(ctx, req)
	case "save":
		result, err = srv.save(ctx, req)
	case "get_layout_contract":
		result, err = srv.getLayoutContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListMetadata(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_metadata", map[string]interface{}{})
	names := strings.Split(resultText(r), "\n")
	for _, want := range []string{"dataset_description", "subjects", "samples", "manifest"} {
		if !slices.Contains(names, want) {
			t.Errorf("list_metadata missing %q in %v", want, names)
		}
	}
}

func TestReadMetadata(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_metadata", map[string]interface{}{"metadata": "subjects"})
	var doc struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("read_metadata result is not JSON: %v", err)
	}
	if !slices.Contains(doc.Columns, "subject id") {
		t.Errorf("columns = %v, want subject id present", doc.Columns)
	}
	if len(doc.Rows) != 0 {
		t.Errorf("rows = %d, want 0 in fresh template", len(doc.Rows))
	}
}

func TestReadMetadata_Unknown(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_metadata", map[string]interface{}{"metadata": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown metadata table")
	}
}

func TestSetFieldByName(t *testing.T) {
	srv, ds := testServer(t)

	r := callTool(t, srv, "set_field_by_name", map[string]interface{}{
		"metadata": "dataset_description",
		"row_name": "Title",
		"header":   "Value",
		"value":    "Cortical recordings",
	})
	if r.IsError {
		t.Fatalf("set_field_by_name failed: %s", resultText(r))
	}

	ed, err := ds.GetMetadata("dataset_description")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	rows := ed.Data().FindRows("Metadata element", "Title")
	if len(rows) != 1 {
		t.Fatalf("Title rows = %d, want 1", len(rows))
	}
	if v, _ := ed.Data().Cell(rows[0], "Value"); v != "Cortical recordings" {
		t.Errorf("Value = %v, want Cortical recordings", v)
	}
}

func TestSetField_RowErrorIsToolError(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "set_field", map[string]interface{}{
		"metadata": "dataset_description",
		"row":      99,
		"header":   "Value",
		"value":    "x",
	})
	if !r.IsError {
		t.Error("expected tool error for out-of-range row")
	}
	if !strings.Contains(resultText(r), "row") {
		t.Errorf("error text = %q, want row mention", resultText(r))
	}
}

func TestAppendRow(t *testing.T) {
	srv, ds := testServer(t)

	r := callTool(t, srv, "append_row", map[string]interface{}{
		"metadata": "subjects",
		"row":      `{"subject id": "sub-9", "species": "rat"}`,
	})
	if r.IsError {
		t.Fatalf("append_row failed: %s", resultText(r))
	}

	// Same key with unique_column merges instead of duplicating.
	r = callTool(t, srv, "append_row", map[string]interface{}{
		"metadata":      "subjects",
		"row":           `{"subject id": "sub-9", "sex": "f"}`,
		"unique_column": "subject id",
	})
	if r.IsError {
		t.Fatalf("append_row merge failed: %s", resultText(r))
	}

	ed, err := ds.GetMetadata("subjects")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if ed.Data().Len() != 1 {
		t.Errorf("subjects rows = %d, want 1 after merge", ed.Data().Len())
	}
	if v, _ := ed.Data().Cell(0, "sex"); v != "f" {
		t.Errorf("sex = %v, want f", v)
	}
}

func TestAppendRow_BadJSON(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "append_row", map[string]interface{}{
		"metadata": "subjects",
		"row":      "not json",
	})
	if !r.IsError {
		t.Error("expected error for malformed row JSON")
	}
}

func TestAddDataFile(t *testing.T) {
	srv, ds := testServer(t)

	source := filepath.Join(t.TempDir(), "trace.csv")
	if err := os.WriteFile(source, []byte("t,v\n0,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "add_data_file", map[string]interface{}{
		"source":  source,
		"subject": "sub-1",
		"sample":  "sam-1",
	})
	if r.IsError {
		t.Fatalf("add_data_file failed: %s", resultText(r))
	}
	if got := resultText(r); got != "added: primary/sub-1/sam-1/trace.csv" {
		t.Errorf("result = %q", got)
	}

	placed := filepath.Join(ds.Path(), "primary", "sub-1", "sam-1", "trace.csv")
	if _, err := os.Stat(placed); err != nil {
		t.Errorf("placed file missing: %v", err)
	}

	ed, err := ds.GetMetadata("manifest")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if rows := ed.Data().FindRows("filename", "primary/sub-1/sam-1/trace.csv"); len(rows) != 1 {
		t.Errorf("manifest rows = %d, want 1", len(rows))
	}
}

func TestAddDataFile_BadArguments(t *testing.T) {
	srv, _ := testServer(t)

	source := filepath.Join(t.TempDir(), "trace.csv")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "add_data_file", map[string]interface{}{
		"source": source, "subject": "sub-1", "sample": "sam-1", "data_type": "misc",
	})
	if !r.IsError {
		t.Error("expected error for unsupported data_type")
	}

	r = callTool(t, srv, "add_data_file", map[string]interface{}{
		"source": source, "subject": "../sub-1", "sample": "sam-1",
	})
	if !r.IsError {
		t.Error("expected error for path traversal in subject")
	}

	r = callTool(t, srv, "add_data_file", map[string]interface{}{
		"source": filepath.Join(t.TempDir(), "ghost.csv"), "subject": "sub-1", "sample": "sam-1",
	})
	if !r.IsError {
		t.Error("expected error for missing source")
	}
}

func TestAddDataFile_NestedSourceSkipped(t *testing.T) {
	srv, _ := testServer(t)

	source := filepath.Join(t.TempDir(), "bundle")
	if err := os.MkdirAll(filepath.Join(source, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "add_data_file", map[string]interface{}{
		"source": source, "subject": "sub-1", "sample": "sam-1",
	})
	if r.IsError {
		t.Fatalf("add_data_file errored: %s", resultText(r))
	}
	if !strings.HasPrefix(resultText(r), "skipped:") {
		t.Errorf("result = %q, want skipped prefix", resultText(r))
	}
}

func TestSaveTool(t *testing.T) {
	srv, _ := testServer(t)

	dest := filepath.Join(t.TempDir(), "out")
	r := callTool(t, srv, "save", map[string]interface{}{"dir": dest})
	if r.IsError {
		t.Fatalf("save failed: %s", resultText(r))
	}
	if _, err := os.Stat(filepath.Join(dest, "dataset_description.xlsx")); err != nil {
		t.Errorf("saved metadata missing: %v", err)
	}
}

func TestGetLayoutContract(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_layout_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "primary/") || !strings.Contains(text, "manifest") {
		t.Error("layout contract missing expected sections")
	}
}
