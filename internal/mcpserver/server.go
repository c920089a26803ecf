// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dataset editing tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/tabular"
)

// Server wraps the MCP server with dataset tools.
type Server struct {
	mcp *server.MCPServer
	ds  *dataset.Dataset
}

// New creates a new MCP server with all dataset tools registered.
func New(ds *dataset.Dataset) *Server {
	s := &Server{ds: ds}

	s.mcp = server.NewMCPServer(
		"sdskit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_metadata",
		mcp.WithDescription("List the logical names of the dataset's metadata tables."),
	), s.listMetadata)

	s.mcp.AddTool(mcp.NewTool("read_metadata",
		mcp.WithDescription("Read a metadata table as JSON with its column order and rows."),
		mcp.WithString("metadata", mcp.Required(), mcp.Description("Logical table name (e.g. subjects, dataset_description)")),
	), s.readMetadata)

	s.mcp.AddTool(mcp.NewTool("set_field",
		mcp.WithDescription("Set one cell of a metadata table by spreadsheet row number. "+
			"Row numbers count from the header, so the first value row is 2. "+
			"An unknown header adds a new column."),
		mcp.WithString("metadata", mcp.Required(), mcp.Description("Logical table name")),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Spreadsheet row number (first value row is 2)")),
		mcp.WithString("header", mcp.Required(), mcp.Description("Column header")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Cell value")),
	), s.setField)

	s.mcp.AddTool(mcp.NewTool("set_field_by_name",
		mcp.WithDescription("Set one cell of a metadata table by the value of its first column "+
			"(e.g. the metadata element name in dataset_description)."),
		mcp.WithString("metadata", mcp.Required(), mcp.Description("Logical table name")),
		mcp.WithString("row_name", mcp.Required(), mcp.Description("Value of the row's first column")),
		mcp.WithString("header", mcp.Required(), mcp.Description("Column header")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Cell value")),
	), s.setFieldByName)

	s.mcp.AddTool(mcp.NewTool("append_row",
		mcp.WithDescription("Append a row to a metadata table. When unique_column is given and a "+
			"row with the same value already exists, the new cells are merged into that row instead."),
		mcp.WithString("metadata", mcp.Required(), mcp.Description("Logical table name")),
		mcp.WithString("row", mcp.Required(), mcp.Description("Row cells as a JSON object of column to value")),
		mcp.WithString("unique_column", mcp.Description("Column that identifies an existing row to merge into")),
	), s.appendRow)

	s.mcp.AddTool(mcp.NewTool("add_data_file",
		mcp.WithDescription("Copy a file into a subject/sample folder and record it in the manifest. "+
			"Read the layout contract first via the get_layout_contract tool or the "+
			"sds://dataset-layout resource."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Path of the file to add")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject folder name (e.g. sub-1)")),
		mcp.WithString("sample", mcp.Required(), mcp.Description("Sample folder name (e.g. sam-1)")),
		mcp.WithString("data_type", mcp.Description("Target tree: primary (default) or derivative")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace the destination file if it already exists")),
	), s.addDataFile)

	s.mcp.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Write the dataset's metadata tables back to disk."),
		mcp.WithString("dir", mcp.Description("Destination directory (empty saves in place)")),
		mcp.WithBoolean("remove_empty", mcp.Description("Drop dataset_description rows without a Value")),
		mcp.WithBoolean("keep_style", mcp.Description("Reapply template workbook styling")),
	), s.save)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the canonical dataset directory layout contract. "+
			"Call this before adding data files to ensure correct placement."),
	), s.getLayoutContract)

	// Resource: dataset layout contract.
	s.mcp.AddResource(
		mcp.NewResource("sds://dataset-layout", "Dataset Layout Contract",
			mcp.WithResourceDescription("Canonical directory layout that all managed datasets follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.ds.MetadataNames()
	if len(names) == 0 {
		return mcp.NewToolResultText("no metadata tables loaded"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

// tableDoc is the JSON shape read_metadata returns.
type tableDoc struct {
	Columns []string      `json:"columns"`
	Rows    []tabular.Row `json:"rows"`
}

func (s *Server) readMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("metadata")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ed, err := s.ds.GetMetadata(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc := tableDoc{Columns: ed.Data().Columns(), Rows: make([]tabular.Row, 0, ed.Data().Len())}
	for i := 0; i < ed.Data().Len(); i++ {
		doc.Rows = append(doc.Rows, ed.Data().RowAt(i))
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("metadata")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := req.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header, err := req.RequireString("header")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.ds.SetField(name, row, header, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("set %s row %d %s", name, row, header)), nil
}

func (s *Server) setFieldByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("metadata")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rowName, err := req.RequireString("row_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header, err := req.RequireString("header")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.ds.SetFieldByRowName(name, rowName, header, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("set %s row %q %s", name, rowName, header)), nil
}

func (s *Server) appendRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("metadata")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rowJSON, err := req.RequireString("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	row, err := tabular.ParseRow([]byte(rowJSON))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	uniqueColumn := req.GetString("unique_column", "")

	grew, err := s.ds.Append(name, row, uniqueColumn != "", uniqueColumn)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("appended row to %s", name)
	if grew {
		msg += " (new columns added)"
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) save(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", "")
	removeEmpty := req.GetBool("remove_empty", false)
	keepStyle := req.GetBool("keep_style", false)

	if err := s.ds.Save(dir, removeEmpty, keepStyle); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if dir == "" {
		dir = s.ds.Path()
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", dir)), nil
}

func (s *Server) getLayoutContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DatasetLayoutContract), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "sds://dataset-layout",
			MIMEType: "text/markdown",
			Text:     DatasetLayoutContract,
		},
	}, nil
}
