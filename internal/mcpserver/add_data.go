package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
)

var folderNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func (s *Server) addDataFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subject, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sample, err := req.RequireString("sample")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dataType := req.GetString("data_type", "primary")
	overwrite := req.GetBool("overwrite", false)

	if dataType != "primary" && dataType != "derivative" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported data_type: %s (allowed: primary, derivative)", dataType)), nil
	}
	if !folderNameRe.MatchString(subject) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid subject folder name: %q", subject)), nil
	}
	if !folderNameRe.MatchString(sample) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid sample folder name: %q", sample)), nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source not found: %s", source)), nil
	}

	// Directory sources with subdirectories are skipped whole; detect
	// that up front so the result says so instead of "added".
	hasNested := false
	if info.IsDir() {
		children, readErr := os.ReadDir(source)
		if readErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read source: %v", readErr)), nil
		}
		for _, child := range children {
			if child.IsDir() {
				hasNested = true
				break
			}
		}
	}

	// The tool always copies; moving the source out from under the
	// caller is not something an LLM should trigger.
	if dataType == "derivative" {
		err = s.ds.AddDerivativeData(source, subject, sample, true, overwrite)
	} else {
		err = s.ds.AddSampleData(source, subject, sample, dataType, true, overwrite)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hasNested {
		return mcp.NewToolResultText(fmt.Sprintf("skipped: %s contains nested directories", source)), nil
	}

	placed := path.Join(dataType, subject, sample)
	if !info.IsDir() {
		placed = path.Join(placed, filepath.Base(source))
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", placed)), nil
}
