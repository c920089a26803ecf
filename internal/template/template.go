// Package template resolves bundled dataset template directories and the
// version-specific column schemas used to key subject and sample rows.
package template

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/sdskit/internal/apperr"
)

// Default is the template version used when a caller does not pin one.
const Default = "2.0.0"

// Normalize converts a version string to its canonical underscore form:
// dots become underscores, and a version with no separator at all gains
// a "_0_0" suffix, so "2.0.0", "2_0_0" and "2" normalize identically.
func Normalize(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), ".", "_")
	if !strings.Contains(v, "_") {
		v += "_0_0"
	}
	return v
}

// Dir returns the bundled skeleton directory for a version. Existence is
// not checked here; a missing template surfaces when it is first read.
func Dir(resourcesDir, version string) string {
	return filepath.Join(resourcesDir, "templates", "version_"+Normalize(version), "DatasetTemplate")
}

// SchemaWorkbook returns the path of a version's element-schema
// workbook, kept beside the skeleton directory.
func SchemaWorkbook(resourcesDir, version string) string {
	return filepath.Join(resourcesDir, "templates", "version_"+Normalize(version), "schema.xlsx")
}

// Schema names the identifier columns the subjects and samples files of
// a version key their rows by.
type Schema struct {
	SubjectID string
	SampleID  string
}

// Select maps a version to its column schema. Only the 2.0.0 and 1.2.3
// families are recognized; any other version resolves templates fine but
// has no schema.
func Select(version string) (Schema, error) {
	switch Normalize(version) {
	case "2_0_0":
		return Schema{SubjectID: "subject id", SampleID: "sample id"}, nil
	case "1_2_3":
		return Schema{SubjectID: "subject_id", SampleID: "sample_id"}, nil
	default:
		return Schema{}, fmt.Errorf("template: version %q: %w", version, apperr.ErrUnsupportedVersion)
	}
}
