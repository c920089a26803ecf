// Package metadata implements the per-file editor objects a dataset
// mutates its tabular metadata through, and the registry of file names
// a dataset package is allowed to carry.
package metadata

// Columns shared by the description-style workbooks.
const (
	ElementColumn = "Metadata element"
	ValueColumn   = "Value"
)

// Manifest file conventions. The timestamp layout is second-precision
// UTC with no zone suffix.
const (
	ManifestName    = "manifest"
	TimestampLayout = "2006-01-02 15:04:05"
)

// ManifestColumns returns the manifest column set in canonical order.
func ManifestColumns() []string {
	return []string{"filename", "description", "timestamp", "file type"}
}

// KnownFiles lists the metadata file names a dataset package may carry,
// in canonical order.
func KnownFiles() []string {
	return []string{
		"code_description",
		"code_parameters",
		"dataset_description",
		"manifest",
		"performances",
		"resources",
		"samples",
		"subjects",
		"submission",
	}
}

// IsKnown reports whether name is one of the recognized metadata files.
func IsKnown(name string) bool {
	for _, k := range KnownFiles() {
		if k == name {
			return true
		}
	}
	return false
}

// DescriptionStyle reports whether a metadata file keys one element per
// row under the element-name column, instead of one element per column.
func DescriptionStyle(name string) bool {
	return name == "dataset_description" || name == "code_description"
}
