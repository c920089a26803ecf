// Package apperr defines the closed set of error kinds surfaced by dataset
// operations. Call sites wrap a kind with fmt.Errorf("...: %w", kind) so
// callers dispatch with errors.Is instead of matching message text.
package apperr

import "errors"

var (
	// ErrNotLoaded means the operation requires a loaded dataset.
	ErrNotLoaded = errors.New("dataset not loaded")

	// ErrInvalidArgument means an argument had the wrong shape, such as a
	// missing companion argument or a file where a directory is required.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRowNotFound means a lookup by row index or unique value matched
	// nothing.
	ErrRowNotFound = errors.New("row not found")

	// ErrAmbiguousRow means a lookup by unique value matched more than one
	// row.
	ErrAmbiguousRow = errors.New("ambiguous row")

	// ErrUnsupportedVersion means the version string maps to no known
	// schema family.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrUnsupportedManifestFormat means the manifest file extension is not
	// one of the recognized on-disk forms.
	ErrUnsupportedManifestFormat = errors.New("unsupported manifest format")

	// ErrAlreadyExists means the destination collides and overwrite was not
	// requested.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound means a filesystem target or registry entry is missing.
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory means a directory path is occupied by a regular file.
	ErrNotADirectory = errors.New("not a directory")
)
