// Package dataset implements the versioned dataset package model:
// loading a bundled template or an existing package from disk, mutating
// its metadata tables, managing subject and sample folders, keeping the
// file manifest in step, and saving the whole tree back out.
package dataset

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/template"
)

// Dataset owns the in-memory model of one dataset package: the ordered
// entry map produced by loading, the per-file metadata editors built on
// top of it, and the subjects registered in this session. It is not safe
// for concurrent use; callers serialize access externally.
type Dataset struct {
	log          *slog.Logger
	clock        clockwork.Clock
	styler       tabular.Styler
	resourcesDir string

	version  string
	path     string
	entries  *orderedmap.OrderedMap[string, Entry]
	registry map[string]*metadata.Editor
	subjects map[string]*Subject
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithLogger sets the logger used for operational messages.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dataset) {
		d.log = log
	}
}

// WithClock sets the clock manifest timestamps are taken from.
func WithClock(c clockwork.Clock) Option {
	return func(d *Dataset) {
		d.clock = c
	}
}

// WithResourcesDir sets the directory bundled templates are resolved
// under.
func WithResourcesDir(dir string) Option {
	return func(d *Dataset) {
		d.resourcesDir = dir
	}
}

// WithVersion pins the dataset version. The value is normalized; it is
// not validated until a schema lookup needs it.
func WithVersion(v string) Option {
	return func(d *Dataset) {
		d.version = template.Normalize(v)
	}
}

// WithStyler sets the collaborator that reapplies template styling to
// saved workbooks.
func WithStyler(s tabular.Styler) Option {
	return func(d *Dataset) {
		d.styler = s
	}
}

// New creates an empty Dataset. Populate it with LoadFromTemplate or
// LoadDataset.
func New(opts ...Option) *Dataset {
	d := &Dataset{
		log:          slog.Default(),
		clock:        clockwork.NewRealClock(),
		styler:       tabular.WorkbookStyler{},
		resourcesDir: "resources",
		version:      template.Normalize(template.Default),
		entries:      orderedmap.New[string, Entry](),
		registry:     map[string]*metadata.Editor{},
		subjects:     map[string]*Subject{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Version returns the normalized dataset version.
func (d *Dataset) Version() string { return d.version }

// SetVersion changes the dataset version. Like WithVersion it only
// normalizes; schema validation happens on lookup.
func (d *Dataset) SetVersion(v string) { d.version = template.Normalize(v) }

// Path returns the dataset root directory, empty until the dataset has
// been loaded from (or pointed at) a directory.
func (d *Dataset) Path() string { return d.path }

// SetPath points the dataset at a root directory and rebinds the
// metadata editors to it.
func (d *Dataset) SetPath(path string) {
	d.path = path
	d.buildRegistry()
}

// EntryNames returns the logical names of all entries in load order.
func (d *Dataset) EntryNames() []string {
	out := make([]string, 0, d.entries.Len())
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// MetadataNames returns the names of the tabular entries in load order.
func (d *Dataset) MetadataNames() []string {
	var out []string
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := pair.Value.(*TabularEntry); ok {
			out = append(out, pair.Key)
		}
	}
	return out
}

// Entry returns the entry registered under a logical name.
func (d *Dataset) Entry(name string) (Entry, bool) {
	return d.entries.Get(name)
}

// GetMetadata returns the editor for a known, loaded metadata file.
func (d *Dataset) GetMetadata(name string) (*metadata.Editor, error) {
	if err := d.ensureLoaded(); err != nil {
		return nil, err
	}
	ed, ok := d.registry[name]
	if !ok {
		return nil, fmt.Errorf("dataset: metadata file %q: %w", name, apperr.ErrNotFound)
	}
	return ed, nil
}

// ensureLoaded guards operations that need a populated entry map.
func (d *Dataset) ensureLoaded() error {
	if d.entries.Len() == 0 {
		return apperr.ErrNotLoaded
	}
	return nil
}

// ensurePath guards operations that touch the dataset tree on disk.
func (d *Dataset) ensurePath() error {
	if err := d.ensureLoaded(); err != nil {
		return err
	}
	if d.path == "" {
		return fmt.Errorf("dataset: root directory not set: %w", apperr.ErrNotLoaded)
	}
	return nil
}

// link assembles the context object handed to subjects and samples so
// they can reach back into the dataset without package-level state.
func (d *Dataset) link() (*Link, error) {
	if err := d.ensurePath(); err != nil {
		return nil, err
	}
	schema, err := template.Select(d.version)
	if err != nil {
		return nil, err
	}
	subjects, err := d.GetMetadata("subjects")
	if err != nil {
		return nil, err
	}
	samples, err := d.GetMetadata("samples")
	if err != nil {
		return nil, err
	}
	return &Link{
		DatasetPath: d.path,
		Schema:      schema,
		Subjects:    subjects,
		Samples:     samples,
		Sync:        d.SyncManifest,
		Log:         d.log,
	}, nil
}

// buildRegistry rebuilds the name → editor map from the current entries.
// It is called after every load, never patched incrementally.
func (d *Dataset) buildRegistry() {
	reg := make(map[string]*metadata.Editor)
	for _, name := range metadata.KnownFiles() {
		entry, ok := d.entries.Get(name)
		if !ok {
			continue
		}
		te, ok := entry.(*TabularEntry)
		if !ok {
			continue
		}
		reg[name] = metadata.NewEditor(name, d.path, extOf(te.Source), te.Table)
	}
	d.registry = reg
}
