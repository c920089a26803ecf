package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/fsops"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
	"github.com/starford/sdskit/internal/template"
)

// Link carries the wiring a Subject or Sample needs to reach back into
// its dataset: where the tree lives, which columns identify subjects
// and samples in this version, the shared editors for both files, and
// the manifest synchronizer. Each dataset hands its own Link to the
// subjects it creates, so several datasets can coexist in one process.
type Link struct {
	DatasetPath string
	Schema      template.Schema
	Subjects    *metadata.Editor
	Samples     *metadata.Editor
	Sync        func(path, description string) error
	Log         *slog.Logger
}

// Subject is one study subject staged for relocation into the dataset
// tree. Create subjects with Dataset.NewSubject.
type Subject struct {
	id      string
	link    *Link
	samples []*Sample
}

// NewSubject creates a subject wired to this dataset. It needs a loaded
// dataset with a root directory, a supported version schema, and loaded
// subjects and samples files.
func (d *Dataset) NewSubject(id string) (*Subject, error) {
	if id == "" {
		return nil, fmt.Errorf("dataset: empty subject id: %w", apperr.ErrInvalidArgument)
	}
	link, err := d.link()
	if err != nil {
		return nil, err
	}
	return &Subject{id: id, link: link}, nil
}

// ID returns the subject identifier.
func (s *Subject) ID() string { return s.id }

// Samples returns the samples staged so far.
func (s *Subject) Samples() []*Sample { return s.samples }

// AddSample stages a sample with the source files that will land under
// primary/<subject>/<sample>/ when the subject moves.
func (s *Subject) AddSample(id string, sources ...string) *Sample {
	sample := &Sample{id: id, subjectID: s.id, link: s.link, sources: sources}
	s.samples = append(s.samples, sample)
	return sample
}

// Move relocates every staged sample into the dataset tree, then
// upserts this subject's row in the subjects file and saves it.
func (s *Subject) Move() error {
	for _, sample := range s.samples {
		if err := sample.Move(); err != nil {
			return err
		}
	}
	upsertRow(s.link.Subjects.Data(), tabular.Row{s.link.Schema.SubjectID: s.id}, s.link.Schema.SubjectID)
	if err := s.link.Subjects.Save(); err != nil {
		return err
	}
	s.link.Log.Info("subject moved into dataset", "subject", s.id, "samples", len(s.samples))
	return nil
}

// Sample is one sample of a subject, staged with the source files it
// owns.
type Sample struct {
	id        string
	subjectID string
	link      *Link
	sources   []string
}

// ID returns the sample identifier.
func (s *Sample) ID() string { return s.id }

// AddSource stages another source file.
func (s *Sample) AddSource(paths ...string) {
	s.sources = append(s.sources, paths...)
}

// Move copies this sample's source files under
// primary/<subject>/<sample>/, records each in the manifest, then
// upserts the sample's row in the samples file and saves it.
func (s *Sample) Move() error {
	dest := filepath.Join(s.link.DatasetPath, "primary", s.subjectID, s.id)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("dataset: mkdir %s: %w", dest, err)
	}
	description := fmt.Sprintf("File of subject %s sample %s", s.subjectID, s.id)
	for _, src := range s.sources {
		target := filepath.Join(dest, filepath.Base(src))
		if err := fsops.CopyFile(src, target); err != nil {
			return err
		}
		if err := s.link.Sync(target, description); err != nil {
			return err
		}
	}
	row := tabular.Row{
		s.link.Schema.SubjectID: s.subjectID,
		s.link.Schema.SampleID:  s.id,
	}
	upsertRow(s.link.Samples.Data(), row, s.link.Schema.SampleID)
	return s.link.Samples.Save()
}

// upsertRow merges row into the first match on uniqueCol, or appends a
// fresh row when there is none.
func upsertRow(t *tabular.Table, row tabular.Row, uniqueCol string) {
	if t.HasColumn(uniqueCol) {
		if rows := t.FindRows(uniqueCol, row[uniqueCol]); len(rows) > 0 {
			t.MergeRow(rows[0], row)
			return
		}
	}
	t.Append(row)
}
