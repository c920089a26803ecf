package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/fsops"
	"github.com/starford/sdskit/internal/template"
)

// AddSubjects saves the dataset's current state, registers each subject
// in the session index, relocates its data through Move, and finally
// recomputes the subject and sample counts from the primary tree.
func (d *Dataset) AddSubjects(subjects ...*Subject) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	if err := d.Save("", false, false); err != nil {
		return err
	}
	for _, s := range subjects {
		d.subjects[s.ID()] = s
		if err := s.Move(); err != nil {
			return err
		}
	}
	return d.updateCounts()
}

// GetSubject looks a subject up in the session index. The index covers
// only subjects added in this process, not ones already on disk.
func (d *Dataset) GetSubject(id string) (*Subject, error) {
	s, ok := d.subjects[id]
	if !ok {
		return nil, fmt.Errorf("dataset: subject %q not registered this session: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// AddDerivativeData ensures the derivative tree exists and places
// source data under derivative/<subject>/<sample>/.
func (d *Dataset) AddDerivativeData(source, subject, sample string, copyData, overwrite bool) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	if err := fsops.EnsureDir(filepath.Join(d.path, "derivative")); err != nil {
		return err
	}
	return d.AddSampleData(source, subject, sample, "derivative", copyData, overwrite)
}

// AddSampleData places a source file, or every top-level file of a
// source directory, under <dataType>/<subject>/<sample>/ and records
// each placed file in the manifest. An existing destination needs
// overwrite: a directory source wipes and recreates it, a file source
// clears only the colliding file. A source directory containing any
// subdirectory is skipped whole with a warning; nested directories are
// not supported.
func (d *Dataset) AddSampleData(source, subject, sample, dataType string, copyData, overwrite bool) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("dataset: source %s: %w", source, apperr.ErrNotFound)
	}
	dest := filepath.Join(d.path, dataType, subject, sample)

	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("dataset: destination %s exists: %w", dest, apperr.ErrAlreadyExists)
		}
		if info.IsDir() {
			if err := fsops.RemoveTree(dest); err != nil {
				return err
			}
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("dataset: mkdir %s: %w", dest, err)
			}
		} else {
			if err := os.Remove(filepath.Join(dest, filepath.Base(source))); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("dataset: clear colliding file: %w", err)
			}
		}
	} else if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("dataset: mkdir %s: %w", dest, err)
	}

	description := fmt.Sprintf("File of subject %s sample %s", subject, sample)
	if !info.IsDir() {
		if err := d.placeFile(source, dest, copyData); err != nil {
			return err
		}
		return d.SyncManifest(filepath.Join(dest, filepath.Base(source)), description)
	}

	children, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", source, err)
	}
	for _, child := range children {
		if child.IsDir() {
			d.log.Warn("source directory contains a subdirectory, skipping it entirely",
				"source", source, "subdir", child.Name())
			return nil
		}
	}
	for _, child := range children {
		src := filepath.Join(source, child.Name())
		if err := d.placeFile(src, dest, copyData); err != nil {
			return err
		}
		if err := d.SyncManifest(filepath.Join(dest, child.Name()), description); err != nil {
			return err
		}
	}
	return nil
}

// AddThumbnail places a thumbnail file under docs/ and records it in
// the manifest.
func (d *Dataset) AddThumbnail(source string, copyData, overwrite bool) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	info, err := os.Stat(source)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("dataset: thumbnail source %s must be a file: %w", source, apperr.ErrInvalidArgument)
	}
	dest := filepath.Join(d.path, "docs", filepath.Base(source))
	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("dataset: thumbnail %s exists: %w", dest, apperr.ErrAlreadyExists)
		}
		if err := fsops.RemoveTree(dest); err != nil {
			return err
		}
	}
	if err := d.placeFile(source, filepath.Join(d.path, "docs"), copyData); err != nil {
		return err
	}
	return d.SyncManifest(dest, "This is a thumbnail file")
}

// DeleteSubjects cascades DeleteSubject over a list of folders.
func (d *Dataset) DeleteSubjects(folders []string, dataType string) error {
	for _, f := range folders {
		if err := d.DeleteSubject(f, dataType); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSubject removes a subject folder: every immediate sample
// subfolder is deleted first (cascading through DeleteSample), then the
// folder itself. For primary data the counts are recomputed and the
// subject's row dropped from the subjects file.
func (d *Dataset) DeleteSubject(folder, dataType string) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("dataset: subject folder %s: %w", folder, apperr.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset: %s: %w", folder, apperr.ErrNotADirectory)
	}
	samples, err := fsops.ListSubdirs(folder)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := d.DeleteSample(filepath.Join(folder, s), dataType); err != nil {
			return err
		}
	}
	if err := os.Remove(folder); err != nil {
		return fmt.Errorf("dataset: remove %s: %w", folder, err)
	}
	if dataType != "primary" {
		return nil
	}
	if err := d.updateCounts(); err != nil {
		return err
	}
	schema, err := template.Select(d.version)
	if err != nil {
		return err
	}
	ed, err := d.GetMetadata("subjects")
	if err != nil {
		return err
	}
	ed.Data().RemoveRows(schema.SubjectID, filepath.Base(folder))
	return ed.Save()
}

// DeleteSamples cascades DeleteSample over a list of folders.
func (d *Dataset) DeleteSamples(folders []string, dataType string) error {
	for _, f := range folders {
		if err := d.DeleteSample(f, dataType); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSample removes a sample folder: every item inside goes through
// DeleteData (clearing manifest rows for files), then the folder itself.
// For primary data the counts are recomputed and the sample's row
// dropped from the samples file.
func (d *Dataset) DeleteSample(folder, dataType string) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("dataset: sample folder %s: %w", folder, apperr.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset: %s: %w", folder, apperr.ErrNotADirectory)
	}
	children, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", folder, err)
	}
	for _, child := range children {
		if err := d.DeleteData(filepath.Join(folder, child.Name())); err != nil {
			return err
		}
	}
	if err := os.Remove(folder); err != nil {
		return fmt.Errorf("dataset: remove %s: %w", folder, err)
	}
	if dataType != "primary" {
		return nil
	}
	if err := d.updateCounts(); err != nil {
		return err
	}
	schema, err := template.Select(d.version)
	if err != nil {
		return err
	}
	ed, err := d.GetMetadata("samples")
	if err != nil {
		return err
	}
	ed.Data().RemoveRows(schema.SampleID, filepath.Base(folder))
	return ed.Save()
}

// DeleteData removes a file or directory tree. Deleting a file also
// drops its manifest row and persists the manifest; directory deletions
// leave the manifest alone.
func (d *Dataset) DeleteData(path string) error {
	if err := d.ensurePath(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("dataset: %s: %w", path, apperr.ErrNotFound)
	}
	if info.IsDir() {
		return fsops.RemoveTree(path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("dataset: remove %s: %w", path, err)
	}
	rel, ok := d.relToRoot(path)
	if !ok {
		return nil
	}
	ed, err := d.GetMetadata("manifest")
	if err != nil {
		return err
	}
	ed.RemoveRow(rel)
	return ed.Save()
}

// updateCounts recounts subjects and samples from the primary tree and
// persists both numbers into the root description file.
func (d *Dataset) updateCounts() error {
	primary := filepath.Join(d.path, "primary")
	subjects, err := fsops.ListSubdirs(primary)
	if err != nil {
		return err
	}
	samples := 0
	for _, s := range subjects {
		inner, err := fsops.ListSubdirs(filepath.Join(primary, s))
		if err != nil {
			return err
		}
		samples += len(inner)
	}
	ed, err := d.GetMetadata("dataset_description")
	if err != nil {
		return err
	}
	if err := ed.SetValues("Number of subjects", len(subjects)); err != nil {
		return err
	}
	if err := ed.SetValues("Number of samples", samples); err != nil {
		return err
	}
	return ed.Save()
}

// placeFile copies or moves one file into a destination directory.
func (d *Dataset) placeFile(src, destDir string, copyData bool) error {
	target := filepath.Join(destDir, filepath.Base(src))
	if copyData {
		return fsops.CopyFile(src, target)
	}
	return fsops.MoveFile(src, target)
}
