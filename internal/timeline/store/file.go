package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"civitas/internal/timeline/models"
	"civitas/internal/timeline/snapshots"
	"civitas/pkg/platform/sentinel"
)

// FileStore writes run artifacts as indented JSON files into one directory.
// A save replaces the previous run's snapshot files.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string { return s.dir }

// Save writes snapshots, events and normalized data, then the index, and only
// afterwards removes snapshot files the new index no longer lists. A failed
// save leaves the previous index and every file it names readable.
func (s *FileStore) Save(ctx context.Context, run models.Run) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	keep := make(map[string]struct{}, len(run.Snapshots))
	for _, f := range run.Snapshots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.write(f.Name, f.Snapshot); err != nil {
			return err
		}
		keep[f.Name] = struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(EventsFile, run.Events); err != nil {
		return err
	}
	if err := s.write(NormalizedFile, run.Normalized); err != nil {
		return err
	}
	if err := s.write(snapshots.IndexFile, run.Index); err != nil {
		return err
	}
	return s.removeStaleSnapshots(keep)
}

func (s *FileStore) Events(_ context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.read(EventsFile, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *FileStore) Index(_ context.Context) ([]models.IndexEntry, error) {
	var index []models.IndexEntry
	if err := s.read(snapshots.IndexFile, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *FileStore) Snapshot(_ context.Context, name string) (models.Snapshot, error) {
	if err := ValidSnapshotName(name); err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	if err := s.read(name, &snap); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// removeStaleSnapshots deletes snapshot files not named in keep.
func (s *FileStore) removeStaleSnapshots(keep map[string]struct{}) error {
	existing, err := filepath.Glob(filepath.Join(s.dir, snapshotPrefix+"*.json"))
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	for _, p := range existing {
		if _, ok := keep[filepath.Base(p)]; ok {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale snapshot: %w", err)
		}
	}
	return nil
}

// write encodes v to a temp file in the target directory and renames it into
// place so readers never see a partial artifact.
func (s *FileStore) write(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) read(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name)) //nolint:gosec // name is a fixed artifact or validated snapshot name
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", name, sentinel.ErrInvalidState, err)
	}
	return nil
}
