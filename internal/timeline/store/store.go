// Package store persists pipeline runs and serves the latest run's artifacts
// back to readers.
package store

import (
	"context"
	"path"
	"strings"

	"civitas/internal/timeline/models"
	dErrors "civitas/pkg/domain-errors"
)

// Artifact names shared by every backend.
const (
	EventsFile     = "events.json"
	NormalizedFile = "normalized.json"
	snapshotPrefix = "official-parliament-"
)

// Writer persists one complete run.
type Writer interface {
	Save(ctx context.Context, run models.Run) error
}

// Reader exposes the most recently saved run.
type Reader interface {
	Events(ctx context.Context) ([]models.Event, error)
	Index(ctx context.Context) ([]models.IndexEntry, error)
	Snapshot(ctx context.Context, name string) (models.Snapshot, error)
}

// ValidSnapshotName rejects anything that is not a bare snapshot file name.
func ValidSnapshotName(name string) error {
	if name == "" || path.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid snapshot name")
	}
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, ".json") {
		return dErrors.New(dErrors.CodeBadRequest, "invalid snapshot name")
	}
	return nil
}
