package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"civitas/internal/timeline/models"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS timeline_runs (
	id           TEXT PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	events       JSONB NOT NULL,
	normalized   JSONB NOT NULL,
	snapshot_idx JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS timeline_runs_generated_at_idx ON timeline_runs (generated_at DESC);
CREATE TABLE IF NOT EXISTS timeline_snapshots (
	run_id        TEXT NOT NULL REFERENCES timeline_runs (id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	snapshot_date DATE NOT NULL,
	total         INTEGER NOT NULL,
	body          JSONB NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// latestRun selects the id of the most recently generated run.
const latestRun = `SELECT id FROM timeline_runs ORDER BY generated_at DESC, id DESC LIMIT 1`

// PostgresStore keeps every run in PostgreSQL as JSONB. Readers always see the
// latest run.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the run and snapshot tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate timeline schema: %w", err)
	}
	return nil
}

// Save writes the run row and all of its snapshots in one transaction.
// Snapshots are inserted with a single unnest batch instead of per-row inserts.
func (s *PostgresStore) Save(ctx context.Context, run models.Run) error {
	events, err := json.Marshal(run.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	normalized, err := json.Marshal(run.Normalized)
	if err != nil {
		return fmt.Errorf("encode normalized: %w", err)
	}
	index, err := json.Marshal(run.Index)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	names := make([]string, 0, len(run.Snapshots))
	dates := make([]string, 0, len(run.Snapshots))
	totals := make([]int64, 0, len(run.Snapshots))
	bodies := make([]string, 0, len(run.Snapshots))
	for _, f := range run.Snapshots {
		b, err := json.Marshal(f.Snapshot)
		if err != nil {
			return fmt.Errorf("encode snapshot %s: %w", f.Name, err)
		}
		names = append(names, f.Name)
		dates = append(dates, f.Snapshot.Date.String())
		totals = append(totals, int64(f.Snapshot.Total))
		bodies = append(bodies, string(b))
	}

	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		_, err := conn.ExecContext(ctx, `
			INSERT INTO timeline_runs (id, generated_at, events, normalized, snapshot_idx)
			VALUES ($1, $2, $3, $4, $5)
		`, run.ID, run.GeneratedAt, string(events), string(normalized), string(index))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(names) == 0 {
			return nil
		}
		_, err = conn.ExecContext(ctx, `
			INSERT INTO timeline_snapshots (run_id, name, snapshot_date, total, body)
			SELECT $1, s.name, s.snapshot_date::date, s.total, s.body::jsonb
			FROM unnest($2::text[], $3::text[], $4::bigint[], $5::text[]) AS s(name, snapshot_date, total, body)
		`, run.ID, pq.Array(names), pq.Array(dates), pq.Array(totals), pq.Array(bodies))
		if err != nil {
			return fmt.Errorf("insert snapshots: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Events(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.latestColumn(ctx, "events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PostgresStore) Index(ctx context.Context) ([]models.IndexEntry, error) {
	var index []models.IndexEntry
	if err := s.latestColumn(ctx, "snapshot_idx", &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context, name string) (models.Snapshot, error) {
	if err := ValidSnapshotName(name); err != nil {
		return models.Snapshot{}, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM timeline_snapshots
		WHERE run_id = (`+latestRun+`) AND name = $1
	`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, fmt.Errorf("%s: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot %s: %w: %w", name, sentinel.ErrInvalidState, err)
	}
	return snap, nil
}

// latestColumn decodes one JSONB column of the latest run. column is always a
// package constant.
func (s *PostgresStore) latestColumn(ctx context.Context, column string, v any) error {
	var body []byte
	query := `SELECT ` + column + ` FROM timeline_runs WHERE id = (` + latestRun + `)` //nolint:gosec // column is not user input
	err := s.db.QueryRowContext(ctx, query).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", column, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", column, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", column, sentinel.ErrInvalidState, err)
	}
	return nil
}
