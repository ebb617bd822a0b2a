// Package history keeps a log of ambient light samples in sqlite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	pkgerrors "github.com/pkg/errors"
)

// ErrNotFound is returned when there is no sample to return.
var ErrNotFound = errors.New("no samples recorded")

// Sample is one recorded sensor reading.
type Sample struct {
	ID   int64     `json:"id"`
	Lux  float64   `json:"lux"`
	Time time.Time `json:"time"`
}

// Repository stores samples in a sqlite database. Times are stored as unix
// milliseconds.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS lux_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lux REAL NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lux_samples_ts ON lux_samples(ts);
`

// Open opens or creates the database at path.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to create directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open database %s", path)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "failed to create schema")
	}

	return &Repository{db: db}, nil
}

// Save stores s and sets its ID.
func (r *Repository) Save(ctx context.Context, s *Sample) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO lux_samples (lux, ts) VALUES (?, ?)`, s.Lux, s.Time.UnixMilli())
	if err != nil {
		return pkgerrors.Wrap(err, "failed to insert sample")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to get insert id")
	}
	s.ID = id

	return nil
}

// Latest returns the most recent sample.
func (r *Repository) Latest(ctx context.Context) (*Sample, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, lux, ts FROM lux_samples ORDER BY ts DESC, id DESC LIMIT 1`)

	s, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query latest sample")
	}

	return s, nil
}

// Range returns the samples in [start, end), oldest first.
func (r *Repository) Range(ctx context.Context, start, end time.Time) ([]*Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lux, ts FROM lux_samples WHERE ts >= ? AND ts < ? ORDER BY ts ASC, id ASC`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query samples")
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to scan sample")
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// DeleteOlderThan removes samples older than d and returns how many were
// removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, d time.Duration) (int64, error) {
	cutoff := time.Now().Add(-d)

	res, err := r.db.ExecContext(ctx, `DELETE FROM lux_samples WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to delete old samples")
	}

	return res.RowsAffected()
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(sc scanner) (*Sample, error) {
	var (
		s  Sample
		ts int64
	)
	if err := sc.Scan(&s.ID, &s.Lux, &ts); err != nil {
		return nil, err
	}
	s.Time = time.UnixMilli(ts)
	return &s, nil
}
