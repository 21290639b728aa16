package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/fingerprint"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS libraries (
	name TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	total_size INTEGER NOT NULL,
	mtime_max INTEGER NOT NULL,
	file_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	library TEXT NOT NULL,
	PRIMARY KEY (name, position)
);
`

// SQLiteStore keeps the manifest in a SQLite database (for inspection with
// standard tooling).
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	logger logrus.FieldLogger
}

type libraryRow struct {
	Name        string `db:"name"`
	Fingerprint string `db:"fingerprint"`
	TotalSize   int64  `db:"total_size"`
	MtimeMax    int64  `db:"mtime_max"`
	FileCount   int    `db:"file_count"`
}

type projectRow struct {
	Name     string `db:"name"`
	Position int    `db:"position"`
	Library  string `db:"library"`
}

// NewSQLiteStore opens (or creates) the database at path. A file that is not a
// valid database is replaced by an empty one.
func NewSQLiteStore(path string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	db, err := connectSQLite(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Manifest database unusable, recreating")
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, err
		}
		if db, err = connectSQLite(path); err != nil {
			return nil, err
		}
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func connectSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Path implements Store.
func (s *SQLiteStore) Path() string { return s.path }

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (*Manifest, error) {
	m := New()

	var libs []libraryRow
	if err := s.db.SelectContext(ctx, &libs, `SELECT * FROM libraries`); err != nil {
		s.logger.WithError(err).Warn("Manifest database unreadable, starting empty")
		return New(), nil
	}
	for _, r := range libs {
		m.Libraries[r.Name] = fingerprint.Fingerprint{
			Digest:     r.Fingerprint,
			TotalSize:  r.TotalSize,
			MaxModTime: r.MtimeMax,
			FileCount:  r.FileCount,
		}
	}

	var projects []projectRow
	if err := s.db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY name, position`); err != nil {
		s.logger.WithError(err).Warn("Manifest database unreadable, starting empty")
		return New(), nil
	}
	for _, r := range projects {
		m.Projects[r.Name] = append(m.Projects[r.Name], r.Library)
	}
	return m, nil
}

// Save implements Store. The previous content is replaced in one transaction.
// Projects are stored as rows of their libraries, so a project with no library
// does not survive a round trip.
func (s *SQLiteStore) Save(ctx context.Context, m *Manifest) error {
	m.ensure()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM libraries`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return err
	}

	for name, fp := range m.Libraries {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO libraries (name, fingerprint, total_size, mtime_max, file_count)
			VALUES (:name, :fingerprint, :total_size, :mtime_max, :file_count)`,
			libraryRow{
				Name:        name,
				Fingerprint: fp.Digest,
				TotalSize:   fp.TotalSize,
				MtimeMax:    fp.MaxModTime,
				FileCount:   fp.FileCount,
			})
		if err != nil {
			return err
		}
	}

	for name, libs := range m.Projects {
		for i, lib := range libs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO projects (name, position, library) VALUES (?, ?, ?)`, name, i, lib)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
