package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/aicodebase/internal/fingerprint"
)

var (
	librariesBucket = []byte("libraries")
	projectsBucket  = []byte("projects")
)

// BoltStore keeps the manifest in a bbolt database, one JSON value per key.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger logrus.FieldLogger
}

// NewBoltStore opens (or creates) the database at path. A file that is not a
// valid database is replaced by an empty one.
func NewBoltStore(path string, logger logrus.FieldLogger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	opts := &bolt.Options{Timeout: 2 * time.Second}
	db, err := bolt.Open(path, 0o644, opts)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Manifest database unusable, recreating")
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("open manifest database: %w", err)
		}
		if db, err = bolt.Open(path, 0o644, opts); err != nil {
			return nil, fmt.Errorf("open manifest database: %w", err)
		}
	}

	return &BoltStore{db: db, path: path, logger: logger}, nil
}

// Path implements Store.
func (s *BoltStore) Path() string { return s.path }

// Load implements Store. Undecodable values are skipped.
func (s *BoltStore) Load(ctx context.Context) (*Manifest, error) {
	m := New()
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(librariesBucket); b != nil {
			_ = b.ForEach(func(k, v []byte) error {
				var fp fingerprint.Fingerprint
				if err := json.Unmarshal(v, &fp); err != nil {
					s.logger.WithField("library", string(k)).Warn("Skipping corrupt manifest entry")
					return nil
				}
				m.Libraries[string(k)] = fp
				return nil
			})
		}
		if b := tx.Bucket(projectsBucket); b != nil {
			_ = b.ForEach(func(k, v []byte) error {
				var libs []string
				if err := json.Unmarshal(v, &libs); err != nil {
					s.logger.WithField("project", string(k)).Warn("Skipping corrupt manifest entry")
					return nil
				}
				m.Projects[string(k)] = libs
				return nil
			})
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("Manifest database unreadable, starting empty")
		return New(), nil
	}
	return m, nil
}

// Save implements Store. Both buckets are rewritten in one transaction.
func (s *BoltStore) Save(ctx context.Context, m *Manifest) error {
	m.ensure()
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{librariesBucket, projectsBucket} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
		}

		libs, err := tx.CreateBucket(librariesBucket)
		if err != nil {
			return err
		}
		for name, fp := range m.Libraries {
			data, err := json.Marshal(fp)
			if err != nil {
				return err
			}
			if err := libs.Put([]byte(name), data); err != nil {
				return err
			}
		}

		projects, err := tx.CreateBucket(projectsBucket)
		if err != nil {
			return err
		}
		for name, list := range m.Projects {
			data, err := json.Marshal(list)
			if err != nil {
				return err
			}
			if err := projects.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
