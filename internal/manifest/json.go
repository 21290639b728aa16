package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// JSONStore keeps the manifest in one pretty-printed JSON file. Map keys are
// written sorted, so unchanged state produces identical bytes.
type JSONStore struct {
	path   string
	logger logrus.FieldLogger
}

// NewJSONStore creates a JSONStore at path.
func NewJSONStore(path string, logger logrus.FieldLogger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

// Path implements Store.
func (s *JSONStore) Path() string { return s.path }

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context) (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Warn("Manifest unreadable, starting empty")
		}
		return New(), nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Manifest corrupt, starting empty")
		return New(), nil
	}
	return m.ensure(), nil
}

// Save implements Store. The file is replaced atomically.
func (s *JSONStore) Save(ctx context.Context, m *Manifest) error {
	data, err := json.MarshalIndent(m.ensure(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}

	// A hidden target cannot be replaced on windows.
	_ = setHidden(s.path, false)
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	if err := setHidden(s.path, true); err != nil {
		s.logger.WithError(err).Debug("Could not hide manifest")
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }
