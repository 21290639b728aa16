// Package manifest persists, per group, the last fingerprint of every library and
// the last resolved library list of every project.
package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/aicodebase/internal/fingerprint"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Backends lists every supported backend.
var Backends = []string{BackendJSON, BackendBolt, BackendSQLite}

// File names inside the cache directory.
const (
	JSONFile   = "_manifest.json"
	BoltFile   = "_manifest.db"
	SQLiteFile = "_manifest.sqlite"
)

// Manifest is the only state carried from one run to the next.
type Manifest struct {
	Libraries map[string]fingerprint.Fingerprint `json:"pbls"`
	Projects  map[string][]string                `json:"pbws"`
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		Libraries: make(map[string]fingerprint.Fingerprint),
		Projects:  make(map[string][]string),
	}
}

func (m *Manifest) ensure() *Manifest {
	if m.Libraries == nil {
		m.Libraries = make(map[string]fingerprint.Fingerprint)
	}
	if m.Projects == nil {
		m.Projects = make(map[string][]string)
	}
	return m
}

// Prune drops libraries and projects not listed and returns how many keys went.
func (m *Manifest) Prune(libraries, projects []string) int {
	removed := 0
	keepLibs := toSet(libraries)
	for name := range m.Libraries {
		if !keepLibs[name] {
			delete(m.Libraries, name)
			removed++
		}
	}
	keepProjects := toSet(projects)
	for name := range m.Projects {
		if !keepProjects[name] {
			delete(m.Projects, name)
			removed++
		}
	}
	return removed
}

// Store loads and saves a manifest. Load never fails on absent or unreadable
// content; it returns an empty manifest instead.
type Store interface {
	Load(ctx context.Context) (*Manifest, error)
	Save(ctx context.Context, m *Manifest) error
	Path() string
	Close() error
}

// Open returns the store for backend inside cacheDir.
func Open(backend, cacheDir string, logger logrus.FieldLogger) (Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewJSONStore(filepath.Join(cacheDir, JSONFile), logger), nil
	case BackendBolt:
		return NewBoltStore(filepath.Join(cacheDir, BoltFile), logger)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(cacheDir, SQLiteFile), logger)
	default:
		return nil, fmt.Errorf("unknown manifest backend %q", backend)
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
