package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/store"
)

// Store persists the registry as a JSON array in a single file.
type Store struct {
	path    string
	logger  logger.Logger
	metrics *metrics.Metrics
}

var _ store.Store = (*Store)(nil)

// New creates a file store. The file and its directory are created on first Save.
func New(path string, log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		path:    path,
		logger:  log,
		metrics: m,
	}
}

func (s *Store) Name() string { return "file" }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the registry. A missing file is an empty registry; an unreadable or
// corrupt one is logged and also treated as empty.
func (s *Store) Load(_ context.Context) []domain.Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("registry file unreadable, starting empty",
				logger.String("path", s.path),
				logger.Error(err))
			s.metrics.StoreCorrupt(s.Name())
		}
		return []domain.Entry{}
	}

	entries, err := store.Decode(data)
	if err != nil {
		s.logger.Warn("registry file corrupt, starting empty",
			logger.String("path", s.path),
			logger.Error(err))
		s.metrics.StoreCorrupt(s.Name())
		return []domain.Entry{}
	}
	return entries
}

// Save writes to a temp file in the same directory and renames it over the
// registry, so a concurrent Load sees either the old or the new content.
func (s *Store) Save(_ context.Context, entries []domain.Entry) error {
	data, err := store.Encode(entries)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create registry dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}
