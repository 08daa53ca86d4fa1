package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"megafacil/models"
)

// StalenessCheck reports an opaque version of the underlying source.
// The cache reloads whenever the version differs from the one it loaded.
type StalenessCheck interface {
	Version() (string, error)
}

// Cache holds the last loaded history and reloads it only when the staleness check changes
type Cache struct {
	source Provider
	check  StalenessCheck

	mu      sync.Mutex
	draws   []models.Draw
	version string
	loaded  bool
}

// NewCache wraps source with a cache invalidated by check
func NewCache(source Provider, check StalenessCheck) *Cache {
	return &Cache{
		source: source,
		check:  check,
	}
}

// Load returns a copy of the cached history, reloading first when stale
func (c *Cache) Load(ctx context.Context) ([]models.Draw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version, err := c.check.Version()
	if err != nil {
		return nil, err
	}

	if !c.loaded || version != c.version {
		draws, err := c.source.Load(ctx)
		if err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{
			"version":          version,
			"draws":            len(draws),
			"last_sequence_id": LastSequenceID(draws),
		}).Info("Loaded draw history")

		c.draws = draws
		c.version = version
		c.loaded = true
	}

	return slices.Clone(c.draws), nil
}

// ModTimeCheck versions a file by its modification time and size
type ModTimeCheck struct {
	path string
}

// NewModTimeCheck creates a check that stats path on every call
func NewModTimeCheck(path string) *ModTimeCheck {
	return &ModTimeCheck{path: path}
}

// Version returns the file's mtime and size
func (m *ModTimeCheck) Version() (string, error) {
	return statVersion(m.path)
}

func statVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: csv not found: %s", models.ErrHistoryUnavailable, path)
		}
		return "", fmt.Errorf("failed to stat history: %w", err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}
