// Package assets locates map tables in GRF archives and plain directories
// and caches the parsed result.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
	"github.com/Faultbox/midgard-nav/pkg/formats"
	"github.com/Faultbox/midgard-nav/pkg/grf"
)

// ErrNotFound is returned when no archive or directory holds a file.
var ErrNotFound = errors.New("asset not found")

// Manager loads files from GRF archives and directories. Archives and
// directories are searched in reverse order (last added = highest priority),
// archives before directories.
type Manager struct {
	mu       sync.RWMutex
	archives []*grf.Archive
	dirs     []string

	maps *Cache
	log  *zap.Logger
}

// NewManager creates an empty asset manager.
func NewManager() *Manager {
	return &Manager{
		maps: NewCache(),
		log:  logger.Named("assets"),
	}
}

// AddArchive adds a GRF archive to the manager.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	m.log.Debug("archive added", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

// AddDir adds a directory laid out like an archive (data/<name>.gat).
func (m *Manager) AddDir(dir string) {
	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
}

// Load reads a file by archive path.
func (m *Manager) Load(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].Read(path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, grf.ErrNotFound) {
			return nil, err
		}
	}

	rel := filepath.FromSlash(strings.ReplaceAll(path, "\\", "/"))
	for i := len(m.dirs) - 1; i >= 0; i-- {
		data, err := os.ReadFile(filepath.Join(m.dirs[i], rel))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// MapPath returns the archive path of a map's altitude table.
func MapPath(name string) string {
	return "data/" + strings.TrimSuffix(name, ".gat") + ".gat"
}

// LoadMap returns the parsed altitude table of a map, from cache when
// possible.
func (m *Manager) LoadMap(name string) (*formats.GAT, error) {
	path := MapPath(name)
	if gat, ok := m.maps.Get(path); ok {
		return gat, nil
	}

	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	gat, err := formats.ParseGAT(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.maps.Set(path, gat)
	return gat, nil
}

// Source returns a terrain source that loads the named map on each refresh.
func (m *Manager) Source(name string) terrain.Source {
	return &mapSource{assets: m, name: name}
}

// CacheStats returns the map cache statistics.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.maps.Stats()
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.dirs = nil
	m.maps.Clear()
}

type mapSource struct {
	assets *Manager
	name   string
}

// Layers implements terrain.Source.
func (s *mapSource) Layers() (grid.Layers, error) {
	gat, err := s.assets.LoadMap(s.name)
	if err != nil {
		return grid.Layers{}, err
	}
	return terrain.NewGATSource(gat).Layers()
}

// Cache holds parsed map tables by path.
type Cache struct {
	data map[string]*formats.GAT
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*formats.GAT),
	}
}

// Get retrieves a table from cache.
func (c *Cache) Get(key string) (*formats.GAT, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gat, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return gat, ok
}

// Set stores a table in cache.
func (c *Cache) Set(key string, gat *formats.GAT) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = gat
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*formats.GAT)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
