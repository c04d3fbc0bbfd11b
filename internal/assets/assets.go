// Package assets handles game asset loading and caching.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/kmx-platformer/internal/logger"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/pack"
)

// log resolves at call time so it follows logger.Init.
func log() *zap.Logger { return logger.Named("assets") }

// ErrNotFound is returned when no source holds the requested path.
var ErrNotFound = errors.New("asset not found")

// source is a place assets are read from: a directory or a pack.
type source interface {
	read(path string) ([]byte, error)
	close() error
	String() string
}

type dirSource struct {
	root string
}

func (d dirSource) read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path)))
}

func (d dirSource) close() error   { return nil }
func (d dirSource) String() string { return d.root }

type packSource struct {
	name    string
	archive *pack.Archive
}

func (p packSource) read(path string) ([]byte, error) {
	data, err := p.archive.Read(path)
	if errors.Is(err, pack.ErrNotFound) {
		return nil, fs.ErrNotExist
	}
	return data, err
}

func (p packSource) close() error   { return p.archive.Close() }
func (p packSource) String() string { return p.name }

// parsed is a decoded asset plus the fingerprint of the bytes it came from.
type parsed[T any] struct {
	sum   uint64
	value T
}

// Manager handles asset loading from directories and packs.
type Manager struct {
	sources []source
	cache   *Cache
	mu      sync.RWMutex

	parseMu   sync.Mutex
	skeletons map[string]parsed[*formats.Skeleton]
	meshes    map[string]parsed[*formats.SkinnedMesh]
	sums      map[string]uint64
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache:     NewCache(),
		skeletons: make(map[string]parsed[*formats.Skeleton]),
		meshes:    make(map[string]parsed[*formats.SkinnedMesh]),
		sums:      make(map[string]uint64),
	}
}

// AddDir adds a directory to the search path.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset dir %s: not a directory", dir)
	}

	m.addSource(dirSource{root: dir})
	return nil
}

// AddPack opens a pack file and adds it to the search path.
func (m *Manager) AddPack(path string) error {
	archive, err := pack.Open(path)
	if err != nil {
		return fmt.Errorf("opening pack %s: %w", path, err)
	}

	m.addSource(packSource{name: path, archive: archive})
	return nil
}

// PackExt is the file extension of asset packs.
const PackExt = ".kpak"

// AddPacks mounts every pack directly inside dir in name order, so later
// names take priority. Returns the number of packs added.
func (m *Manager) AddPacks(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+PackExt))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	for i, p := range paths {
		if err := m.AddPack(p); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}

func (m *Manager) addSource(src source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()

	log().Debug("asset source added", zap.Stringer("source", src))
}

// Load loads a file from the sources, using the cache when possible.
func (m *Manager) Load(path string) ([]byte, error) {
	// Check cache first
	if data, ok := m.cache.Get(path); ok {
		return data, nil
	}

	data, src, err := m.read(path)
	if err != nil {
		return nil, err
	}

	m.cache.Set(path, data)
	log().Debug("asset loaded",
		zap.String("path", path),
		zap.Stringer("source", src),
		zap.Int("bytes", len(data)))
	return data, nil
}

// read searches sources in reverse order, bypassing the cache.
func (m *Manager) read(path string) ([]byte, source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := m.sources[i].read(path)
		if err == nil {
			return data, m.sources[i], nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("reading %s from %s: %w", path, m.sources[i], err)
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// Fingerprint returns the xxhash of the file's current contents.
func (m *Manager) Fingerprint(path string) (uint64, error) {
	data, err := m.Load(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// Reload drops the cached bytes for path and reads it again. Parsed assets
// built from it are discarded only when the contents changed. Reports
// whether they did; a path with no earlier fingerprint reports false.
func (m *Manager) Reload(path string) (bool, error) {
	m.cache.Delete(path)

	data, err := m.Load(path)
	if err != nil {
		return false, err
	}
	sum := xxhash.Sum64(data)

	m.parseMu.Lock()
	defer m.parseMu.Unlock()

	old, seen := m.sums[path]
	m.sums[path] = sum
	if !seen || old == sum {
		return false, nil
	}

	delete(m.skeletons, path)
	delete(m.meshes, path)
	log().Info("asset changed", zap.String("path", path), zap.Uint64("xxhash", sum))
	return true, nil
}

// LoadSkeleton loads and parses a skeleton. Parsed skeletons are shared
// between callers and must not be modified.
func (m *Manager) LoadSkeleton(path string) (*formats.Skeleton, error) {
	return loadParsed(m, m.skeletons, path, formats.ParseSkeleton)
}

// LoadSkinnedMesh loads and parses a skinned mesh.
func (m *Manager) LoadSkinnedMesh(path string) (*formats.SkinnedMesh, error) {
	return loadParsed(m, m.meshes, path, formats.ParseSkinnedMesh)
}

func loadParsed[T any](m *Manager, cache map[string]parsed[T], path string, parse func([]byte) (T, error)) (T, error) {
	var zero T

	data, err := m.Load(path)
	if err != nil {
		return zero, err
	}
	sum := xxhash.Sum64(data)

	m.parseMu.Lock()
	defer m.parseMu.Unlock()

	if p, ok := cache[path]; ok && p.sum == sum {
		return p.value, nil
	}

	value, err := parse(data)
	if err != nil {
		return zero, fmt.Errorf("parsing %s: %w", path, err)
	}
	cache[path] = parsed[T]{sum: sum, value: value}
	m.sums[path] = sum
	return value, nil
}

// Preload loads paths in parallel into the cache. The first failure cancels
// the remaining loads.
func (m *Manager) Preload(ctx context.Context, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := m.Load(path)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("preloading assets: %w", err)
	}

	hits, misses := m.cache.Stats()
	log().Debug("assets preloaded",
		zap.Int("count", len(paths)),
		zap.Int("cache_hits", hits),
		zap.Int("cache_misses", misses))
	return nil
}

// Cache returns the byte cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close closes all packs and clears the caches.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, src := range m.sources {
		if err := src.close(); err != nil {
			log().Warn("closing asset source", zap.Stringer("source", src), zap.Error(err))
		}
	}
	m.sources = nil
	m.cache.Clear()

	m.parseMu.Lock()
	clear(m.skeletons)
	clear(m.meshes)
	clear(m.sums)
	m.parseMu.Unlock()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
