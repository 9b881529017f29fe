// Package cache provides caching for rendered tiles and decoded tile buffers.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
)

// Config contains cache configuration.
type Config struct {
	RenderCacheSizeMB int
	RenderTTL         time.Duration
	BufferCacheSize   int
}

// Manager holds two caches: a byte cache for encoded tile responses and
// an LRU of decoded buffers keyed by pyramid address. Buffers handed out
// by GetBuffer are shared and must be treated as read-only.
type Manager struct {
	renderCache *bigcache.BigCache
	bufferCache *lru.Cache[string, *imagery.Buffer]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	renderConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.RenderTTL,
		CleanWindow:        cfg.RenderTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       100 * 1024, // 100KB per tile
		HardMaxCacheSize:   cfg.RenderCacheSizeMB,
		Verbose:            false,
	}

	renderCache, err := bigcache.New(context.Background(), renderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}

	bufferCache, err := lru.New[string, *imagery.Buffer](cfg.BufferCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer cache: %w", err)
	}

	return &Manager{
		renderCache: renderCache,
		bufferCache: bufferCache,
	}, nil
}

// GetRender retrieves an encoded tile response from cache.
func (m *Manager) GetRender(key string) ([]byte, bool) {
	data, err := m.renderCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetRender stores an encoded tile response in cache.
func (m *Manager) SetRender(key string, data []byte) error {
	return m.renderCache.Set(key, data)
}

// GetBuffer retrieves a decoded tile buffer from cache.
func (m *Manager) GetBuffer(key string) (*imagery.Buffer, bool) {
	return m.bufferCache.Get(key)
}

// SetBuffer stores a decoded tile buffer in cache.
func (m *Manager) SetBuffer(key string, buf *imagery.Buffer) {
	m.bufferCache.Add(key, buf)
}

// BufferKey generates a cache key for a decoded tile buffer.
func BufferKey(id string, addr pyramid.Address) string {
	return fmt.Sprintf("buf:%s:%d/%d/%d", id, addr.Depth, addr.X, addr.Y)
}

// RenderKey generates a cache key for a rendered tile.
func RenderKey(id string, addr pyramid.Address, cmap string, lo, hi float64) string {
	return fmt.Sprintf("render:%s:%d/%d/%d:%s:%g:%g", id, addr.Depth, addr.X, addr.Y, cmap, lo, hi)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"render_cache_len": m.renderCache.Len(),
		"render_cache_cap": m.renderCache.Capacity(),
		"buffer_cache_len": m.bufferCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.renderCache.Close()
}
