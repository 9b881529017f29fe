// Package cached wraps a tile store with a decoded-buffer cache.
package cached

import (
	"github.com/skytiler/skytiler/internal/cache"
	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// Store is a read-through, write-through decorator over another tile
// store. Cached buffers are shared between callers and must not be
// mutated; callers that need to modify a tile should Clone it first.
type Store struct {
	inner store.TileStore
	cache *cache.Manager
	id    string
}

// New wraps inner with the buffer cache in mgr. The id namespaces cache
// keys so several stores can share one manager.
func New(inner store.TileStore, mgr *cache.Manager, id string) *Store {
	return &Store{inner: inner, cache: mgr, id: id}
}

// ReadTile returns the cached buffer for addr when present, and
// otherwise reads through to the underlying store. Absent tiles are not
// cached.
func (s *Store) ReadTile(addr pyramid.Address) (*imagery.Buffer, error) {
	key := cache.BufferKey(s.id, addr)
	if buf, ok := s.cache.GetBuffer(key); ok {
		return buf, nil
	}
	buf, err := s.inner.ReadTile(addr)
	if err != nil || buf == nil {
		return buf, err
	}
	s.cache.SetBuffer(key, buf)
	return buf, nil
}

// WriteTile writes through to the underlying store and refreshes the
// cache entry on success.
func (s *Store) WriteTile(addr pyramid.Address, buf *imagery.Buffer) error {
	if err := s.inner.WriteTile(addr, buf); err != nil {
		return err
	}
	s.cache.SetBuffer(cache.BufferKey(s.id, addr), buf)
	return nil
}

// VerticalParitySign reports the underlying store's row order.
func (s *Store) VerticalParitySign() store.ParitySign {
	return s.inner.VerticalParitySign()
}
