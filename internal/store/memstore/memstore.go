// Package memstore provides an in-memory TileStore, used as the reference
// backend in tests.
package memstore

import (
	"sync"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// Store holds tiles in a mutex-guarded map.
type Store struct {
	parity store.ParitySign

	mu    sync.RWMutex
	tiles map[pyramid.Address]*imagery.Buffer
}

// New creates an empty store with the given pixel-row convention.
func New(parity store.ParitySign) *Store {
	return &Store{
		parity: parity,
		tiles:  make(map[pyramid.Address]*imagery.Buffer),
	}
}

func (s *Store) ReadTile(addr pyramid.Address) (*imagery.Buffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiles[addr], nil
}

func (s *Store) WriteTile(addr pyramid.Address, buf *imagery.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[addr] = buf
	return nil
}

func (s *Store) VerticalParitySign() store.ParitySign {
	return s.parity
}

// Len returns the number of stored tiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

// Addresses returns the addresses of all stored tiles, in no particular
// order.
func (s *Store) Addresses() []pyramid.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := make([]pyramid.Address, 0, len(s.tiles))
	for a := range s.tiles {
		addrs = append(addrs, a)
	}
	return addrs
}
