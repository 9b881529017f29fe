// Package fsstore stores tiles as individual files on disk, one file per
// tile, laid out as {root}/{depth}/{y}/{y}_{x}.{ext}.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// Store persists tiles under a root directory. Bitmap modes are written
// as PNG with top-down rows; float modes use the framed tile format and
// bottom-up row order.
type Store struct {
	root string
	mode imagery.Mode
}

// New creates a filesystem tile store rooted at dir. The directory is
// created if it does not exist.
func New(dir string, mode imagery.Mode) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tile directory: %w", err)
	}
	return &Store{root: dir, mode: mode}, nil
}

// Mode returns the sample mode this store was opened with.
func (s *Store) Mode() imagery.Mode {
	return s.mode
}

func (s *Store) ext() string {
	if s.mode.IsFloat() {
		return "skyt"
	}
	return "png"
}

// TilePath returns the on-disk path for the tile at addr.
func (s *Store) TilePath(addr pyramid.Address) string {
	return filepath.Join(s.root,
		fmt.Sprintf("%d", addr.Depth),
		fmt.Sprintf("%d", addr.Y),
		fmt.Sprintf("%d_%d.%s", addr.Y, addr.X, s.ext()))
}

// ReadTile loads and decodes the tile at addr. A missing file is
// reported as (nil, nil).
func (s *Store) ReadTile(addr pyramid.Address) (*imagery.Buffer, error) {
	data, err := os.ReadFile(s.TilePath(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tile %s: %w", addr, err)
	}
	buf, err := imagery.DecodeTile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", addr, err)
	}
	return buf, nil
}

// WriteTile encodes and writes the tile at addr, creating intermediate
// directories as needed.
func (s *Store) WriteTile(addr pyramid.Address, buf *imagery.Buffer) error {
	data, err := imagery.EncodeTile(buf)
	if err != nil {
		return fmt.Errorf("failed to encode tile %s: %w", addr, err)
	}
	path := s.TilePath(addr)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tile %s: %w", addr, err)
	}
	return nil
}

// VerticalParitySign reports the row order of stored tiles. PNG files
// are top-down; the float format keeps bottom-up rows.
func (s *Store) VerticalParitySign() store.ParitySign {
	if s.mode.IsFloat() {
		return store.ParityBottomUp
	}
	return store.ParityTopDown
}
