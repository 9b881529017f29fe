// Package store defines the narrow contract between the cascade engine
// and tile storage backends.
package store

import (
	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
)

// ParitySign says which pixel row of a stored tile is geometrically
// "top". Pyramid addresses always put tile X=0,Y=0 at the top left, but a
// storage format's pixel rows may run the other way (FITS does); the
// cascade compensates by flipping how child quartets are assembled.
type ParitySign int

const (
	// ParityTopDown means pixel row 0 is the geometric top (PNG, JPEG).
	ParityTopDown ParitySign = -1
	// ParityBottomUp means pixel row 0 is the geometric bottom (FITS).
	ParityBottomUp ParitySign = 1
)

// TileStore reads and writes individual tiles by address. Implementations
// must make concurrent WriteTile calls for distinct addresses safe,
// including any shared bookkeeping such as directory creation.
type TileStore interface {
	// ReadTile returns the tile at addr, or (nil, nil) when no tile
	// exists there. Absence is an expected outcome, not an error.
	ReadTile(addr pyramid.Address) (*imagery.Buffer, error)

	// WriteTile persists a tile at addr, replacing any previous payload.
	WriteTile(addr pyramid.Address, buf *imagery.Buffer) error

	// VerticalParitySign reports the backend's pixel-row convention.
	VerticalParitySign() ParitySign
}
