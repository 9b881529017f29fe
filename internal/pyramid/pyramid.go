// Package pyramid implements the quadtree addressing scheme for tile
// pyramids.
//
// A pyramid is a quadtree of fixed-size image tiles: the single tile at
// depth 0 covers the whole region, and each deeper level has four times as
// many tiles at half the angular size. Tile X=0,Y=0 is at the top left.
package pyramid

import "fmt"

// Address identifies one tile in a pyramid: a depth and an (x, y) position
// within that depth's 2^depth by 2^depth grid.
type Address struct {
	Depth int
	X     int
	Y     int
}

// Root is the address of the single tile at depth 0.
var Root = Address{}

// String renders the address in depth/x/y form.
func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Depth, a.X, a.Y)
}

// IsValid reports whether the address lies within the pyramid's bounds.
func (a Address) IsValid() bool {
	if a.Depth < 0 {
		return false
	}
	n := 1 << a.Depth
	return a.X >= 0 && a.X < n && a.Y >= 0 && a.Y < n
}

// Parent returns the address of the tile's parent, along with the tile's
// horizontal and vertical index (each 0 or 1) within the parent's quartet.
// The bit for this tile in its parent's readiness mask is 2*yIdx + xIdx.
//
// Parent panics when called on the root: taking the parent of depth 0 is a
// programmer error.
func (a Address) Parent() (parent Address, xIdx, yIdx int) {
	if a.Depth < 1 {
		panic("pyramid: cannot take the parent of a tile address with depth < 1")
	}
	parent = Address{
		Depth: a.Depth - 1,
		X:     a.X / 2,
		Y:     a.Y / 2,
	}
	return parent, a.X % 2, a.Y % 2
}

// Children returns the four child addresses of a tile at the next depth,
// ordered so that index i carries readiness bit i: (0,0), (1,0), (0,1),
// (1,1) in (xIdx, yIdx) terms.
func (a Address) Children() [4]Address {
	d := a.Depth + 1
	x := a.X * 2
	y := a.Y * 2
	return [4]Address{
		{Depth: d, X: x, Y: y},
		{Depth: d, X: x + 1, Y: y},
		{Depth: d, X: x, Y: y + 1},
		{Depth: d, X: x + 1, Y: y + 1},
	}
}

// IsDescendant reports whether deep lies in the subtree rooted at shallow.
// A tile is considered a descendant of itself.
//
// IsDescendant panics when deep is shallower than shallow; asking the
// question that way around is a programmer error.
func IsDescendant(deep, shallow Address) bool {
	if deep.Depth < shallow.Depth {
		panic("pyramid: deep address has a lower depth than shallow address")
	}
	for deep.Depth > shallow.Depth {
		deep, _, _ = deep.Parent()
	}
	return deep == shallow
}

// TotalTileCount returns the number of tiles in a pyramid of the given
// depth, counting every level from 0 to depth inclusive.
func TotalTileCount(depth int) int64 {
	// Geometric series: sum over d of 4^d = (4^(depth+1) - 1) / 3.
	return (int64(1)<<(2*(depth+1)) - 1) / 3
}
