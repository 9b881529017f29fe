// Package cascade synthesizes the coarser levels of a tile pyramid from
// an already-populated finest level, merging each tile's four children
// into the tile itself, bottom-up, serially or with a worker pool.
package cascade

import (
	"fmt"

	"github.com/skytiler/skytiler/internal/imagery"
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// MergeFunc downsamples a combined buffer, assembled from up to four
// child tiles and twice the tile size in each dimension, into a single
// tile-sized buffer of the same mode. Implementations must be pure: the
// same input always yields the same output, regardless of which worker
// runs the merge.
type MergeFunc func(combined *imagery.Buffer) (*imagery.Buffer, error)

// AveragingMerge is the reference merge: each 2x2 block becomes the mean
// of its defined samples, ignoring sentinels, emitting the sentinel only
// when all four samples are absent.
func AveragingMerge(combined *imagery.Buffer) (*imagery.Buffer, error) {
	return imagery.DownsampleAverage(combined)
}

// quadrantOffsets returns the (row, col) origin of each child's quadrant
// in the combined buffer, indexed by readiness bit. Addresses put tile
// (0,0) at the top left; when the storage format's pixel rows run
// bottom-up, the quadrant rows flip to compensate.
func quadrantOffsets(parity store.ParitySign, tileW, tileH int) [4][2]int {
	if parity == store.ParityBottomUp {
		return [4][2]int{
			{tileH, 0},
			{tileH, tileW},
			{0, 0},
			{0, tileW},
		}
	}
	return [4][2]int{
		{0, 0},
		{0, tileW},
		{tileH, 0},
		{tileH, tileW},
	}
}

// processTile reads a tile's four children, merges whatever exists, and
// writes the result. When all four children are absent, nothing is
// written: empty branches are a legitimate part of a pyramid.
func processTile(st store.TileStore, merger MergeFunc, addr pyramid.Address) error {
	children := addr.Children()

	var bufs [4]*imagery.Buffer
	any := false
	for i, child := range children {
		buf, err := st.ReadTile(child)
		if err != nil {
			return fmt.Errorf("reading child %s of %s: %w", child, addr, err)
		}
		bufs[i] = buf
		if buf != nil {
			any = true
		}
	}
	if !any {
		return nil
	}

	var mode imagery.Mode
	tileW, tileH := 0, 0
	for _, b := range bufs {
		if b == nil {
			continue
		}
		if tileW == 0 {
			mode, tileW, tileH = b.Mode(), b.Width(), b.Height()
			continue
		}
		if b.Mode() != mode || b.Width() != tileW || b.Height() != tileH {
			return fmt.Errorf("children of %s disagree on mode or size", addr)
		}
	}

	combined := imagery.NewMaskableBuffer(mode, 2*tileW, 2*tileH)
	offsets := quadrantOffsets(st.VerticalParitySign(), tileW, tileH)
	for i, b := range bufs {
		if b == nil {
			continue
		}
		if err := b.CopyInto(combined, offsets[i][0], offsets[i][1]); err != nil {
			return fmt.Errorf("assembling %s: %w", addr, err)
		}
	}

	merged, err := merger(combined)
	if err != nil {
		return fmt.Errorf("merging %s: %w", addr, err)
	}

	if mode.IsFloat() {
		if min, max, ok := rangeOfChildren(bufs); ok {
			merged.SetRange(min, max)
		}
	}

	if err := st.WriteTile(addr, merged); err != nil {
		return fmt.Errorf("writing %s: %w", addr, err)
	}
	return nil
}

// rangeOfChildren folds the (min, max) side channel of the defined
// children, so value-range queries never rescan pixel data.
func rangeOfChildren(bufs [4]*imagery.Buffer) (min, max float64, ok bool) {
	for _, b := range bufs {
		if b == nil {
			continue
		}
		lo, hi, has := b.Range()
		if !has {
			continue
		}
		if !ok {
			min, max, ok = lo, hi, true
			continue
		}
		if lo < min {
			min = lo
		}
		if hi > max {
			max = hi
		}
	}
	return min, max, ok
}
