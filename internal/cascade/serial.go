package cascade

import (
	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// runSerial walks every address whose children already exist, deepest
// level first, merging tile by tile on the calling goroutine.
func runSerial(st store.TileStore, opts Options) error {
	total := opts.totalTiles()
	var done int64

	visit := func(addr pyramid.Address) error {
		if err := processTile(st, opts.Merger, addr); err != nil {
			return err
		}
		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
		return nil
	}

	if opts.Filter == nil {
		return pyramid.Walk(opts.Start-1, visit)
	}

	// Filtered runs visit the matching subtree in post-order and then the
	// root, unconditionally, once every filtered descendant has been
	// merged.
	if err := pyramid.WalkFiltered(opts.Start-1, opts.Filter, visit); err != nil {
		return err
	}
	return visit(pyramid.Root)
}
