package cascade

import (
	"fmt"
	"runtime"

	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// Options configures a cascade run.
type Options struct {
	// Start is the depth whose tiles are already populated. The cascade
	// computes every depth shallower than Start. Start <= 0 is a no-op:
	// there is nothing above the root.
	Start int

	// Parallelism is the worker count. Zero means one worker per CPU;
	// one forces the serial cascader.
	Parallelism int

	// Merger downsamples child quartets. Defaults to AveragingMerge.
	Merger MergeFunc

	// Filter, when set, restricts the cascade to a subtree. Siblings
	// outside the filter are treated as pre-satisfied dependencies, and
	// the root is always recomputed last.
	Filter pyramid.FilterFunc

	// Progress, when set, receives completion counts.
	Progress ProgressFunc
}

func (o *Options) applyDefaults() {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.Merger == nil {
		o.Merger = AveragingMerge
	}
}

// totalTiles returns how many tiles the run will process, for progress
// accounting.
func (o *Options) totalTiles() int64 {
	if o.Filter == nil {
		return pyramid.TotalTileCount(o.Start - 1)
	}
	// +1 for the root, which filtered traversals never count.
	return pyramid.CountMatchingFilter(o.Start-1, o.Filter) + 1
}

// Cascade walks the pyramid from Start-1 up to the root, computing every
// tile from its four children. Serial and parallel runs produce
// bit-identical tiles; sibling completion order never affects the result.
func Cascade(st store.TileStore, opts Options) error {
	if st == nil {
		return fmt.Errorf("cascade requires a tile store")
	}
	if opts.Start <= 0 {
		return nil
	}
	opts.applyDefaults()

	if opts.Parallelism == 1 {
		return runSerial(st, opts)
	}
	return runParallel(st, opts)
}
