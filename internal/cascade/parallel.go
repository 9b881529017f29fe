package cascade

import (
	"sync"

	"github.com/skytiler/skytiler/internal/pyramid"
	"github.com/skytiler/skytiler/internal/store"
)

// runParallel coordinates one dispatcher and Parallelism workers over two
// channels. Workers pop addresses whose children are all computed from
// the ready channel, merge them, and report them on the done channel; the
// dispatcher turns completions into readiness updates and new ready
// addresses. The readiness map lives on the dispatcher goroutine alone,
// so it needs no lock.
func runParallel(st store.TileStore, opts Options) error {
	d := &dispatcher{
		st:    st,
		opts:  opts,
		ready: make(chan pyramid.Address, 4*opts.Parallelism),
		// The done channel is bounded so workers that outpace the
		// dispatcher are throttled instead of piling up completions.
		done:  make(chan pyramid.Address, 2*opts.Parallelism),
		errc:  make(chan error, opts.Parallelism),
		stop:  make(chan struct{}),
		masks: newReadinessTracker(),
	}
	return d.run()
}

type dispatcher struct {
	st   store.TileStore
	opts Options

	ready chan pyramid.Address
	done  chan pyramid.Address
	errc  chan error
	stop  chan struct{}
	wg    sync.WaitGroup

	// overflow holds ready addresses the channel had no room for. Only
	// the dispatcher touches it, which keeps the ready queue bounded by
	// memory alone without any locking.
	overflow []pyramid.Address

	masks *readinessTracker
}

func (d *dispatcher) run() error {
	total := d.opts.totalTiles()
	var processed int64

	if err := d.seed(); err != nil {
		return err
	}

	for i := 0; i < d.opts.Parallelism; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	defer func() {
		close(d.stop)
		d.wg.Wait()
	}()

	for {
		select {
		case err := <-d.errc:
			return err
		case addr := <-d.done:
			processed++
			if d.opts.Progress != nil {
				d.opts.Progress(processed, total)
			}

			// The root has no parent; once it lands, the pyramid is
			// complete.
			if addr.Depth == 0 {
				return nil
			}

			parent, ready, err := d.masks.childDone(addr)
			if err != nil {
				return err
			}
			if ready {
				d.pushReady(parent)
			}
			d.flushOverflow()
		}
	}
}

// seed fills the ready queue with every address the run starts from: the
// whole level below Start, or the filtered leaves with their ancestors'
// missing-sibling bits pre-satisfied.
func (d *dispatcher) seed() error {
	depth := d.opts.Start - 1
	if d.opts.Filter == nil {
		n := 1 << depth
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				d.pushReady(pyramid.Address{Depth: depth, X: x, Y: y})
			}
		}
		return nil
	}

	leaves := pyramid.LeavesMatchingFilter(depth, d.opts.Filter)
	if len(leaves) == 0 {
		// Nothing matched; the root is still recomputed, matching the
		// serial cascader's unconditional final visit.
		d.pushReady(pyramid.Root)
		return nil
	}
	if err := d.masks.seedFiltered(leaves); err != nil {
		return err
	}
	for _, addr := range leaves {
		d.pushReady(addr)
	}
	return nil
}

// pushReady enqueues an address for the workers, spilling to the
// overflow slice when the channel is full. Never blocks, so the
// dispatcher cannot deadlock against workers blocked on the done channel.
func (d *dispatcher) pushReady(addr pyramid.Address) {
	select {
	case d.ready <- addr:
	default:
		d.overflow = append(d.overflow, addr)
	}
}

func (d *dispatcher) flushOverflow() {
	for len(d.overflow) > 0 {
		select {
		case d.ready <- d.overflow[0]:
			d.overflow = d.overflow[1:]
		default:
			return
		}
	}
}

// worker merges ready tiles until told to stop. A select on the stop
// channel stands in for polling with a timeout: shutdown is observed
// promptly without busy-waiting.
func (d *dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case addr := <-d.ready:
			if err := processTile(d.st, d.opts.Merger, addr); err != nil {
				d.reportError(err)
				return
			}
			select {
			case d.done <- addr:
			case <-d.stop:
				return
			}
		}
	}
}

func (d *dispatcher) reportError(err error) {
	select {
	case d.errc <- err:
	default:
		// Another worker already failed; the first error wins.
	}
}
