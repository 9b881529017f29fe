package cascade

import (
	"fmt"

	"github.com/skytiler/skytiler/internal/pyramid"
)

const fullMask = 0b1111

// readinessTracker records, per parent address, which of its four
// children have been computed. Entries are created lazily on the first
// child completion and consumed the moment the mask reaches 0b1111.
//
// The tracker is owned by the dispatcher and must only ever be touched
// from its goroutine; workers report completions over the done channel
// instead of mutating shared state.
type readinessTracker struct {
	masks map[pyramid.Address]uint8
}

func newReadinessTracker() *readinessTracker {
	return &readinessTracker{masks: make(map[pyramid.Address]uint8)}
}

// setBit marks one child bit of parent as satisfied. It reports whether
// the parent just became fully ready, in which case its entry has been
// consumed and the parent is eligible for processing. Setting a bit that
// is already set means two completion reports for one child, which can
// only be an internal bookkeeping bug.
func (t *readinessTracker) setBit(parent pyramid.Address, bit int) (ready bool, err error) {
	mask := t.masks[parent]
	if mask&(1<<bit) != 0 {
		return false, fmt.Errorf("duplicate completion report for child %d of %s (mask %04b)", bit, parent, mask)
	}
	mask |= 1 << bit
	if mask == fullMask {
		delete(t.masks, parent)
		return true, nil
	}
	t.masks[parent] = mask
	return false, nil
}

// childDone records that a child tile has been computed and reports
// whether its parent is now ready.
func (t *readinessTracker) childDone(child pyramid.Address) (parent pyramid.Address, ready bool, err error) {
	parent, xIdx, yIdx := child.Parent()
	ready, err = t.setBit(parent, 2*yIdx+xIdx)
	return parent, ready, err
}

// seedFiltered pre-satisfies the readiness bits of every sibling outside
// the filtered set, walking generation by generation up to the root. With
// those bits in place, an ancestor becomes ready as soon as its filtered
// descendants finish, instead of waiting forever for siblings that will
// never be computed.
//
// The walk is iterative: each generation is one level shallower than the
// last, so it terminates for any finite seed set, however deep or sparse.
func (t *readinessTracker) seedFiltered(leaves []pyramid.Address) error {
	gen := make(map[pyramid.Address]bool, len(leaves))
	for _, a := range leaves {
		gen[a] = true
	}

	for len(gen) > 0 {
		if gen[pyramid.Root] {
			return nil
		}
		parents := make(map[pyramid.Address]bool, len(gen))
		for a := range gen {
			parent, _, _ := a.Parent()
			parents[parent] = true
		}
		for parent := range parents {
			for i, child := range parent.Children() {
				if gen[child] {
					continue
				}
				if _, err := t.setBit(parent, i); err != nil {
					return err
				}
			}
		}
		gen = parents
	}
	return nil
}
