package cascade

import (
	"testing"

	"github.com/skytiler/skytiler/internal/pyramid"
)

func TestChildDone(t *testing.T) {
	tr := newReadinessTracker()

	children := pyramid.Root.Children()
	for i, child := range children {
		parent, ready, err := tr.childDone(child)
		if err != nil {
			t.Fatalf("childDone(%v) failed: %v", child, err)
		}
		if parent != pyramid.Root {
			t.Fatalf("childDone(%v) reported parent %v", child, parent)
		}
		wantReady := i == 3
		if ready != wantReady {
			t.Errorf("after child %d, ready = %v, want %v", i, ready, wantReady)
		}
	}

	// The entry is consumed on full readiness.
	if len(tr.masks) != 0 {
		t.Errorf("tracker still holds %d entries", len(tr.masks))
	}
}

func TestChildDoneDuplicateIsFatal(t *testing.T) {
	tr := newReadinessTracker()
	child := pyramid.Address{Depth: 2, X: 1, Y: 1}
	if _, _, err := tr.childDone(child); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	if _, _, err := tr.childDone(child); err == nil {
		t.Fatal("expected duplicate completion to be an error")
	}
}

func TestSeedFiltered(t *testing.T) {
	t.Run("twoSiblings", func(t *testing.T) {
		tr := newReadinessTracker()
		err := tr.seedFiltered([]pyramid.Address{
			{Depth: 1, X: 0, Y: 0},
			{Depth: 1, X: 1, Y: 0},
		})
		if err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
		if got := tr.masks[pyramid.Root]; got != 0b1100 {
			t.Errorf("root mask = %04b, want 1100", got)
		}
	})

	t.Run("deepSparse", func(t *testing.T) {
		tr := newReadinessTracker()
		err := tr.seedFiltered([]pyramid.Address{
			{Depth: 3, X: 7, Y: 7},
			{Depth: 3, X: 3, Y: 1},
		})
		if err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
		want := map[pyramid.Address]uint8{
			{Depth: 0, X: 0, Y: 0}: 0b0110,
			{Depth: 1, X: 1, Y: 1}: 0b0111,
			{Depth: 1, X: 0, Y: 0}: 0b1101,
			{Depth: 2, X: 3, Y: 3}: 0b0111,
			{Depth: 2, X: 1, Y: 0}: 0b0111,
		}
		if len(tr.masks) != len(want) {
			t.Errorf("tracker holds %d entries, want %d: %v", len(tr.masks), len(want), tr.masks)
		}
		for addr, mask := range want {
			if got := tr.masks[addr]; got != mask {
				t.Errorf("mask at %v = %04b, want %04b", addr, got, mask)
			}
		}
	})

	t.Run("rootSeedStopsImmediately", func(t *testing.T) {
		tr := newReadinessTracker()
		if err := tr.seedFiltered([]pyramid.Address{pyramid.Root}); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
		if len(tr.masks) != 0 {
			t.Errorf("seeding the root alone should record nothing, got %v", tr.masks)
		}
	})

	t.Run("emptySeed", func(t *testing.T) {
		tr := newReadinessTracker()
		if err := tr.seedFiltered(nil); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
		if len(tr.masks) != 0 {
			t.Errorf("empty seed should record nothing, got %v", tr.masks)
		}
	})
}

// Seeding one very deep lone leaf must terminate and leave exactly one
// 0b-three-bit entry per ancestor level: the generation walk gets one
// level shallower each round regardless of sparsity.
func TestSeedFilteredDeepSparseTerminates(t *testing.T) {
	const depth = 24
	tr := newReadinessTracker()
	leaf := pyramid.Address{Depth: depth, X: (1 << depth) - 1, Y: 0}
	if err := tr.seedFiltered([]pyramid.Address{leaf}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	if len(tr.masks) != depth {
		t.Fatalf("tracker holds %d entries, want %d", len(tr.masks), depth)
	}

	// Replaying the lone chain of completions bottom-up must ripple a
	// readiness all the way to the root, one parent per level.
	cur := leaf
	for cur.Depth > 0 {
		parent, ready, err := tr.childDone(cur)
		if err != nil {
			t.Fatalf("childDone(%v) failed: %v", cur, err)
		}
		if !ready {
			t.Fatalf("parent %v not ready after its only filtered child", parent)
		}
		cur = parent
	}
	if len(tr.masks) != 0 {
		t.Errorf("tracker still holds %d entries after full ripple", len(tr.masks))
	}
}
