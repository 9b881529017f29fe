package pyramid

// FilterFunc restricts a traversal to a subtree of the pyramid. A tile
// participates when the filter returns true for its address.
//
// Filters must be hierarchical: if a tile matches, its parent must match
// too. Traversals prune a subtree as soon as its top tile fails the
// filter, so a non-hierarchical filter would hide matching descendants.
type FilterFunc func(Address) bool

// Walk visits every address from the given depth up to the root,
// level by level, deepest first. Within a level, addresses are visited in
// row-major order (y outer, x inner). The ordering guarantees that a
// tile's four children are visited before the tile itself.
//
// Walk stops and returns the first error the visitor reports.
func Walk(depth int, visit func(Address) error) error {
	for d := depth; d >= 0; d-- {
		n := 1 << d
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				if err := visit(Address{Depth: d, X: x, Y: y}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// WalkFiltered visits the addresses at depths depth down to 1 that match
// the filter, in post-order (children before parents), pruning subtrees
// whose top tile fails the filter. The root is never visited; callers that
// need it process it last, unconditionally, after all filtered
// descendants.
func WalkFiltered(depth int, filter FilterFunc, visit func(Address) error) error {
	if depth < 1 {
		return nil
	}

	// Iterative post-order with an explicit stack so traversal depth does
	// not grow the call stack.
	type frame struct {
		addr     Address
		expanded bool
	}
	stack := make([]frame, 0, 4*depth)
	for _, child := range Root.Children() {
		if filter(child) {
			stack = append(stack, frame{addr: child})
		}
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded || top.addr.Depth == depth {
			addr := top.addr
			stack = stack[:len(stack)-1]
			if err := visit(addr); err != nil {
				return err
			}
			continue
		}
		top.expanded = true
		for _, child := range top.addr.Children() {
			if filter(child) {
				stack = append(stack, frame{addr: child})
			}
		}
	}
	return nil
}

// CountMatchingFilter returns the number of addresses WalkFiltered would
// visit for the given depth and filter. The root is not counted.
func CountMatchingFilter(depth int, filter FilterFunc) int64 {
	var total int64
	WalkFiltered(depth, filter, func(Address) error {
		total++
		return nil
	})
	return total
}

// LeavesMatchingFilter returns the filtered addresses at exactly the given
// depth, the set a filtered cascade seeds its ready queue with.
func LeavesMatchingFilter(depth int, filter FilterFunc) []Address {
	var leaves []Address
	WalkFiltered(depth, filter, func(addr Address) error {
		if addr.Depth == depth {
			leaves = append(leaves, addr)
		}
		return nil
	})
	return leaves
}
