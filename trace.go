package hydrotwin

import "slices"

// Trace walks the network depth-first from root and returns the features it
// reaches as a trace tree. Ids in exclude are treated as already settled and
// are neither visited nor returned.
//
// Every feature popped from the worklist is in one of four states:
//
//   - settled: already part of this trace, or excluded; discarded.
//   - a shut throttle valve: discarded, so nothing propagates through it.
//   - the root, or any feature without live data: settled, and its
//     neighbours pushed onto the worklist.
//   - a live-data feature other than the root: parked on first encounter and
//     promoted to settled (neighbours pushed) when met a second time, which
//     happens when it is reachable by more than one path from this root.
//
// Features still parked once the worklist is exhausted become the roots of
// nested traces, appended as Branch elements in the order they were first
// parked. Nested traces exclude everything settled so far, including the
// results of earlier nested traces. A nested trace that settles nothing, which
// happens when an earlier nested trace already claimed its root, is omitted
// rather than appended as an empty Branch; Flatten and SubModels see no
// difference.
//
// The first element of the result is always Leaf(root), unless root is
// excluded or unknown, in which case the result is empty.
func (n *Network) Trace(root string, exclude []string) Branch {
	found := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		found[id] = struct{}{}
	}
	return n.trace(root, found)
}

func (n *Network) trace(root string, found map[string]struct{}) Branch {
	var (
		tree     Branch
		stack    = []string{root}
		parked   = make(map[string]bool)
		deferred []string
	)
	settle := func(id string) {
		found[id] = struct{}{}
		tree = append(tree, Leaf(id))
		stack = append(stack, n.Neighbours(id)...)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := found[id]; ok {
			continue
		}
		f, ok := n.Feature(id)
		if !ok {
			continue
		}
		switch {
		case f.IsShutValve():
		case id == root || f.LiveDataID() == "":
			settle(id)
		case parked[id]:
			delete(parked, id)
			deferred = slices.DeleteFunc(deferred, func(d string) bool { return d == id })
			settle(id)
		default:
			parked[id] = true
			deferred = append(deferred, id)
		}
	}

	for _, id := range deferred {
		if nested := n.trace(id, found); len(nested) > 0 {
			tree = append(tree, nested)
		}
	}
	return tree
}

// TraceAll traces the whole network from its fixed head.
func (n *Network) TraceAll() (Branch, error) {
	head, err := n.FixedHead()
	if err != nil {
		return nil, err
	}
	return n.Trace(head, nil), nil
}

// SubModels lists the points a model can be re-rooted at: the root of tree
// first, followed by the root of every nested branch of more than one
// element, depth-first.
func SubModels(tree Branch) []string {
	root, ok := tree.Root()
	if !ok {
		return nil
	}
	ids := []string{root}
	var collect func(b Branch)
	collect = func(b Branch) {
		for _, node := range b {
			nested, ok := node.(Branch)
			if !ok {
				continue
			}
			if id, ok := nested.Root(); ok && len(nested) > 1 {
				ids = append(ids, id)
			}
			collect(nested)
		}
	}
	collect(tree)
	return ids
}

// SubModels traces the whole network and lists its re-rooting points.
func (n *Network) SubModels() ([]string, error) {
	tree, err := n.TraceAll()
	if err != nil {
		return nil, err
	}
	return SubModels(tree), nil
}
