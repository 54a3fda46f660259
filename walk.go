package hydrotwin

// A TraceNode is an element of a trace tree: either a Leaf naming a single
// feature or a Branch grouping a nested sub-network.
type TraceNode interface {
	traceNode()
}

// Leaf is a feature id settled by a trace.
type Leaf string

// Branch is an ordered group of trace nodes. The first element of a non-empty
// branch is always the Leaf of its root: the fixed head for the outermost
// branch, a live-data point for every nested one.
type Branch []TraceNode

func (Leaf) traceNode()   {}
func (Branch) traceNode() {}

// Root returns the id of the branch's root.
func (b Branch) Root() (string, bool) {
	if len(b) == 0 {
		return "", false
	}
	l, ok := b[0].(Leaf)
	return string(l), ok
}

// A Visitor defines a Visit method invoked for each TraceNode encountered by
// Walk. If the result visitor w is not nil, Walk visits each child of a Branch
// with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node TraceNode) (w Visitor)
}

// Walk traverses a trace tree in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil and node is a Branch, Walk is invoked recursively
// with visitor w for each element of the branch, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node TraceNode) {
	if v = v.Visit(node); v == nil {
		return
	}
	if b, ok := node.(Branch); ok {
		for _, child := range b {
			Walk(v, child)
		}
	}
	v.Visit(nil)
}

type inspector func(node TraceNode) bool

func (f inspector) Visit(node TraceNode) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses a trace tree in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each element of a Branch, followed by a call of f(nil).
func Inspect(node TraceNode, f func(TraceNode) bool) {
	Walk(inspector(f), node)
}

// Flatten returns every feature id in the tree, in depth-first order.
func Flatten(node TraceNode) []string {
	var ids []string
	Inspect(node, func(n TraceNode) bool {
		if l, ok := n.(Leaf); ok {
			ids = append(ids, string(l))
		}
		return true
	})
	return ids
}

// FindBranch returns the branch rooted at id, searching tree depth-first.
func FindBranch(tree Branch, id string) (Branch, bool) {
	var found Branch
	Inspect(tree, func(n TraceNode) bool {
		if found != nil {
			return false
		}
		b, ok := n.(Branch)
		if !ok {
			return false
		}
		if root, ok := b.Root(); ok && root == id {
			found = b
			return false
		}
		return true
	})
	return found, found != nil
}
