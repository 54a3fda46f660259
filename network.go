package hydrotwin

import "fmt"

// Network is a read-only index over a Model's features: features by id and,
// for every node, the links incident to it in feature order.
//
// Build one with NewNetwork; do not modify the underlying Model while the
// index is in use.
type Network struct {
	model    *Model
	byID     map[string]int
	incident map[string][]string
}

// NewNetwork indexes the features of m. When ids repeat, the first feature
// with that id wins.
func NewNetwork(m *Model) *Network {
	n := &Network{
		model:    m,
		byID:     make(map[string]int, len(m.Features)),
		incident: make(map[string][]string),
	}
	for i, f := range m.Features {
		id := f.ID()
		if _, ok := n.byID[id]; !ok {
			n.byID[id] = i
		}
		if !f.IsLink() {
			continue
		}
		us, ds := f.Ends()
		// A self-loop is incident once; a second entry would only be
		// discarded as settled.
		n.incident[us] = append(n.incident[us], id)
		if ds != us {
			n.incident[ds] = append(n.incident[ds], id)
		}
	}
	return n
}

// Model returns the indexed model.
func (n *Network) Model() *Model { return n.model }

// Feature returns the feature with the given id.
func (n *Network) Feature(id string) (Feature, bool) {
	i, ok := n.byID[id]
	if !ok {
		return Feature{}, false
	}
	return n.model.Features[i], true
}

// Neighbours returns the ids adjacent to id: the incident links of a point,
// or the two end nodes of a link. Unknown ids have no neighbours.
func (n *Network) Neighbours(id string) []string {
	f, ok := n.Feature(id)
	switch {
	case !ok:
		return nil
	case f.IsLink():
		us, ds := f.Ends()
		return []string{us, ds}
	default:
		return n.incident[id]
	}
}

// FixedHead returns the id of the network's only fixed head. A network with
// none, or with more than one, is a configuration error.
func (n *Network) FixedHead() (string, error) {
	var heads []string
	for _, f := range n.model.Features {
		if f.Table() == TableFixedHead {
			heads = append(heads, f.ID())
		}
	}
	if len(heads) != 1 {
		return "", &ConfigurationError{Reason: fmt.Sprintf("want exactly one fixed head, found %d", len(heads))}
	}
	return heads[0], nil
}
