package hydrotwin

import (
	"fmt"
	"math"
)

// SubModel is a reduced model rooted at a live-data point, together with the
// warnings raised while extracting it.
type SubModel struct {
	*Model
	// Root is the id of the point the model was re-rooted at.
	Root string
	// Warnings lists recoverable problems, such as a root without aligned
	// live data.
	Warnings []string
}

// ExtractSubModel builds the model of the sub-network rooted at id, treating
// id as the model's fixed head.
//
// The result contains, in their original order, every feature of the branch
// rooted at id except id itself, followed by a copy of the feature at id
// turned into a fixed head. Links with an end outside the sub-model are left
// out, so every node a link names is part of the result. The fixed head keeps its own "levels" when it has
// any; otherwise its levels are synthesised as [[i, z + series[i]]] from the
// aligned series of its sensor. Demands are kept for member nodes only; every
// other payload member is carried over unchanged.
//
// series is keyed by live-data point id; a root without aligned data gets an
// empty level series and a warning rather than an error.
func (n *Network) ExtractSubModel(id string, series map[string][]float64) (*SubModel, error) {
	root, ok := n.Feature(id)
	if !ok {
		return nil, fmt.Errorf("extract %q: %w", id, ErrUnknownFeature)
	}
	tree, err := n.TraceAll()
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", id, err)
	}
	branch, ok := FindBranch(tree, id)
	if !ok {
		return nil, fmt.Errorf("extract %q: %w", id, ErrNotSubModel)
	}

	members := make(map[string]struct{})
	for _, m := range Flatten(branch) {
		if m != id {
			members[m] = struct{}{}
		}
	}

	sub := &SubModel{Root: id}
	head := root.Clone()
	head.Properties["table"] = TableFixedHead
	if _, ok := head.Properties["levels"].([]any); !ok {
		levels, warning := synthesiseLevels(root, series)
		head.Properties["levels"] = levels
		if warning != "" {
			sub.Warnings = append(sub.Warnings, warning)
		}
	}

	contains := func(us, ds string) bool {
		for _, end := range []string{us, ds} {
			if _, ok := members[end]; !ok && end != id {
				return false
			}
		}
		return true
	}

	var b ModelBuilder
	b.From(n.model)
	b.KeepDemands(func(node string) bool {
		_, ok := members[node]
		return ok
	})
	b.Hint(len(members) + 1)
	for _, f := range n.model.Features {
		if _, ok := members[f.ID()]; !ok {
			continue
		}
		if f.IsLink() && !contains(f.Ends()) {
			// A live-data link can be settled in this branch while one of
			// its ends belongs to the parent.
			continue
		}
		b.Features(f)
	}
	b.Features(head)
	sub.Model = b.Build()
	return sub, nil
}

// synthesiseLevels derives the head levels of a re-rooted point from the
// aligned readings of its sensor: the level at step i is the point's
// elevation plus the pressure read at step i. Missing readings become null.
func synthesiseLevels(f Feature, series map[string][]float64) ([]any, string) {
	s, ok := series[f.LiveDataID()]
	if !ok {
		s, ok = series[f.ID()]
	}
	if !ok {
		return []any{}, fmt.Sprintf("no aligned live data for %q; its head has no levels", f.ID())
	}
	z := f.Properties.FloatOr("z", 0)
	levels := make([]any, len(s))
	for i, v := range s {
		var level any
		if !math.IsNaN(v) {
			level = z + v
		}
		levels[i] = []any{float64(i), level}
	}
	return levels, ""
}
