package hydrotwin

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sensorNetwork() *Network {
	var n network
	n.head("R").sensor("S").junction("J2").
		pipe("P1", "R", "S").
		pipe("P2", "S", "J2")
	n.b.Demand("R", Demand{CategoryID: "DOM", SpecConsumption: 100, NoOfProperties: 1})
	n.b.Demand("J2", Demand{CategoryID: "DOM", SpecConsumption: 200, NoOfProperties: 3})
	n.b.Profile("DOM", []float64{1, 0.5})
	return n.build()
}

func featureIDs(m *Model) []string {
	ids := make([]string, len(m.Features))
	for i, f := range m.Features {
		ids[i] = f.ID()
	}
	return ids
}

func TestNetwork_ExtractSubModel(t *testing.T) {
	net := sensorNetwork()
	sub, err := net.ExtractSubModel("S", map[string][]float64{"LS": {1.5, math.NaN()}})
	if err != nil {
		t.Fatalf("ExtractSubModel() error = %v", err)
	}

	if diff := cmp.Diff([]string{"J2", "P2", "S"}, featureIDs(sub.Model)); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if len(sub.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", sub.Warnings)
	}

	head := sub.Features[len(sub.Features)-1]
	if got := head.Table(); got != TableFixedHead {
		t.Errorf("root table = %q, want %q", got, TableFixedHead)
	}
	wantLevels := []any{[]any{0.0, 11.5}, []any{1.0, nil}}
	if diff := cmp.Diff(wantLevels, head.Properties["levels"]); diff != "" {
		t.Errorf("root levels mismatch (-want +got):\n%s", diff)
	}
	if orig, _ := net.Feature("S"); orig.Table() != TableNode {
		t.Errorf("extraction modified the source feature: table = %q", orig.Table())
	}

	if diff := cmp.Diff([]string{"J2"}, sub.Demands.Keys()); diff != "" {
		t.Errorf("demand keys mismatch (-want +got):\n%s", diff)
	}
	if _, ok := sub.DemandProfile("dom"); !ok {
		t.Error("demand profiles were not carried over")
	}
	if got := sub.StartDateTime(); got != "01/03/24" {
		t.Errorf("StartDateTime() = %q, want 01/03/24", got)
	}

	// The extracted model traces from its new fixed head.
	tree, err := NewNetwork(sub.Model).TraceAll()
	if err != nil {
		t.Fatalf("TraceAll() on sub-model error = %v", err)
	}
	if got, want := sprintTree(tree), "[S P2 J2]"; got != want {
		t.Errorf("sub-model trace = %s, want %s", got, want)
	}
}

func TestNetwork_ExtractSubModel_linkToParent(t *testing.T) {
	var n network
	net := meterNetwork(&n).build()
	sub, err := net.ExtractSubModel("S", map[string][]float64{"LS": {1}})
	if err != nil {
		t.Fatalf("ExtractSubModel() error = %v", err)
	}
	// M is part of the branch of S but leads to A, which is not.
	if diff := cmp.Diff([]string{"X", "P3", "S"}, featureIDs(sub.Model)); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}

	points := make(map[string]bool)
	for _, f := range sub.Features {
		if f.IsPoint() {
			points[f.ID()] = true
		}
	}
	for _, f := range sub.Features {
		if !f.IsLink() {
			continue
		}
		if us, ds := f.Ends(); !points[us] || !points[ds] {
			t.Errorf("link %s names a node outside the sub-model: %s-%s", f.ID(), us, ds)
		}
	}
}

func TestNetwork_ExtractSubModel_fixedHead(t *testing.T) {
	net := sensorNetwork()
	sub, err := net.ExtractSubModel("R", nil)
	if err != nil {
		t.Fatalf("ExtractSubModel() error = %v", err)
	}
	// The true fixed head keeps its own levels; its nested sensor branch
	// belongs to the sub-model too.
	if diff := cmp.Diff([]string{"S", "J2", "P1", "P2", "R"}, featureIDs(sub.Model)); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	head := sub.Features[len(sub.Features)-1]
	want := []any{[]any{"00:00", 50.0}}
	if diff := cmp.Diff(want, head.Properties["levels"]); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestNetwork_ExtractSubModel_noLiveData(t *testing.T) {
	sub, err := sensorNetwork().ExtractSubModel("S", map[string][]float64{})
	if err != nil {
		t.Fatalf("ExtractSubModel() error = %v", err)
	}
	if len(sub.Warnings) != 1 {
		t.Errorf("Warnings = %v, want exactly one", sub.Warnings)
	}
	head := sub.Features[len(sub.Features)-1]
	if diff := cmp.Diff([]any{}, head.Properties["levels"]); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestNetwork_ExtractSubModel_errors(t *testing.T) {
	tests := []struct {
		id   string
		want error
	}{
		{"missing", ErrUnknownFeature},
		{"J2", ErrNotSubModel},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := sensorNetwork().ExtractSubModel(tt.id, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("ExtractSubModel(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}
