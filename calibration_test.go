package hydrotwin

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCalibrationAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		action  CalibrationAction
		wantErr bool
	}{
		{name: "Roughness", action: RoughnessAction(1, 0, "P1")},
		{name: "Throttle", action: ThrottleAction(2, 50, "V1", "V2")},
		{name: "PRV", action: PRVAction(3, 20, "V3")},
		{name: "UnknownType", action: CalibrationAction{ID: 4, Type: "Q", Actions: []FeatureAction{{FeatureID: "P1", Action: Properties{"q": 1}}}}, wantErr: true},
		{name: "NoActions", action: CalibrationAction{ID: 5, Type: ActionRoughness}, wantErr: true},
		{name: "NoFeature", action: CalibrationAction{ID: 6, Type: ActionRoughness, Actions: []FeatureAction{{Action: Properties{"k": 1}}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.action.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoughnessAction(t *testing.T) {
	a := RoughnessAction(1, -0.5, "P1", "P2")
	if !a.Multi {
		t.Error("action over two links is not multi")
	}
	if len(a.Actions) != 2 {
		t.Fatalf("len(Actions) = %d, want 2", len(a.Actions))
	}
	k, _ := a.Actions[1].Action.Float("k")
	if want := math.Pow(10, -0.5); k != want {
		t.Errorf("k = %v, want %v", k, want)
	}
}

func TestOverrides(t *testing.T) {
	actions := []CalibrationAction{
		RoughnessAction(1, 0, "P1", "P2"),
		ThrottleAction(2, 40, "V1"),
		{ID: 3, Type: ActionRoughness, Actions: []FeatureAction{{FeatureID: "P2", Action: Properties{"k": 5.0, "c": 1.0}}}},
	}
	want := map[string]Properties{
		"P1": {"k": 1.0},
		"P2": {"k": 5.0, "c": 1.0},
		"V1": {"opening": 40.0},
	}
	got := Overrides(actions)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Overrides() mismatch (-want +got):\n%s", diff)
	}

	got["P1"]["k"] = 9.0
	if actions[0].Actions[0].Action["k"] != 1.0 {
		t.Error("modifying an override changed the calibration action")
	}
}
