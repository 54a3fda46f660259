package hydrotwin

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Calibration action types.
const (
	ActionRoughness = "k"
	ActionThrottle  = "THV"
	ActionPRV       = "PRV"
)

// CalibrationAction is a user-authored override applied on top of a model at
// compile time. It never modifies the model itself.
type CalibrationAction struct {
	ID      int             `json:"id"`
	Type    string          `json:"type" validate:"required,oneof=k THV PRV"`
	Multi   bool            `json:"multi"`
	Actions []FeatureAction `json:"actions" validate:"required,min=1,dive"`
}

// FeatureAction overrides some properties of a single feature.
type FeatureAction struct {
	FeatureID string     `json:"id" validate:"required"`
	Action    Properties `json:"action" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks that a is well formed.
func (a CalibrationAction) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("calibration action %d: %w", a.ID, err)
	}
	return nil
}

// Overrides folds a list of calibration actions into the property overrides
// of each feature. Actions are applied in order and a later action replaces
// whatever an earlier one set for the same feature.
func Overrides(actions []CalibrationAction) map[string]Properties {
	out := make(map[string]Properties)
	for _, a := range actions {
		for _, fa := range a.Actions {
			out[fa.FeatureID] = fa.Action.Clone()
		}
	}
	return out
}

// RoughnessAction builds the override setting the roughness of each link from
// a slider position in log space: k = 10^position.
func RoughnessAction(id int, position float64, links ...string) CalibrationAction {
	return newAction(id, ActionRoughness, "k", math.Pow(10, position), links)
}

// ThrottleAction builds the override setting the percentage opening of each
// throttle valve.
func ThrottleAction(id int, opening float64, valves ...string) CalibrationAction {
	return newAction(id, ActionThrottle, "opening", opening, valves)
}

// PRVAction builds the override setting the set pressure of each
// pressure-reducing valve.
func PRVAction(id int, pressure float64, valves ...string) CalibrationAction {
	return newAction(id, ActionPRV, "pressure", pressure, valves)
}

func newAction(id int, kind, key string, value float64, features []string) CalibrationAction {
	a := CalibrationAction{ID: id, Type: kind, Multi: len(features) > 1}
	for _, f := range features {
		a.Actions = append(a.Actions, FeatureAction{FeatureID: f, Action: Properties{key: value}})
	}
	return a
}
