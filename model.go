package hydrotwin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Model is a hydraulic network as extracted from the engineering tool: the
// feature collection plus the model payload of demands, demand profiles, live
// data and run-time settings.
//
// A Model is treated as read-only once built; calibration is layered on at
// compile time and never written back into the features.
type Model struct {
	Features []Feature

	// Demands lists the consumption attached to each node, keyed by node id.
	Demands Ordered[[]Demand]
	// DemandProfiles holds the 96 quarter-hourly multipliers of each demand
	// category, keyed by category id.
	DemandProfiles Ordered[[]float64]
	// LiveData holds the raw sensor records keyed by live-data point id.
	LiveData Ordered[LiveDataRecord]
	// RunTime holds the run-time settings; only start_date_time is read.
	RunTime Properties
	// Calibrations is the calibration list saved together with the model.
	Calibrations []CalibrationAction

	// Extra retains payload members this package does not interpret (e.g. the
	// extract version) so that writing a model back out loses nothing.
	Extra map[string]json.RawMessage
}

// Demand is one consumption category attached to a node.
type Demand struct {
	CategoryID      string  `json:"category_id"`
	SpecConsumption float64 `json:"spec_consumption"`
	NoOfProperties  float64 `json:"no_of_properties"`
}

// Flow returns the demand in litres per second.
func (d Demand) Flow() float64 {
	return d.NoOfProperties * d.SpecConsumption / 86400
}

// StartDateTime returns the raw canonical start of the simulation.
func (m *Model) StartDateTime() string {
	return m.RunTime.String("start_date_time")
}

// DemandProfile looks up the multipliers of a category, ignoring case.
func (m *Model) DemandProfile(category string) ([]float64, bool) {
	if p, ok := m.DemandProfiles.Get(category); ok {
		return p, true
	}
	for k, p := range m.DemandProfiles.All() {
		if strings.EqualFold(k, category) {
			return p, true
		}
	}
	return nil, false
}

// Feature returns the first feature with the given id.
func (m *Model) Feature(id string) (Feature, bool) {
	for _, f := range m.Features {
		if f.ID() == id {
			return f, true
		}
	}
	return Feature{}, false
}

// LiveDataRecord is the raw reading history of one sensor.
type LiveDataRecord struct {
	LiveDataPointID string   `json:"live_data_point_id"`
	PressureOffset  Numeric  `json:"pressure_offset"`
	TimeOffset      Numeric  `json:"time_offset"`
	Readings        Readings `json:"live_data"`
}

// Readings is a regular series of sensor values starting at Date and Time.
type Readings struct {
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Interval string    `json:"interval,omitempty"`
	Values   []float64 `json:"values"`
}

// Numeric is a number carried as text, accepting JSON numbers, numeric
// strings and null alike. The empty Numeric has no value.
type Numeric string

// Float returns the parsed value of n.
func (n Numeric) Float() (float64, bool) {
	if n == "" {
		return 0, false
	}
	return ParseFloat(string(n))
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case string(data) == "null":
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("numeric: %w", err)
		}
		*n = Numeric(num)
	}
	return nil
}

type modelJSON struct {
	Type     string          `json:"type"`
	Features []Feature       `json:"features"`
	Model    json.RawMessage `json:"model"`
}

// payload member names.
const (
	keyDemands        = "demands"
	keyDemandProfiles = "demand_profiles"
	keyLiveData       = "live_data"
	keyRunTime        = "run_time"
	keyCalibrations   = "ca"
)

// ReadModel decodes a Model from its JSON document. A document without a
// model payload, or whose payload lacks the run-time settings, is rejected
// with a *ConfigurationError.
func ReadModel(r io.Reader) (*Model, error) {
	var doc modelJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(doc.Model) == 0 || string(doc.Model) == "null" {
		return nil, &ConfigurationError{Reason: "model payload is missing"}
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(doc.Model, &payload); err != nil {
		return nil, fmt.Errorf("decode model payload: %w", err)
	}

	m := &Model{Features: doc.Features}
	members := []struct {
		key string
		dst any
	}{
		{keyDemands, &m.Demands},
		{keyDemandProfiles, &m.DemandProfiles},
		{keyLiveData, &m.LiveData},
		{keyRunTime, &m.RunTime},
		{keyCalibrations, &m.Calibrations},
	}
	for _, member := range members {
		raw, ok := payload[member.key]
		if !ok {
			continue
		}
		delete(payload, member.key)
		if err := json.Unmarshal(raw, member.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", member.key, err)
		}
	}
	if m.RunTime == nil {
		return nil, &ConfigurationError{Reason: "run_time settings are missing"}
	}
	if len(payload) > 0 {
		m.Extra = payload
	}
	return m, nil
}

// WriteJSON encodes m in the same document format ReadModel accepts,
// including the calibration list.
func (m *Model) WriteJSON(w io.Writer) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (m *Model) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		payload[k] = v
	}
	payload[keyDemands] = m.Demands
	payload[keyDemandProfiles] = m.DemandProfiles
	payload[keyLiveData] = m.LiveData
	payload[keyRunTime] = m.RunTime
	if len(m.Calibrations) > 0 {
		payload[keyCalibrations] = m.Calibrations
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode model payload: %w", err)
	}
	features := m.Features
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(modelJSON{Type: "FeatureCollection", Features: features, Model: raw})
}

func (m *Model) UnmarshalJSON(data []byte) error {
	decoded, err := ReadModel(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
