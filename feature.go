package hydrotwin

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
)

// Element kinds as they appear in a feature's "table" property.
const (
	TableNode           = "wn_node"
	TableHydrant        = "wn_hydrant"
	TableTransferNode   = "wn_transfer_node"
	TableFixedHead      = "wn_fixed_head"
	TablePipe           = "wn_pipe"
	TableValve          = "wn_valve"
	TableNonReturnValve = "wn_non_return_valve"
	TableMeter          = "wn_meter"
)

// Geometry types understood by the network index.
const (
	GeometryPoint      = "Point"
	GeometryLineString = "LineString"
)

// Properties holds the free-form attributes of a Feature exactly as decoded
// from JSON. Numbers may arrive either as JSON numbers or as numeric strings
// (e.g. "0."), so use the typed accessors rather than asserting types.
type Properties map[string]any

// Has reports whether key is present, even if its value is null.
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value of key as a string. Numbers are formatted in their
// shortest representation; absent and null values yield "".
func (p Properties) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Float returns the numeric value of key. Strings are parsed leniently (the
// longest numeric prefix wins, so "0." is 0 and "12 m" is 12). The bool result
// is false when the key is absent, null or not numeric.
func (p Properties) Float(key string) (float64, bool) {
	return toFloat(p[key])
}

// FloatOr returns the numeric value of key, or def when it has none.
func (p Properties) FloatOr(key string, def float64) float64 {
	if v, ok := p.Float(key); ok {
		return v
	}
	return def
}

// Column returns column col of a table-valued property such as "levels"
// ([[time, value], ...]) or "flows". Cells that are null or not numeric are
// NaN. A property that is not a list yields nil.
func (p Properties) Column(key string, col int) []float64 {
	rows, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = math.NaN()
		cells, ok := row.([]any)
		if !ok || col >= len(cells) {
			continue
		}
		if v, ok := toFloat(cells[col]); ok {
			out[i] = v
		}
	}
	return out
}

// Rows returns a table-valued property as strings, e.g. the "profiles" of a
// time-controlled valve.
func (p Properties) Rows(key string) [][]string {
	rows, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells, _ := row.([]any)
		out[i] = make([]string, len(cells))
		for j, c := range cells {
			out[i][j] = Properties{"": c}.String("")
		}
	}
	return out
}

// Clone returns a shallow copy of p.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Merge returns a copy of p with the entries of override on top.
func (p Properties) Merge(override Properties) Properties {
	merged := p.Clone()
	maps.Copy(merged, override)
	return merged
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return ParseFloat(v)
	default:
		return 0, false
	}
}

// Geometry is the location of a Feature: a Point carries one coordinate pair,
// a LineString an ordered list of vertices.
type Geometry struct {
	Type   string
	Point  []float64
	Vertex [][]float64
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords any
	switch g.Type {
	case GeometryPoint:
		coords = g.Point
	default:
		coords = g.Vertex
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(geometryJSON{Type: g.Type, Coordinates: raw})
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var x geometryJSON
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*g = Geometry{Type: x.Type}
	if len(x.Coordinates) == 0 || string(x.Coordinates) == "null" {
		return nil
	}
	switch x.Type {
	case GeometryPoint:
		if err := json.Unmarshal(x.Coordinates, &g.Point); err != nil {
			return fmt.Errorf("point coordinates: %w", err)
		}
	case GeometryLineString:
		if err := json.Unmarshal(x.Coordinates, &g.Vertex); err != nil {
			return fmt.Errorf("line coordinates: %w", err)
		}
	default:
		return fmt.Errorf("unsupported geometry %q", x.Type)
	}
	return nil
}

// Feature is one network element: a node-like Point or a link-like LineString.
type Feature struct {
	Geometry   *Geometry
	Properties Properties
}

type featureJSON struct {
	Type       string     `json:"type"`
	Geometry   *Geometry  `json:"geometry"`
	Properties Properties `json:"properties"`
}

func (f Feature) MarshalJSON() ([]byte, error) {
	return json.Marshal(featureJSON{Type: "Feature", Geometry: f.Geometry, Properties: f.Properties})
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	var x featureJSON
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	f.Geometry, f.Properties = x.Geometry, x.Properties
	return nil
}

// ID returns the stable identifier of the feature.
func (f Feature) ID() string { return f.Properties.String("id") }

// Table returns the element kind of the feature.
func (f Feature) Table() string { return f.Properties.String("table") }

// IsPoint reports whether the feature has Point geometry.
func (f Feature) IsPoint() bool { return f.Geometry != nil && f.Geometry.Type == GeometryPoint }

// IsLink reports whether the feature has LineString geometry.
func (f Feature) IsLink() bool { return f.Geometry != nil && f.Geometry.Type == GeometryLineString }

// LiveDataID returns the id of the sensor attached to the feature, if any.
func (f Feature) LiveDataID() string { return f.Properties.String("live_data_point_id") }

// Ends returns the upstream and downstream node ids of a link.
func (f Feature) Ends() (us, ds string) {
	return f.Properties.String("us_node_id"), f.Properties.String("ds_node_id")
}

// IsJunction reports whether the feature is compiled as a junction.
func (f Feature) IsJunction() bool {
	switch f.Table() {
	case TableNode, TableHydrant, TableTransferNode:
		return true
	}
	return false
}

// IsShutValve reports whether the feature is a throttle valve left manually
// shut. Nothing propagates through a shut valve.
func (f Feature) IsShutValve() bool {
	return f.Properties.String("pipe_closed") == "0" && f.Properties.String("mode") == "THV"
}

// Clone returns a copy of f whose properties may be modified freely.
func (f Feature) Clone() Feature {
	c := Feature{Properties: f.Properties.Clone()}
	if f.Geometry != nil {
		g := *f.Geometry
		c.Geometry = &g
	}
	return c
}
