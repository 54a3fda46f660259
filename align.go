package hydrotwin

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Canonical timeline of a simulation.
const (
	// StepInterval is the spacing between canonical timesteps.
	StepInterval = 15 * time.Minute
	// DefaultSteps is the canonical number of timesteps, one day.
	DefaultSteps = 96
)

// Alignment is the result of aligning every sensor of a model.
type Alignment struct {
	// Start is the canonical start of the simulation.
	Start time.Time
	// Series holds one aligned series per live-data point id. Entries
	// without a reading are NaN.
	Series map[string][]float64
	// Failures lists the sensors that could not be aligned, sorted by id.
	Failures []AlignmentError
}

// Align resamples every live-data record of m onto the canonical timeline of
// steps entries.
//
// A sensor whose record is malformed is reported in Failures and left out of
// Series; the rest of the batch is aligned regardless. Only a model without a
// readable canonical start fails as a whole, with a *ConfigurationError.
func Align(m *Model, steps int) (Alignment, error) {
	start, err := ParseStart(m.StartDateTime())
	if err != nil {
		return Alignment{}, &ConfigurationError{Reason: fmt.Sprintf("run_time start_date_time: %v", err)}
	}
	a := Alignment{
		Start:  start,
		Series: make(map[string][]float64, m.LiveData.Len()),
	}
	for id, rec := range m.LiveData.All() {
		series, err := AlignSeries(start, steps, rec)
		if err != nil {
			a.Failures = append(a.Failures, AlignmentError{SensorID: id, Err: err})
			continue
		}
		a.Series[id] = series
	}
	slices.SortFunc(a.Failures, func(x, y AlignmentError) int {
		return strings.Compare(x.SensorID, y.SensorID)
	})
	return a, nil
}

// AlignSeries resamples a single sensor record onto the canonical timeline
// beginning at start.
//
// The record's first reading is taken at its own date and time. The index of
// the reading that falls on the canonical start is the number of whole steps
// between the two, less the record's time offset expressed in steps, where the
// fractional part of the step difference is truncated. Entry i of the result
// is reading firstStep+i plus the record's pressure offset, or NaN where the
// record has no such reading.
func AlignSeries(start time.Time, steps int, rec LiveDataRecord) ([]float64, error) {
	recorded, err := parseRecordStart(rec.Readings.Date, rec.Readings.Time)
	if err != nil {
		return nil, err
	}

	var offsetSteps float64
	if minutes, ok := rec.TimeOffset.Float(); ok {
		offsetSteps = math.Floor(minutes / StepInterval.Minutes())
	}
	pressureOffset, _ := rec.PressureOffset.Float()

	diff := start.Sub(recorded).Minutes() / StepInterval.Minutes()
	first := int(math.Trunc(diff - offsetSteps))

	series := make([]float64, steps)
	values := rec.Readings.Values
	for i := range series {
		j := first + i
		if j < 0 || j >= len(values) {
			series[i] = math.NaN()
			continue
		}
		series[i] = values[j] + pressureOffset
	}
	return series, nil
}

// ParseStart parses the canonical start of a simulation: a "dd/mm/yy" or
// "dd/mm/yyyy" date, taken as midnight UTC. Anything following the year, such
// as a time of day, is ignored. Two-digit years are taken to be in the 2000s.
func ParseStart(s string) (time.Time, error) {
	day, month, year, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// parseRecordStart parses the "dd/mm/yy" date and "HH:MM" time of a sensor's
// first reading.
func parseRecordStart(date, clock string) (time.Time, error) {
	day, month, year, err := parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("malformed time %q", clock)
	}
	hour, okH := leadingInt(parts[0])
	minute, okM := leadingInt(parts[1])
	if !okH || !okM || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("malformed time %q", clock)
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

var errMalformedDate = errors.New("malformed date")

func parseDate(s string) (day, month, year int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return 0, 0, 0, fmt.Errorf("%w %q", errMalformedDate, s)
	}
	var ok [3]bool
	day, ok[0] = leadingInt(parts[0])
	month, ok[1] = leadingInt(parts[1])
	year, ok[2] = leadingInt(parts[2])
	if !ok[0] || !ok[1] || !ok[2] || day < 1 || day > 31 || month < 1 || month > 12 || year < 0 {
		return 0, 0, 0, fmt.Errorf("%w %q", errMalformedDate, s)
	}
	if year < 100 {
		year += 2000
	}
	return day, month, year, nil
}
