package hydrotwin

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseStart(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "01/03/24", want: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{in: "01/03/2024", want: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{in: "15/12/23 06:00", want: time.Date(2023, time.December, 15, 0, 0, 0, 0, time.UTC)},
		{in: "2024-03-01", wantErr: true},
		{in: "32/01/24", wantErr: true},
		{in: "01/13/24", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStart(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStart(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseStart(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlignSeries(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	nan := math.NaN()
	values := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		rec  LiveDataRecord
		want []float64
	}{
		{
			name: "Aligned",
			rec:  LiveDataRecord{Readings: Readings{Date: "01/03/2024", Time: "00:00", Values: values}},
			want: []float64{1, 2, 3, 4},
		},
		{
			name: "StartedEarlier",
			rec:  LiveDataRecord{Readings: Readings{Date: "29/02/2024", Time: "23:30", Values: values}},
			want: []float64{3, 4, 5, nan},
		},
		{
			// -20 minutes is -1.33 steps, truncated towards zero.
			name: "StartedLater",
			rec:  LiveDataRecord{Readings: Readings{Date: "01/03/24", Time: "00:20", Values: values}},
			want: []float64{nan, 1, 2, 3},
		},
		{
			name: "TimeOffset",
			rec: LiveDataRecord{
				TimeOffset: "15",
				Readings:   Readings{Date: "29/02/2024", Time: "23:30", Values: values},
			},
			want: []float64{2, 3, 4, 5},
		},
		{
			name: "PressureOffset",
			rec: LiveDataRecord{
				PressureOffset: "-0.5",
				Readings:       Readings{Date: "01/03/2024", Time: "00:00", Values: values},
			},
			want: []float64{0.5, 1.5, 2.5, 3.5},
		},
		{
			name: "NoReadings",
			rec:  LiveDataRecord{Readings: Readings{Date: "01/03/2024", Time: "00:00"}},
			want: []float64{nan, nan, nan, nan},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlignSeries(start, 4, tt.rec)
			if err != nil {
				t.Fatalf("AlignSeries() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateNaNs()); diff != "" {
				t.Errorf("AlignSeries() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlign(t *testing.T) {
	var b ModelBuilder
	b.Start("01/03/24")
	b.LiveData("good", LiveDataRecord{Readings: Readings{Date: "01/03/24", Time: "00:00", Values: []float64{7}}})
	b.LiveData("bad-time", LiveDataRecord{Readings: Readings{Date: "01/03/24", Time: "noon"}})
	b.LiveData("bad-date", LiveDataRecord{Readings: Readings{Date: "yesterday", Time: "00:00"}})

	a, err := Align(b.Build(), 2)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	want := map[string][]float64{"good": {7, math.NaN()}}
	if diff := cmp.Diff(want, a.Series, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
	var failed []string
	for _, f := range a.Failures {
		failed = append(failed, f.SensorID)
	}
	if diff := cmp.Diff([]string{"bad-date", "bad-time"}, failed); diff != "" {
		t.Errorf("Failures mismatch (-want +got):\n%s", diff)
	}
}

func TestAlign_badStart(t *testing.T) {
	var b ModelBuilder
	b.Start("March 1st")
	_, err := Align(b.Build(), DefaultSteps)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Align() error = %v, want %v", err, ErrConfiguration)
	}
}
