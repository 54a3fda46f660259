package solver

import (
	"context"
	"maps"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestResultMap_Update(t *testing.T) {
	var m ResultMap // zero value ready

	if _, ok := m.Find("S1"); ok {
		t.Error("Find() on an empty map reported a series")
	}

	m.Update(SensorResult{RequestID: "r1", SensorID: "S1", Pressures: []float64{1}})
	m.Update(SensorResult{RequestID: "r1", SensorID: "S2", Pressures: []float64{2}})
	if got, _ := m.Find("S2"); !cmp.Equal(got, []float64{2}) {
		t.Errorf("Find(S2) = %v, want [2]", got)
	}

	// A newer request replaces every series of the previous one.
	m.Update(SensorResult{RequestID: "r2", SensorID: "S1", Pressures: []float64{3}})
	want := map[string][]float64{"S1": {3}}
	if diff := cmp.Diff(want, maps.Collect(m.All())); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
	if id, failure := m.Request(); id != "r2" || failure != "" {
		t.Errorf("Request() = (%q, %q), want (r2, \"\")", id, failure)
	}

	m.Update(SensorResult{RequestID: "r3", Error: "solve r3: diverged"})
	if id, failure := m.Request(); id != "r3" || failure != "solve r3: diverged" {
		t.Errorf("Request() = (%q, %q), want the r3 failure", id, failure)
	}
	if n := len(maps.Collect(m.All())); n != 0 {
		t.Errorf("failed request left %d series", n)
	}
}

func TestResultMap_Residuals(t *testing.T) {
	var m ResultMap
	m.Update(SensorResult{RequestID: "r1", SensorID: "S1", Pressures: []float64{10, 12, 14}})
	m.Update(SensorResult{RequestID: "r1", SensorID: "S2", Pressures: []float64{5}})

	observed := map[string][]float64{
		"S1": {9, math.NaN()},
		"S3": {1, 2, 3},
	}
	want := map[string][]float64{
		"S1": {1, math.NaN(), math.NaN()},
	}
	got := m.Residuals(observed)
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Residuals() mismatch (-want +got):\n%s", diff)
	}
}

func TestResultMap_published(t *testing.T) {
	topic, sub := newTopic(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := NewPublisher(topic).Publish(ctx, Result{
		RequestID: "r1",
		Sensors:   map[string][]float64{"S1": {1}, "S2": {2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var m ResultMap
	for range 2 {
		msg, err := sub.Receive(ctx)
		if err != nil {
			t.Fatal(err)
		}
		res, err := DecodeSensorResult(msg)
		if err != nil {
			t.Fatal(err)
		}
		m.Update(res)
		msg.Ack()
	}
	want := map[string][]float64{"S1": {1}, "S2": {2}}
	if diff := cmp.Diff(want, maps.Collect(m.All())); diff != "" {
		t.Errorf("tracked results mismatch (-want +got):\n%s", diff)
	}
}
