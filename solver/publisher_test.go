package solver

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"
)

// newTopic returns an in-memory topic and a subscription to it, both shut down
// when the test ends.
func newTopic(t *testing.T) (*pubsub.Topic, *pubsub.Subscription) {
	t.Helper()
	topic := mempubsub.NewTopic()
	sub := mempubsub.NewSubscription(topic, time.Minute)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = sub.Shutdown(ctx)
		_ = topic.Shutdown(ctx)
	})
	return topic, sub
}

func receiveResults(t *testing.T, sub *pubsub.Subscription, n int) []SensorResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out []SensorResult
	for range n {
		msg, err := sub.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		msg.Ack()
		res, err := DecodeSensorResult(msg)
		if err != nil {
			t.Fatalf("DecodeSensorResult() error = %v", err)
		}
		if got := msg.Metadata[MetadataSensorID]; got != res.SensorID {
			t.Errorf("message metadata sensor = %q, body sensor = %q", got, res.SensorID)
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

func TestPublisher_Publish(t *testing.T) {
	topic, sub := newTopic(t)
	p := NewPublisher(topic)

	err := p.Publish(context.Background(), Result{
		RequestID: "r1",
		Sensors: map[string][]float64{
			"S1": {1.5, 2.5},
			"S2": {3},
		},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	want := []SensorResult{
		{RequestID: "r1", SensorID: "S1", Pressures: []float64{1.5, 2.5}},
		{RequestID: "r1", SensorID: "S2", Pressures: []float64{3}},
	}
	got := receiveResults(t, sub, 2)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(SensorResult{}, "Timestamp")); diff != "" {
		t.Errorf("published results mismatch (-want +got):\n%s", diff)
	}
	if !got[0].Timestamp.Equal(got[1].Timestamp) {
		t.Errorf("results of one request carry different timestamps: %v and %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestPublisher_failure(t *testing.T) {
	topic, sub := newTopic(t)
	h := NewPublisher(topic).Handler()

	h(context.Background(), Result{
		RequestID: "r1",
		Err:       &SolveError{RequestID: "r1", Err: errors.New("diverged")},
	})

	got := receiveResults(t, sub, 1)[0]
	if got.RequestID != "r1" || got.SensorID != "" || got.Pressures != nil {
		t.Errorf("failure published as %+v", got)
	}
	if want := "solve r1: diverged"; got.Error != want {
		t.Errorf("published error = %q, want %q", got.Error, want)
	}
}
