package solver

import (
	"context"
	"errors"
	"iter"
	"math"
	"sync"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// ResultMap keeps the latest simulated pressure series of every sensor, as
// published by a Publisher, so they can be compared against the live data.
//
// The zero-value ResultMap is ready for use. ResultMap is safe for concurrent
// use.
type ResultMap struct {
	mu      sync.Mutex
	m       map[string]SensorResult
	request string // Request of the results held.
	failure string // Error of the latest request, if it failed.
}

// Find returns the latest series simulated for the given sensor.
func (r *ResultMap) Find(sensorID string) ([]float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.m[sensorID]
	return res.Pressures, ok
}

// Request returns the id of the request whose results the map holds, and the
// error it failed with, if any.
func (r *ResultMap) Request() (id string, failure string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.request, r.failure
}

// Update records a published result. A result of a newer request discards
// every series of the previous one, so the map never mixes the results of two
// solves. Results are expected in publication order.
func (r *ResultMap) Update(res SensorResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Make the zero-value meaningful.
	if r.m == nil || res.RequestID != r.request {
		r.m = make(map[string]SensorResult)
		r.request, r.failure = res.RequestID, ""
	}
	if res.Error != "" {
		r.failure = res.Error
		return
	}
	r.m[res.SensorID] = res
}

// All iterates the sensors and their series. The map must not be updated
// while iterating.
func (r *ResultMap) All() iter.Seq2[string, []float64] {
	return func(yield func(string, []float64) bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		for id, res := range r.m {
			if !yield(id, res.Pressures) {
				return
			}
		}
	}
}

// Residuals returns, for every sensor with both a simulated and an observed
// series, the simulated pressure minus the observed one per timestep. Steps
// missing from either series are NaN.
func (r *ResultMap) Residuals(observed map[string][]float64) map[string][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]float64)
	for id, res := range r.m {
		obs, ok := observed[id]
		if !ok {
			continue
		}
		residual := make([]float64, max(len(obs), len(res.Pressures)))
		for i := range residual {
			residual[i] = math.NaN()
			if i < len(obs) && i < len(res.Pressures) {
				residual[i] = res.Pressures[i] - obs[i]
			}
		}
		out[id] = residual
	}
	return out
}

// Track returns a component.Proc that keeps m up to date with the results a
// Publisher sends to the topic behind source.
//
// A message that cannot be decoded stops the procedure: the map would
// otherwise silently hold a partial result.
func (r *ResultMap) Track(source *pubsub.Subscription) component.Proc {
	return func(l *component.L) {
		for l.Continue() {
			msg, err := source.Receive(l.GraceContext())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				l.Errorf("receive: %v", err)
				continue
			}
			res, err := DecodeSensorResult(msg)
			if err != nil {
				l.Fatalf("Failed to decode sensor result; stopping result tracking: %v", err)
			}
			r.Update(res)
			msg.Ack()
		}
	}
}
