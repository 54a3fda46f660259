package hydrotwin

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrdered_Keys(t *testing.T) {
	var o Ordered[int]
	for i, k := range []string{"b", "10", "a", "2", "02", "4294967295", "0"} {
		o.Set(k, i)
	}
	o.Set("b", 99) // keeps its position

	want := []string{"0", "2", "10", "b", "a", "02", "4294967295"}
	if diff := cmp.Diff(want, o.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if v, _ := o.Get("b"); v != 99 {
		t.Errorf("Get(b) = %d, want 99", v)
	}

	o.Delete("10")
	o.Delete("missing")
	if got := o.Len(); got != 6 {
		t.Errorf("Len() after Delete = %d, want 6", got)
	}
}

func TestOrdered_JSON(t *testing.T) {
	const doc = `{"zeta":[1],"7":[2],"alpha":[3],"1":[4]}`
	var o Ordered[[]float64]
	if err := json.Unmarshal([]byte(doc), &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	const want = `{"1":[4],"7":[2],"zeta":[1],"alpha":[3]}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}

	if err := json.Unmarshal([]byte("null"), &o); err != nil || o.Len() != 0 {
		t.Errorf("Unmarshal(null) = %d keys, %v", o.Len(), err)
	}
	if err := json.Unmarshal([]byte("[1]"), &o); err == nil {
		t.Error("Unmarshal() of an array succeeded")
	}
}

func TestOrdered_Filter(t *testing.T) {
	var o Ordered[string]
	o.Set("x", "1")
	o.Set("y", "2")
	o.Set("z", "3")

	f := o.Filter(func(k string) bool { return k != "y" })
	if diff := cmp.Diff([]string{"x", "z"}, f.Keys()); diff != "" {
		t.Errorf("Filter() keys mismatch (-want +got):\n%s", diff)
	}
	f.Set("w", "4")
	if o.Len() != 3 {
		t.Error("modifying a filtered copy changed the original")
	}
}
