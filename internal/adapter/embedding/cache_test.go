package embedding

import (
	"context"
	"testing"
	"time"
)

func TestQueryCache_LRUEviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("a", []float32{1})
	c.Put("b", []float32{2})
	c.Get("a") // a becomes most recent
	c.Put("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("query", []float32{1, 2})
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("query"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry to be dropped, size=%d", c.Size())
	}
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", []float32{1, 2})

	v, _ := c.Get("q")
	v[0] = 99

	again, _ := c.Get("q")
	if again[0] != 1 {
		t.Errorf("cached vector was mutated through a returned slice: %v", again)
	}
}

func TestCached_HitsSkipModel(t *testing.T) {
	model := &fakeModel{dim: 2, vec: []float32{1, 0}}
	c := NewCached(model, NewQueryCache(10, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := c.Embed(context.Background(), "same query"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := model.calls.Load(); got != 1 {
		t.Errorf("expected 1 model call, got %d", got)
	}
	if c.Dimension() != 2 || c.ModelName() != "fake" {
		t.Error("expected metadata to pass through")
	}
}
