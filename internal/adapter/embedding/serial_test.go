package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"semsearch/internal/domain"
	"semsearch/internal/logging"
	"semsearch/internal/vecmath"
)

// fakeModel returns a fixed vector and records concurrency.
type fakeModel struct {
	dim     int
	vec     []float32
	err     error
	delay   time.Duration
	block   chan struct{}
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (m *fakeModel) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		old := m.maxSeen.Load()
		if n <= old || m.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}

	if m.block != nil {
		<-m.block
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.vec, nil
}

func (m *fakeModel) Dimension() int    { return m.dim }
func (m *fakeModel) ModelName() string { return "fake" }

func TestSerial_Normalizes(t *testing.T) {
	s := NewSerial(&fakeModel{dim: 2, vec: []float32{3, 4}}, 1, time.Second, logging.Discard())

	v, err := s.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vecmath.Magnitude(v)-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", vecmath.Magnitude(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected [0.6 0.8], got %v", v)
	}
}

func TestSerial_EmptyInput(t *testing.T) {
	model := &fakeModel{dim: 2, vec: []float32{1, 0}}
	s := NewSerial(model, 1, time.Second, logging.Discard())

	for _, text := range []string{"", "   \n"} {
		_, err := s.Embed(context.Background(), text)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected InvalidInput for %q, got %v", text, err)
		}
	}
	if model.calls.Load() != 0 {
		t.Error("model must not be called for empty input")
	}
}

func TestSerial_MalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"wrong dimension", []float32{1, 0, 0}},
		{"zero vector", []float32{0, 0}},
		{"nan", []float32{float32(math.NaN()), 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSerial(&fakeModel{dim: 2, vec: tt.vec}, 1, time.Second, logging.Discard())
			_, err := s.Embed(context.Background(), "text")
			if domain.KindOf(err) != domain.KindEmbedding {
				t.Errorf("expected EmbeddingError, got %v", err)
			}
		})
	}
}

func TestSerial_ModelError(t *testing.T) {
	s := NewSerial(&fakeModel{dim: 2, err: errors.New("inference crashed")}, 1, time.Second, logging.Discard())

	_, err := s.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("embedding errors should be retryable")
	}
}

func TestSerial_SerializesCalls(t *testing.T) {
	model := &fakeModel{dim: 2, vec: []float32{1, 1}, delay: 5 * time.Millisecond}
	s := NewSerial(model, 1, time.Second, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Embed(context.Background(), "text"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := model.maxSeen.Load(); got != 1 {
		t.Errorf("expected at most 1 concurrent inference, saw %d", got)
	}
	if got := model.calls.Load(); got != 8 {
		t.Errorf("expected 8 calls, got %d", got)
	}
}

func TestSerial_TimeoutReleasesSlot(t *testing.T) {
	block := make(chan struct{})
	model := &fakeModel{dim: 2, vec: []float32{1, 0}, block: block}
	s := NewSerial(model, 1, 20*time.Millisecond, logging.Discard())

	_, err := s.Embed(context.Background(), "slow")
	if domain.KindOf(err) != domain.KindEmbedding {
		t.Fatalf("expected EmbeddingError on timeout, got %v", err)
	}

	// The abandoned call finishes in the background and frees the slot.
	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.Embed(ctx, "next"); err != nil {
		t.Fatalf("expected slot to be released, got %v", err)
	}
}

func TestSerial_CallerCancellation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	model := &fakeModel{dim: 2, vec: []float32{1, 0}, block: block}
	s := NewSerial(model, 1, 0, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Embed(ctx, "text")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}
