package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"semsearch/internal/domain"
	"semsearch/internal/port"
	"semsearch/internal/vecmath"
)

// Serial wraps a model with a bounded number of inference slots (one by
// default), a per-call deadline, output validation and unit-length
// normalization. It is the single embedder instance shared by the process.
type Serial struct {
	model   port.Embedder
	slots   *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
}

var _ port.Embedder = (*Serial)(nil)

type embedResult struct {
	vec []float32
	err error
}

// NewSerial wraps model. concurrency < 1 is treated as 1; timeout <= 0
// disables the per-call deadline.
func NewSerial(model port.Embedder, concurrency int, timeout time.Duration, logger *slog.Logger) *Serial {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Serial{
		model:   model,
		slots:   semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
		logger:  logger,
	}
}

// Embed returns the unit-length embedding of text.
//
// The slot is held only while the physical call runs. If the caller gives up
// first, the call keeps running under its deadline, its result is dropped and
// the slot is released when it returns.
func (s *Serial) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embed"

	if strings.TrimSpace(text) == "" {
		return nil, domain.InvalidInput(op, "text must not be empty")
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, &domain.Error{Kind: domain.KindEmbedding, Op: op, Msg: "waiting for inference slot", Err: err}
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if s.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	done := make(chan embedResult, 1)
	go func() {
		defer s.slots.Release(1)
		defer cancel()
		vec, err := s.model.Embed(callCtx, text)
		done <- embedResult{vec: vec, err: err}
	}()

	var res embedResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		// The worker cancels callCtx only after sending its result.
		select {
		case res = <-done:
		default:
			s.logger.Warn("embedding call abandoned", "model", s.model.ModelName(), "error", callCtx.Err())
			return nil, &domain.Error{Kind: domain.KindEmbedding, Op: op, Msg: "inference did not finish", Err: callCtx.Err()}
		}
	}

	if res.err != nil {
		return nil, domain.Wrap(domain.KindEmbedding, op, res.err)
	}
	return s.finish(op, res.vec)
}

func (s *Serial) finish(op string, vec []float32) ([]float32, error) {
	if dim := s.model.Dimension(); len(vec) != dim {
		return nil, &domain.Error{
			Kind: domain.KindEmbedding,
			Op:   op,
			Msg:  fmt.Sprintf("model %s returned a malformed vector", s.model.ModelName()),
			Err:  domain.DimensionMismatch(op, dim, len(vec)),
		}
	}
	if !vecmath.IsFinite(vec) {
		return nil, domain.Errorf(domain.KindEmbedding, op, "model %s returned non-finite values", s.model.ModelName())
	}

	unit, ok := vecmath.Normalize(vec)
	if !ok {
		return nil, domain.Errorf(domain.KindEmbedding, op, "model %s returned a zero vector", s.model.ModelName())
	}
	return unit, nil
}

func (s *Serial) Dimension() int {
	return s.model.Dimension()
}

func (s *Serial) ModelName() string {
	return s.model.ModelName()
}
