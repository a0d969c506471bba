package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can tell caller mistakes from
// transient infrastructure faults.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindDimensionMismatch
	KindEmbedding
	KindStoreUnavailable
	KindStoreWrite
	KindModelLoad
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmbedding         = errors.New("embedding error")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrStoreWrite        = errors.New("store write error")
	ErrModelLoad         = errors.New("model load failure")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindEmbedding:
		return "EmbeddingError"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindStoreWrite:
		return "StoreWriteError"
	case KindModelLoad:
		return "ModelLoadFailure"
	default:
		return "Unknown"
	}
}

// Retryable reports whether retrying the whole operation may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindEmbedding, KindStoreUnavailable, KindStoreWrite:
		return true
	}
	return false
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindDimensionMismatch:
		return ErrDimensionMismatch
	case KindEmbedding:
		return ErrEmbedding
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindStoreWrite:
		return ErrStoreWrite
	case KindModelLoad:
		return ErrModelLoad
	}
	return nil
}

// Error is the structured error returned across component boundaries.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "search"
	Msg  string
	Err  error // underlying cause, may be nil

	// Failed holds the batch indices a store could not write, when known.
	Failed []int
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. An err that already carries a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) && de.Kind != KindUnknown {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidInput is shorthand for Errorf(KindInvalidInput, ...).
func InvalidInput(op, format string, args ...any) *Error {
	return Errorf(KindInvalidInput, op, format, args...)
}

// DimensionMismatch reports vectors of incompatible length.
func DimensionMismatch(op string, expected, actual int) *Error {
	return Errorf(KindDimensionMismatch, op, "expected %d, got %d", expected, actual)
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a transient failure. An operation the
// caller cancelled is never retryable, whatever its kind.
func IsRetryable(err error) bool {
	if IsCanceled(err) {
		return false
	}
	return KindOf(err).Retryable()
}

// IsCanceled reports whether err stems from the caller cancelling its context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
