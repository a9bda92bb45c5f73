package core

import (
	"context"

	"github.com/palantir/survey-tabulator/pkg/table"
)

// Source loads the table a pipeline run works on.
type Source interface {
	Load(ctx context.Context) (*table.Table, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*table.Table, error)

func (f SourceFunc) Load(ctx context.Context) (*table.Table, error) {
	return f(ctx)
}

// Sink persists an artifact produced by a pipeline run.
type Sink[T any] interface {
	Store(ctx context.Context, v T) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc[T any] func(ctx context.Context, v T) error

func (f SinkFunc[T]) Store(ctx context.Context, v T) error {
	return f(ctx, v)
}

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is a retryable error that caps how many extra
// attempts a worker may spend on it.
type LimitedTransientError struct {
	Err        error
	MaxRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.MaxRetries
}
