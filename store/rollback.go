package store

import (
	"context"
	"errors"
)

// Rollback collects compensating writes while a backend applies a batch
// step by step. If a later step fails, Run undoes the earlier ones.
type Rollback struct {
	steps []func(ctx context.Context) error
}

// Add registers the undo action for a step that has just succeeded.
func (r *Rollback) Add(undo func(ctx context.Context) error) {
	r.steps = append(r.steps, undo)
}

// Len returns the number of registered undo actions.
func (r *Rollback) Len() int { return len(r.steps) }

// Run executes the undo actions newest first. It keeps going after a
// failing step and returns every error it saw. Cancellation of ctx is
// ignored so a timed-out batch is still cleaned up.
func (r *Rollback) Run(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(r.steps) - 1; i >= 0; i-- {
		if err := r.steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.steps = nil
	return errors.Join(errs...)
}

// Fail runs the rollback and returns cause, annotated with any
// compensation failure.
func (r *Rollback) Fail(ctx context.Context, cause error) error {
	if err := r.Run(ctx); err != nil {
		return errors.Join(cause, &CompensationError{Err: err})
	}
	return cause
}

// CompensationError means a batch failed and could not be fully undone.
// Storage may hold a partial batch until the book is repaired.
type CompensationError struct {
	Err error
}

func (e *CompensationError) Error() string { return "store: compensation failed: " + e.Err.Error() }

func (e *CompensationError) Unwrap() error { return e.Err }
