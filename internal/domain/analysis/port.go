package analysis

import (
	"context"
	"time"
)

// Repository persists lifecycle rows and results.
//
// TryStart moves a document from NOT_STARTED (or no row) or FAILED to
// IN_PROGRESS in one atomic step and reports whether this caller won. The
// returned status is the current row either way.
//
// Complete stores the result and flips the state to COMPLETE atomically. It
// returns ErrAlreadyAnalyzed when a result already exists and
// ErrNotInProgress when the document is not running.
type Repository interface {
	Status(ctx context.Context, documentID int64) (*Status, error)
	TryStart(ctx context.Context, documentID int64, now time.Time) (*Status, bool, error)
	Complete(ctx context.Context, r *Result, now time.Time) error
	Fail(ctx context.Context, documentID int64, reason string, now time.Time) error
	Result(ctx context.Context, documentID int64) (*Result, error)
	// ResetRunning fails every IN_PROGRESS row; used on startup after a crash.
	ResetRunning(ctx context.Context, reason string, now time.Time) (int64, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, in Input) (*Payload, error)
}

// ResultCache caches completed results, which never change.
type ResultCache interface {
	Get(ctx context.Context, documentID int64) (*Result, bool, error)
	Set(ctx context.Context, r *Result) error
}

// StateReader resolves the current view without checking the document.
type StateReader interface {
	CurrentState(ctx context.Context, documentID int64) (View, error)
}
