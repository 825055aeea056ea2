package projection

import "github.com/pkg/errors"

var (
	// ErrWorkerClosed is returned by a Worker call made after Close.
	ErrWorkerClosed = errors.New("template builder worker is closed")

	// ErrWorkerCrashed is returned to a caller whose request raced a
	// worker panic or unexpected exit.
	ErrWorkerCrashed = errors.New("template builder worker crashed")
)
