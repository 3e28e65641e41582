package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates an unusable label value or an entry that
	// cannot accept the requested mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates the root-protection guard refused a
	// mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidData indicates a directory cycle that signals filesystem
	// corruption.
	ErrInvalidData = errors.New("invalid data")

	// ErrUnlabeled indicates a partial relabel of an entry that carries no
	// label at all. It is a distinguished case of ErrInvalidInput.
	ErrUnlabeled = fmt.Errorf("%w: cannot partially relabel an unlabeled file", ErrInvalidInput)
)

// NodeError is a per-entry failure, carrying the operation that failed and
// the path it failed on.
type NodeError struct {
	Op   string
	Path string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func nodeErr(op, path string, err error) *NodeError {
	return &NodeError{Op: op, Path: path, Err: err}
}

// Failure pairs a path with the error recorded for it, in visitation order.
type Failure struct {
	Path string
	Err  error
}

// Result aggregates the outcome of a run. Per-entry failures never abort
// the walk; they accumulate here.
type Result struct {
	Failures  []Failure
	Applied   int
	Unchanged int
}

// Failed reports whether any entry failed. There is no partial-success
// state: one failure fails the run.
func (r Result) Failed() bool { return len(r.Failures) > 0 }
