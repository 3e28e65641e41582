// Package engine walks a set of filesystem roots and applies a security
// label mutation to every visited entry, guarding against symlink cycles
// and accidental recursion into a protected root. Per-entry failures are
// collected, never fatal: the walk always continues with siblings.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fsrelabel/relabel/internal/fts"
	"github.com/fsrelabel/relabel/internal/selabel"
)

// Run executes one relabel run, blocking until the walk completes. The
// walk is strictly sequential: the guard state, one-shot retry and cycle
// handling are all defined in terms of visitation order.
func Run(opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}
	store := opts.Store
	if store == nil {
		store = selabel.NewStore()
	}
	newSource := opts.newSource
	if newSource == nil {
		newSource = func(roots []string, deref fts.Dereference) (Source, error) {
			return fts.New(roots, deref)
		}
	}

	var res Result

	protected := opts.protected
	if protected == nil && opts.ProtectRoot != "" && opts.Mode.IsRecursive() {
		id, err := resolveDevIno(opts.ProtectRoot)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Path: opts.ProtectRoot, Err: err})
			return res
		}
		protected = &id
	}

	src, err := newSource(opts.Roots, opts.Mode.Dereference())
	if err != nil {
		res.Failures = append(res.Failures, Failure{Err: err})
		return res
	}

	r := &runner{
		mode:      opts.Mode,
		protected: protected,
		verbose:   opts.Verbose,
		progress:  progress,
		logger:    logger,
		apply: applier{
			store:  store,
			spec:   opts.Spec,
			follow: opts.AffectSymlinkReferent,
		},
		res: &res,
	}
	r.loop(src)
	return res
}

// runner holds the per-run traversal state.
type runner struct {
	mode      TraversalMode
	protected *DevIno
	verbose   bool
	progress  io.Writer
	logger    *slog.Logger
	apply     applier
	res       *Result

	// suppressLeave discards the post-order visit of a directory whose
	// pre-order visit already tripped the guard, so the failure is
	// recorded once.
	suppressLeave *DevIno
}

func (r *runner) loop(src Source) {
	cmd := fts.Continue
	for {
		entry, ok, err := src.Next(cmd)
		if err != nil {
			// Only opening the listing can fail like this; nothing has
			// been mutated yet.
			r.res.Failures = append(r.res.Failures, Failure{Err: err})
			return
		}
		if !ok {
			return
		}

		var entryErr error
		cmd, entryErr = r.handle(entry)
		if entryErr != nil {
			r.res.Failures = append(r.res.Failures, Failure{Path: entry.Path, Err: entryErr})
		}
	}
}

// handle is the per-node state transition: it classifies the entry, runs
// the guard and cycle policies, applies the mutation where accepted, and
// answers with the command steering the walker.
func (r *runner) handle(e fts.Entry) (fts.Command, error) {
	switch e.Kind {
	case fts.EnterDir:
		if !r.mode.IsRecursive() {
			// A single top-level entry is the unit of work: mutate the
			// directory itself and go no deeper.
			return fts.SkipSubtree, r.mutate(e)
		}
		if isProtectedRoot(entryDevIno(e), r.protected) {
			r.warnProtectedRoot(e.Path)
			id := entryDevIno(e)
			r.suppressLeave = &id
			return fts.SkipSubtree, nodeErr("modifying root path", e.Path, ErrPermissionDenied)
		}
		// Directories are mutated on the way out, once their subtree has
		// been processed.
		return fts.Continue, nil

	case fts.LeaveDir:
		if !r.mode.IsRecursive() {
			return fts.Continue, nil
		}
		if r.suppressLeave != nil && *r.suppressLeave == entryDevIno(e) {
			r.suppressLeave = nil
			return fts.Continue, nil
		}
		// Re-check the guard: the directory's identity may only have
		// become comparable at this point.
		if isProtectedRoot(entryDevIno(e), r.protected) {
			r.warnProtectedRoot(e.Path)
			return fts.Continue, nodeErr("modifying root path", e.Path, ErrPermissionDenied)
		}
		return fts.Continue, r.mutate(e)

	case fts.NoStat:
		// A top-level stat failure may be stale: a prior sibling's
		// mutation can have made the entry statable since the roots were
		// opened. Retry once per node.
		if e.Depth == 0 && !e.Retried {
			return fts.RetryNode, nil
		}
		return r.afterNode(), nodeErr("accessing", e.Path, errnoError(e))

	case fts.Err:
		return r.afterNode(), nodeErr("accessing", e.Path, errnoError(e))

	case fts.NoReadDir:
		if !r.mode.IsRecursive() {
			// The listing failure is irrelevant when not descending; the
			// directory's own label is still one unit of work.
			return fts.SkipSubtree, r.mutate(e)
		}
		return r.afterNode(), nodeErr("reading directory", e.Path, errnoError(e))

	case fts.Cycle:
		if r.mode.CycleIsHazard(e.Depth) {
			r.warnCycle(e.Path)
			return r.afterNode(), nodeErr("reading cyclic directory", e.Path, ErrInvalidData)
		}
		return r.afterNode(), nil

	default: // fts.File
		return r.afterNode(), r.mutate(e)
	}
}

// afterNode yields the command that follows a fully handled non-directory
// node. In non-recursive mode each root is a single unit of work, so the
// walker is told not to descend.
func (r *runner) afterNode() fts.Command {
	if !r.mode.IsRecursive() {
		return fts.SkipSubtree
	}
	return fts.Continue
}

func (r *runner) mutate(e fts.Entry) error {
	if r.verbose {
		fmt.Fprintf(r.progress, "changing security context of %s\n", e.Path)
	}
	out, err := r.apply.Apply(e.AccessPath)
	if err != nil {
		return err
	}
	switch out {
	case OutcomeApplied:
		r.res.Applied++
	case OutcomeUnchanged:
		r.res.Unchanged++
	}
	return nil
}

func (r *runner) warnProtectedRoot(path string) {
	if path == "/" {
		r.logger.Warn("it is dangerous to operate recursively on '/'; use --no-preserve-root to override this failsafe")
		return
	}
	r.logger.Warn("it is dangerous to operate recursively on this path (same as '/'); use --no-preserve-root to override this failsafe",
		"path", path)
}

func (r *runner) warnCycle(path string) {
	r.logger.Warn("circular directory structure; this almost certainly means you have a corrupted filesystem",
		"path", path)
}

func errnoError(e fts.Entry) error {
	if e.Errno != 0 {
		return e.Errno
	}
	return fmt.Errorf("%w: malformed node metadata", ErrInvalidInput)
}
