package engine

import (
	"io"
	"log/slog"

	"github.com/fsrelabel/relabel/internal/fts"
	"github.com/fsrelabel/relabel/internal/selabel"
)

// TraversalMode selects how the hierarchy under each root is visited. It
// is chosen once per run.
type TraversalMode int

const (
	// NotRecursive mutates each root itself and nothing below it.
	NotRecursive TraversalMode = iota
	// RecursivePhysical recurses without following any symlink.
	RecursivePhysical
	// RecursiveLogical recurses following every directory symlink.
	RecursiveLogical
	// RecursiveComFollow recurses following only symlinks given as roots.
	RecursiveComFollow
)

var modeNames = [...]string{
	NotRecursive:       "NotRecursive",
	RecursivePhysical:  "RecursivePhysical",
	RecursiveLogical:   "RecursiveLogical",
	RecursiveComFollow: "RecursiveComFollow",
}

func (m TraversalMode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// IsRecursive reports whether subtrees are explored.
func (m TraversalMode) IsRecursive() bool { return m != NotRecursive }

// Dereference maps the mode to the walker's symlink policy.
func (m TraversalMode) Dereference() fts.Dereference {
	switch m {
	case RecursiveLogical:
		return fts.Logical
	case RecursiveComFollow:
		return fts.ComFollow
	default:
		return fts.Physical
	}
}

// CycleIsHazard classifies a directory cycle reported at the given depth.
// Under logical traversal a cycle is expected and benign. Under physical
// traversal it signals filesystem corruption, except that a cycle formed by
// a dereferenced root argument itself (comfollow, depth 0) is benign.
func (m TraversalMode) CycleIsHazard(depth int) bool {
	if m == RecursiveLogical {
		return false
	}
	return m != RecursiveComFollow || depth != 0
}

// LabelSpec describes the mutation to apply to every visited entry:
// either a wholesale replacement or a partial overlay.
type LabelSpec interface {
	isLabelSpec()
}

// WholesaleSpec replaces an entry's entire label with Label.
type WholesaleSpec struct {
	Label selabel.Label
}

func (WholesaleSpec) isLabelSpec() {}

// PartialSpec overlays only the components that are non-nil onto the
// entry's existing label; absent components keep the entry's current
// value.
type PartialSpec struct {
	User  *string
	Role  *string
	Type  *string
	Range *string
}

func (PartialSpec) isLabelSpec() {}

// Options describes one run.
type Options struct {
	// Roots are the paths to operate on, in order.
	Roots []string
	// Mode selects traversal and symlink policy.
	Mode TraversalMode
	// Spec is the mutation to apply to each accepted entry.
	Spec LabelSpec
	// AffectSymlinkReferent applies the mutation through symlinks rather
	// than to the link itself.
	AffectSymlinkReferent bool
	// ProtectRoot, when non-empty, names a path (normally "/") that must
	// never be mutated by a recursive run. Resolving its identity fails
	// the whole run before any mutation.
	ProtectRoot string
	// Verbose emits a notice for every entry processed.
	Verbose bool
	// Progress receives verbose notices; defaults to os.Stdout.
	Progress io.Writer
	// Logger receives warnings; defaults to slog.Default().
	Logger *slog.Logger
	// Store accesses entry labels; defaults to the platform store.
	Store selabel.Store

	// newSource builds the listing primitive; tests inject scripted walks.
	newSource func(roots []string, deref fts.Dereference) (Source, error)
	// protected overrides ProtectRoot resolution in tests.
	protected *DevIno
}

// Source is the hierarchy listing primitive driving a run. *fts.Walker
// implements it.
type Source interface {
	Next(cmd fts.Command) (fts.Entry, bool, error)
}
