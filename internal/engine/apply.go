package engine

import (
	"fmt"

	"github.com/fsrelabel/relabel/internal/selabel"
)

// Outcome is the per-entry mutation result.
type Outcome int

const (
	// OutcomeUnchanged means the new label was byte-equal to the old one
	// and no write was performed.
	OutcomeUnchanged Outcome = iota + 1
	// OutcomeApplied means a new label was written.
	OutcomeApplied
)

// applier computes and applies the new label for one entry.
type applier struct {
	store  selabel.Store
	spec   LabelSpec
	follow bool // affect the referent of symlinks
}

// Apply mutates the label of the entry at path. Unchanged detection is a
// literal byte comparison; two spellings of the same semantic label count
// as different.
func (a *applier) Apply(path string) (Outcome, error) {
	switch spec := a.spec.(type) {
	case WholesaleSpec:
		return a.applyWholesale(path, spec.Label)
	case PartialSpec:
		return a.applyPartial(path, spec)
	default:
		return 0, nodeErr("setting security context", path, fmt.Errorf("%w: no label specified", ErrInvalidInput))
	}
}

func (a *applier) applyWholesale(path string, lbl selabel.Label) (Outcome, error) {
	cur, ok, err := a.store.Get(path, a.follow)
	if err != nil {
		return 0, nodeErr("getting security context", path, err)
	}
	if ok && cur == lbl {
		return OutcomeUnchanged, nil
	}
	if err := a.store.Set(path, lbl, a.follow); err != nil {
		return 0, nodeErr("setting security context", path, err)
	}
	return OutcomeApplied, nil
}

func (a *applier) applyPartial(path string, spec PartialSpec) (Outcome, error) {
	cur, ok, err := a.store.Get(path, a.follow)
	if err != nil {
		return 0, nodeErr("getting security context", path, err)
	}
	if !ok {
		// With only some components supplied there is no sensible default
		// base, so refuse rather than invent one.
		return 0, nodeErr("applying partial security context", path, ErrUnlabeled)
	}

	ctx, err := selabel.Parse(cur)
	if err != nil {
		return 0, nodeErr("creating security context", path, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	overlays := []struct {
		value *string
		set   func(string) error
	}{
		{spec.User, ctx.SetUser},
		{spec.Role, ctx.SetRole},
		{spec.Type, ctx.SetType},
		{spec.Range, ctx.SetRange},
	}
	for _, o := range overlays {
		if o.value == nil {
			continue
		}
		if err := o.set(*o.value); err != nil {
			return 0, nodeErr("creating security context", path, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		}
	}

	merged := ctx.Label()
	if merged == cur {
		return OutcomeUnchanged, nil
	}
	if err := a.store.Set(path, merged, a.follow); err != nil {
		return 0, nodeErr("setting security context", path, err)
	}
	return OutcomeApplied, nil
}
