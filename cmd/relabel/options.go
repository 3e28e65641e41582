package main

import (
	"errors"
	"fmt"

	"github.com/fsrelabel/relabel/internal/engine"
	"github.com/fsrelabel/relabel/internal/selabel"
)

// rawFlags mirrors the command line before validation. The *Set fields
// record whether a flag was given at all, which matters for the component
// flags and for config-file defaults.
type rawFlags struct {
	verbose bool

	recursive         bool
	followArgDirLinks bool // -H
	followAllDirLinks bool // -L
	noFollowSymlinks  bool // -P

	dereference   bool
	noDereference bool

	preserveRoot   bool
	noPreserveRoot bool

	reference    string
	referenceSet bool

	user     string
	userSet  bool
	role     string
	roleSet  bool
	typ      string
	typeSet  bool
	rng      string
	rangeSet bool
}

// labelMode says where the label to apply comes from.
type labelMode int

const (
	labelFromContext labelMode = iota + 1 // positional CONTEXT argument
	labelFromReference
	labelFromComponents
)

// runOptions is the validated form of the command line.
type runOptions struct {
	verbose               bool
	preserveRoot          bool
	mode                  engine.TraversalMode
	affectSymlinkReferent bool
	labelMode             labelMode
	context               selabel.Label
	reference             string
	partial               engine.PartialSpec
	files                 []string
}

// buildOptions validates the flag combination and splits the positional
// arguments into an optional CONTEXT plus the files to operate on.
func buildOptions(f rawFlags, args []string) (*runOptions, error) {
	opts := &runOptions{
		verbose:      f.verbose,
		preserveRoot: f.preserveRoot && !f.noPreserveRoot,
	}

	if f.recursive {
		switch {
		case f.followAllDirLinks:
			if f.noDereference {
				return nil, errors.New("--recursive with --no-dereference requires -P")
			}
			opts.mode = engine.RecursiveLogical
			opts.affectSymlinkReferent = true
		case f.followArgDirLinks:
			if f.noDereference {
				return nil, errors.New("--recursive with --no-dereference requires -P")
			}
			opts.mode = engine.RecursiveComFollow
			opts.affectSymlinkReferent = true
		default:
			if f.dereference {
				return nil, errors.New("--recursive with --dereference requires either -H or -L")
			}
			opts.mode = engine.RecursivePhysical
			opts.affectSymlinkReferent = false
		}
	} else {
		opts.mode = engine.NotRecursive
		opts.affectSymlinkReferent = !f.noDereference
	}

	componentsGiven := f.userSet || f.roleSet || f.typeSet || f.rangeSet

	switch {
	case f.referenceSet:
		if componentsGiven {
			return nil, errors.New("--reference cannot be combined with --user, --role, --type or --range")
		}
		opts.labelMode = labelFromReference
		opts.reference = f.reference
		opts.files = args

	case componentsGiven:
		opts.labelMode = labelFromComponents
		if f.userSet {
			opts.partial.User = &f.user
		}
		if f.roleSet {
			opts.partial.Role = &f.role
		}
		if f.typeSet {
			opts.partial.Type = &f.typ
		}
		if f.rangeSet {
			opts.partial.Range = &f.rng
		}
		opts.files = args

	default:
		if len(args) == 0 {
			return nil, errors.New("missing security context operand")
		}
		ctx := selabel.Label(args[0])
		if !selabel.Valid(ctx) {
			return nil, fmt.Errorf("invalid security context %q", args[0])
		}
		opts.labelMode = labelFromContext
		opts.context = ctx
		opts.files = args[1:]
	}

	if len(opts.files) == 0 {
		return nil, errors.New("missing file operand")
	}
	return opts, nil
}
