package fts

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// frame is one directory being traversed: its identity plus the listing
// position within it.
type frame struct {
	path    string
	access  string
	depth   int
	dev     uint64
	ino     uint64
	entries []os.DirEntry
	idx     int
}

// node records the position of the last classified entry so a RetryNode
// command can re-stat it.
type node struct {
	path   string
	access string
	depth  int
	root   bool
}

// Walker enumerates entries under a set of roots. It is not safe for
// concurrent use; the walk is strictly sequential.
type Walker struct {
	roots   []string
	deref   Dereference
	rootIdx int
	stack   []frame
	pend    *frame // EnterDir yielded, children not yet committed
	last    *node
}

// New creates a walker over the given roots. The roots are visited in
// order, each as a depth-0 entry.
func New(roots []string, deref Dereference) (*Walker, error) {
	if len(roots) == 0 {
		return nil, errors.New("fts: no roots to walk")
	}
	cp := make([]string, len(roots))
	copy(cp, roots)
	return &Walker{roots: cp, deref: deref}, nil
}

// Next applies cmd to the previously returned entry and yields the next
// one. The boolean is false when the walk is complete.
func (w *Walker) Next(cmd Command) (Entry, bool, error) {
	switch cmd {
	case RetryNode:
		if w.last != nil {
			n := *w.last
			w.pend = nil
			return w.classify(n.path, n.access, n.depth, n.root, true), true, nil
		}
		w.commit()
	case SkipSubtree:
		if w.pend != nil {
			w.pend.entries = nil
		}
		w.commit()
	default:
		w.commit()
	}
	return w.advance()
}

// commit pushes a pending EnterDir onto the stack so its children are
// enumerated next.
func (w *Walker) commit() {
	if w.pend != nil {
		w.stack = append(w.stack, *w.pend)
		w.pend = nil
	}
}

func (w *Walker) advance() (Entry, bool, error) {
	if n := len(w.stack); n > 0 {
		fr := &w.stack[n-1]
		if fr.idx < len(fr.entries) {
			name := fr.entries[fr.idx].Name()
			fr.idx++
			path := filepath.Join(fr.path, name)
			access := filepath.Join(fr.access, name)
			return w.classify(path, access, fr.depth+1, false, false), true, nil
		}

		// Children exhausted: post-order visit.
		top := w.stack[n-1]
		w.stack = w.stack[:n-1]
		w.last = nil
		return Entry{
			Path:       top.path,
			AccessPath: top.access,
			Depth:      top.depth,
			Kind:       LeaveDir,
			Dev:        top.dev,
			Ino:        top.ino,
		}, true, nil
	}

	if w.rootIdx < len(w.roots) {
		root := w.roots[w.rootIdx]
		w.rootIdx++
		return w.classify(root, root, 0, true, false), true, nil
	}

	return Entry{}, false, nil
}

func (w *Walker) classify(path, access string, depth int, root, retried bool) Entry {
	w.last = &node{path: path, access: access, depth: depth, root: root}

	e := Entry{Path: path, AccessPath: access, Depth: depth, Retried: retried}

	follow := w.deref == Logical || (root && w.deref == ComFollow)

	if root && follow {
		// A dereferenced symlink root keeps its display path but I/O goes
		// through the resolved referent.
		if li, err := os.Lstat(path); err == nil && li.Mode()&os.ModeSymlink != 0 {
			if res, rerr := filepath.EvalSymlinks(path); rerr == nil {
				access = res
				e.AccessPath = res
				w.last.access = res
			}
		}
	}

	info, err := statEntry(access, follow)
	if err != nil {
		e.Kind = NoStat
		e.Errno = errnoOf(err)
		return e
	}

	e.Dev, e.Ino = devIno(info)

	if !info.IsDir() {
		e.Kind = File
		return e
	}

	for i := range w.stack {
		if w.stack[i].dev == e.Dev && w.stack[i].ino == e.Ino {
			e.Kind = Cycle
			return e
		}
	}

	ents, err := os.ReadDir(access)
	if err != nil {
		e.Kind = NoReadDir
		e.Errno = errnoOf(err)
		return e
	}

	e.Kind = EnterDir
	w.pend = &frame{
		path:    path,
		access:  access,
		depth:   depth,
		dev:     e.Dev,
		ino:     e.Ino,
		entries: ents,
	}
	return e
}

// statEntry stats one entry according to the dereference decision for it.
// When following, a dangling symlink falls back to the link itself so the
// entry remains visitable.
func statEntry(path string, follow bool) (os.FileInfo, error) {
	if !follow {
		return os.Lstat(path)
	}
	info, err := os.Stat(path)
	if err == nil {
		return info, nil
	}
	if li, lerr := os.Lstat(path); lerr == nil {
		return li, nil
	}
	return nil, err
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
