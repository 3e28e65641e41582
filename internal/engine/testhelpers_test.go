package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/fsrelabel/relabel/internal/fts"
	"github.com/fsrelabel/relabel/internal/selabel"
)

// scriptedSource replays a fixed entry sequence and records the commands
// the engine issues, so state-machine tests run without filesystem I/O.
type scriptedSource struct {
	script  []fts.Entry
	i       int
	cmds    []fts.Command
	openErr error
}

func (s *scriptedSource) Next(cmd fts.Command) (fts.Entry, bool, error) {
	s.cmds = append(s.cmds, cmd)
	if s.openErr != nil {
		return fts.Entry{}, false, s.openErr
	}
	if s.i >= len(s.script) {
		return fts.Entry{}, false, nil
	}
	e := s.script[s.i]
	s.i++
	return e, true, nil
}

// memStore is an in-memory label store.
type memStore struct {
	labels map[string]selabel.Label
	writes []string // paths written, in order
	getErr map[string]error
	setErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		labels: make(map[string]selabel.Label),
		getErr: make(map[string]error),
		setErr: make(map[string]error),
	}
}

func (m *memStore) Get(path string, _ bool) (selabel.Label, bool, error) {
	if err := m.getErr[path]; err != nil {
		return "", false, err
	}
	lbl, ok := m.labels[path]
	return lbl, ok, nil
}

func (m *memStore) Set(path string, lbl selabel.Label, _ bool) error {
	if err := m.setErr[path]; err != nil {
		return err
	}
	m.labels[path] = lbl
	m.writes = append(m.writes, path)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runScripted(t *testing.T, mode TraversalMode, spec LabelSpec, src *scriptedSource, store *memStore, protected *DevIno) Result {
	t.Helper()
	return Run(Options{
		Roots:    []string{"unused"},
		Mode:     mode,
		Spec:     spec,
		Logger:   quietLogger(),
		Progress: io.Discard,
		Store:    store,
		newSource: func([]string, fts.Dereference) (Source, error) {
			return src, nil
		},
		protected: protected,
	})
}

func strptr(s string) *string { return &s }

func enterDir(path string, depth int, dev, ino uint64) fts.Entry {
	return fts.Entry{Path: path, AccessPath: path, Depth: depth, Kind: fts.EnterDir, Dev: dev, Ino: ino}
}

func leaveDir(path string, depth int, dev, ino uint64) fts.Entry {
	return fts.Entry{Path: path, AccessPath: path, Depth: depth, Kind: fts.LeaveDir, Dev: dev, Ino: ino}
}

func fileEntry(path string, depth int) fts.Entry {
	return fts.Entry{Path: path, AccessPath: path, Depth: depth, Kind: fts.File, Dev: 1, Ino: 100}
}
