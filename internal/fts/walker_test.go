package fts

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drives the walker to completion with Continue commands.
func collect(t *testing.T, w *Walker) []Entry {
	t.Helper()
	var out []Entry
	cmd := Continue
	for {
		e, ok, err := w.Next(cmd)
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

type step struct {
	kind  Kind
	path  string
	depth int
}

func assertSteps(t *testing.T, want []step, got []Entry) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, got[i].Kind, "step %d kind", i)
		assert.Equal(t, w.path, got[i].Path, "step %d path", i)
		assert.Equal(t, w.depth, got[i].Depth, "step %d depth", i)
	}
}

func TestWalker_DepthFirstOrder(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "c"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d.txt"), nil, 0644))

	w, err := New([]string{root}, Physical)
	require.NoError(t, err)

	// os.ReadDir sorts entries, so "b" precedes "d.txt".
	assertSteps(t, []step{
		{EnterDir, root, 0},
		{EnterDir, filepath.Join(root, "b"), 1},
		{File, filepath.Join(root, "b", "c"), 2},
		{LeaveDir, filepath.Join(root, "b"), 1},
		{File, filepath.Join(root, "d.txt"), 1},
		{LeaveDir, root, 0},
	}, collect(t, w))
}

func TestWalker_MultipleRoots(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "one")
	f2 := filepath.Join(dir, "two")
	require.NoError(t, os.WriteFile(f1, nil, 0644))
	require.NoError(t, os.WriteFile(f2, nil, 0644))

	w, err := New([]string{f2, f1}, Physical)
	require.NoError(t, err)

	assertSteps(t, []step{
		{File, f2, 0},
		{File, f1, 0},
	}, collect(t, w))
}

func TestWalker_NoRoots(t *testing.T) {
	_, err := New(nil, Physical)
	require.Error(t, err)
}

func TestWalker_SkipSubtree(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c"), nil, 0644))

	w, err := New([]string{root}, Physical)
	require.NoError(t, err)

	e, ok, err := w.Next(Continue)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, EnterDir, e.Kind)

	// Skipping drops the children but the post-order visit still follows.
	e, ok, err = w.Next(SkipSubtree)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, LeaveDir, e.Kind)
	assert.Equal(t, root, e.Path)

	_, ok, err = w.Next(Continue)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalker_MissingRootYieldsNoStat(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "ghost")

	w, err := New([]string{missing}, Physical)
	require.NoError(t, err)

	e, ok, err := w.Next(Continue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NoStat, e.Kind)
	assert.Equal(t, 0, e.Depth)
	assert.Equal(t, syscall.ENOENT, e.Errno)
	assert.False(t, e.Retried)
}

func TestWalker_RetryNodeRestats(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "late")

	w, err := New([]string{target}, Physical)
	require.NoError(t, err)

	e, ok, err := w.Next(Continue)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, NoStat, e.Kind)

	// The entry becomes statable between visits, as when a sibling's
	// mutation restored permissions.
	require.NoError(t, os.WriteFile(target, nil, 0644))

	e, ok, err = w.Next(RetryNode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, File, e.Kind)
	assert.True(t, e.Retried)
	assert.Equal(t, target, e.Path)
}

func TestWalker_PhysicalDoesNotFollowDirSymlinks(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	w, err := New([]string{root}, Physical)
	require.NoError(t, err)

	assertSteps(t, []step{
		{EnterDir, root, 0},
		{File, filepath.Join(root, "link"), 1},
		{EnterDir, filepath.Join(root, "real"), 1},
		{LeaveDir, filepath.Join(root, "real"), 1},
		{LeaveDir, root, 0},
	}, collect(t, w))
}

func TestWalker_LogicalFollowsDirSymlinks(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real", "f"), nil, 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	w, err := New([]string{root}, Logical)
	require.NoError(t, err)

	assertSteps(t, []step{
		{EnterDir, root, 0},
		{EnterDir, filepath.Join(root, "link"), 1},
		{File, filepath.Join(root, "link", "f"), 2},
		{LeaveDir, filepath.Join(root, "link"), 1},
		{EnterDir, filepath.Join(root, "real"), 1},
		{File, filepath.Join(root, "real", "f"), 2},
		{LeaveDir, filepath.Join(root, "real"), 1},
		{LeaveDir, root, 0},
	}, collect(t, w))
}

func TestWalker_LogicalReportsCycle(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	w, err := New([]string{root}, Logical)
	require.NoError(t, err)

	assertSteps(t, []step{
		{EnterDir, root, 0},
		{Cycle, filepath.Join(root, "loop"), 1},
		{LeaveDir, root, 0},
	}, collect(t, w))
}

func TestWalker_PhysicalSeesCycleLinkAsFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	w, err := New([]string{root}, Physical)
	require.NoError(t, err)

	assertSteps(t, []step{
		{EnterDir, root, 0},
		{File, filepath.Join(root, "loop"), 1},
		{LeaveDir, root, 0},
	}, collect(t, w))
}

func TestWalker_ComFollowDereferencesRootOnly(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.MkdirAll(filepath.Join(real, "inner"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(real, "inner"), filepath.Join(real, "innerlink")))
	rootLink := filepath.Join(dir, "rootlink")
	require.NoError(t, os.Symlink(real, rootLink))

	w, err := New([]string{rootLink}, ComFollow)
	require.NoError(t, err)

	got := collect(t, w)
	assertSteps(t, []step{
		{EnterDir, rootLink, 0},
		{EnterDir, filepath.Join(rootLink, "inner"), 1},
		{LeaveDir, filepath.Join(rootLink, "inner"), 1},
		{File, filepath.Join(rootLink, "innerlink"), 1},
		{LeaveDir, rootLink, 0},
	}, got)

	// The dereferenced root keeps its display path but I/O goes through
	// the referent.
	wantAccess, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, wantAccess, got[0].AccessPath)
}

func TestWalker_UnreadableDirYieldsNoReadDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	root := filepath.Join(dir, "a")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(locked, 0755))
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	w, err := New([]string{root}, Physical)
	require.NoError(t, err)

	got := collect(t, w)
	assertSteps(t, []step{
		{EnterDir, root, 0},
		{NoReadDir, locked, 1},
		{LeaveDir, root, 0},
	}, got)
	assert.Equal(t, syscall.EACCES, got[1].Errno)
}

func TestWalker_DevInoPopulated(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(f, nil, 0644))

	w, err := New([]string{f}, Physical)
	require.NoError(t, err)

	e, ok, err := w.Next(Continue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, e.Ino)
}
