// Package fts enumerates filesystem hierarchies depth-first, yielding
// directories both before and after their children in the manner of the
// BSD fts(3) interface. The caller steers the walk by passing a Command
// with each request for the next entry.
package fts

import "syscall"

// Kind classifies a visited entry.
type Kind int

const (
	// EnterDir is the pre-order visit of a directory.
	EnterDir Kind = iota + 1
	// LeaveDir is the post-order visit of a directory, after all of its
	// children have been yielded.
	LeaveDir
	// File is any entry that is not a traversed directory: regular files,
	// symlinks that are not followed, devices, sockets.
	File
	// NoStat means the entry could not be stat'd; Errno carries the cause.
	NoStat
	// NoReadDir means the entry is a directory whose children could not be
	// listed. It replaces the EnterDir visit and has no LeaveDir.
	NoReadDir
	// Cycle means the entry is a directory whose identity matches one of
	// its ancestors on the current descent path. It is not descended into.
	Cycle
	// Err is any other per-entry failure.
	Err
)

var kindNames = [...]string{
	EnterDir:  "EnterDir",
	LeaveDir:  "LeaveDir",
	File:      "File",
	NoStat:    "NoStat",
	NoReadDir: "NoReadDir",
	Cycle:     "Cycle",
	Err:       "Err",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Dereference selects how directory symlinks are handled during the walk.
type Dereference int

const (
	// Physical never follows symlinks.
	Physical Dereference = iota
	// Logical follows every symlink to a directory.
	Logical
	// ComFollow follows a symlink to a directory only when it is given as
	// a root argument; below the roots it behaves like Physical.
	ComFollow
)

// Command steers the walker. It applies to the entry returned by the
// previous call to Next.
type Command int

const (
	// Continue proceeds to the next entry in depth-first order.
	Continue Command = iota
	// SkipSubtree drops the children of the previous entry when it was an
	// EnterDir; its LeaveDir visit still follows. For any other entry the
	// command is a no-op.
	SkipSubtree
	// RetryNode re-stats the previous entry and yields it again with
	// Retried set. The walk then proceeds as if the entry were fresh.
	RetryNode
)

// Entry is one step of the walk.
type Entry struct {
	// Path is the display path: the root argument joined with the names
	// leading to this entry.
	Path string
	// AccessPath is the path usable for I/O on this entry. It equals Path
	// except for root arguments dereferenced under Logical or ComFollow,
	// where it names the resolved referent.
	AccessPath string
	// Depth is 0 for root arguments and grows by one per directory level.
	Depth int
	Kind  Kind
	// Dev and Ino identify the underlying filesystem object. Zero when the
	// entry could not be stat'd.
	Dev uint64
	Ino uint64
	// Errno is the OS error for NoStat, NoReadDir and Err entries.
	Errno syscall.Errno
	// Retried marks an entry produced by a RetryNode command.
	Retried bool
}
