package engine

import (
	"fmt"
	"os"
	"syscall"

	"github.com/fsrelabel/relabel/internal/fts"
)

// DevIno uniquely identifies a filesystem object. Equality means "the same
// object", regardless of the path it was reached through.
type DevIno struct {
	Dev uint64
	Ino uint64
}

func entryDevIno(e fts.Entry) DevIno {
	return DevIno{Dev: e.Dev, Ino: e.Ino}
}

// resolveDevIno resolves the identity of the protected path before the
// walk starts. Failure here fails the whole run: the safety net itself is
// unusable.
func resolveDevIno(path string) (DevIno, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return DevIno{}, fmt.Errorf("resolve protected root %s: %w", path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return DevIno{}, fmt.Errorf("resolve protected root %s: no stat data", path)
	}
	return DevIno{Dev: devFromStat(st), Ino: st.Ino}, nil
}

// isProtectedRoot reports whether candidate is the same filesystem object
// as the protected root, if one is set.
func isProtectedRoot(candidate DevIno, protected *DevIno) bool {
	return protected != nil && *protected == candidate
}
