//go:build linux

package fts

import (
	"os"
	"syscall"
)

// devIno extracts the device and inode identity from a stat result.
func devIno(info os.FileInfo) (uint64, uint64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return st.Dev, st.Ino
}
