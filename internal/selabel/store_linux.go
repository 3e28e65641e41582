//go:build linux

package selabel

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// securityAttr is the extended attribute the kernel exposes SELinux file
// labels through.
const securityAttr = "security.selinux"

// XattrStore accesses labels through the security.selinux extended
// attribute.
type XattrStore struct{}

// NewStore returns the platform label store.
func NewStore() Store {
	return XattrStore{}
}

// Get reads the entry's label. A missing attribute (ENODATA, or EOPNOTSUPP
// on filesystems without label support) is reported as "no label", not as
// an error.
func (XattrStore) Get(path string, follow bool) (Label, bool, error) {
	get := unix.Lgetxattr
	if follow {
		get = unix.Getxattr
	}

	sz, err := get(path, securityAttr, nil)
	if err != nil {
		if isNoLabel(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get label of %s: %w", path, err)
	}
	if sz == 0 {
		return "", false, nil
	}

	buf := make([]byte, sz)
	n, err := get(path, securityAttr, buf)
	if err != nil {
		if isNoLabel(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get label of %s: %w", path, err)
	}

	// The kernel stores the label NUL-terminated.
	val := buf[:n]
	for len(val) > 0 && val[len(val)-1] == 0 {
		val = val[:len(val)-1]
	}
	if len(val) == 0 {
		return "", false, nil
	}
	return Label(val), true, nil
}

// Set writes the entry's label.
func (XattrStore) Set(path string, lbl Label, follow bool) error {
	set := unix.Lsetxattr
	if follow {
		set = unix.Setxattr
	}
	if err := set(path, securityAttr, []byte(lbl), 0); err != nil {
		return fmt.Errorf("set label of %s: %w", path, err)
	}
	return nil
}

func isNoLabel(err error) bool {
	return errors.Is(err, unix.ENODATA) || errors.Is(err, unix.EOPNOTSUPP)
}
