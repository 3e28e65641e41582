//go:build !linux

package selabel

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("security labels are not supported on this platform")

type unsupportedStore struct{}

// NewStore returns the platform label store.
func NewStore() Store {
	return unsupportedStore{}
}

func (unsupportedStore) Get(path string, _ bool) (Label, bool, error) {
	return "", false, fmt.Errorf("get label of %s: %w", path, errUnsupported)
}

func (unsupportedStore) Set(path string, _ Label, _ bool) error {
	return fmt.Errorf("set label of %s: %w", path, errUnsupported)
}
