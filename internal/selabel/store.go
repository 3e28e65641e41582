package selabel

// Store reads and writes the label attached to a filesystem entry.
//
// follow controls symbolic-link handling: when true, operations affect the
// referent of a symlink; when false, the link itself.
type Store interface {
	// Get returns the entry's label. The second return is false when the
	// entry exists but carries no label at all.
	Get(path string, follow bool) (Label, bool, error)

	// Set attaches lbl to the entry.
	Set(path string, lbl Label, follow bool) error
}
