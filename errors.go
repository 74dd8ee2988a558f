package fsview

import "errors"

// Error kinds of the Facade boundary. ExpandPath returns
// ErrNonAbsolutePath; everything else fsview recovers from locally and
// only ever reaches a log line.
var (
	// ErrDomainMismatch names a path belonging to a filesystem other than
	// the one the tree was built on. ExpandPath takes a string path, which
	// carries no filesystem identity, and never returns this error.
	ErrDomainMismatch = errors.New("fsview: path belongs to a different filesystem")

	// ErrNonAbsolutePath is returned by ExpandPath when given a relative
	// path.
	ErrNonAbsolutePath = errors.New("fsview: path is not absolute")
)
