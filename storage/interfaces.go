package storage

import "time"

// Backend is the capability set the entry store needs from the medium its
// records live on. Paths are backend-native: relative slash paths for the
// in-memory and key-value backends, absolute platform paths for the
// filesystem backend. Implementations must be safe for concurrent use.
type Backend interface {
	// Read returns the full byte content stored at path.
	// Returns a not-found IOError when nothing is stored there.
	Read(path string) ([]byte, error)

	// Write replaces the content at path, creating it if absent. The write
	// is all-or-nothing: readers never observe a partially written file.
	Write(path string, data []byte) error

	// Remove deletes the content at path.
	// Returns a not-found IOError when nothing is stored there.
	Remove(path string) error

	// Rename moves content from oldPath to newPath, replacing any existing
	// content at newPath.
	Rename(oldPath, newPath string) error

	// Exists reports whether content is stored at path. Unlike Read it
	// never fails on absence, only on genuine I/O trouble.
	Exists(path string) (bool, error)

	// List walks every stored path under prefix, calling fn once per
	// regular entry in unspecified order. Directories (or their key-space
	// equivalents) are never yielded. Returning ErrStopWalk from fn ends
	// the walk early without error; any other error aborts the walk and is
	// returned.
	List(prefix string, fn func(path string) error) error

	// Close releases backend resources.
	Close() error
}

// Info describes one stored path.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Statter is an optional backend capability: metadata about a stored path
// without reading its content.
type Statter interface {
	// Stat returns metadata for path.
	// Returns a not-found IOError when nothing is stored there.
	Stat(path string) (Info, error)
}

// Locker is an optional backend capability: cooperative advisory locks on
// individual paths. Locks reduce, but do not eliminate, the window for
// concurrent modification by another process; nothing enforces them at the
// operating-system level.
type Locker interface {
	// Lock acquires the advisory lock for path. Fails fast with ErrLocked
	// when another holder exists; it never blocks.
	Lock(path string) error

	// Unlock releases the advisory lock for path.
	Unlock(path string) error
}
