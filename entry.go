package fsview

import (
	"path"
	"strings"
)

// displayEmptySentinel renders the empty name (used by filesystem roots
// whose path is the empty string) so a host UI always has something to
// show.
const displayEmptySentinel = "\u03b5" // ε

// DirectoryEntry is a tagged sum with three constructors: FilesystemRoot,
// Subdirectory, and RegularFile. It is modeled as a small interface with
// an unexported discriminator rather than `any` plus a type switch, so
// that adding or consuming a variant is caught at compile time.
type DirectoryEntry interface {
	entryKind() entryKind
	// Path is the absolute path inside the owning filesystem; for
	// FilesystemRoot this is the empty string.
	Path() string
	// Name is the last path element, the root name, or the empty string.
	Name() string
	// DisplayName is Name, except the empty string renders as a single
	// sentinel character.
	DisplayName() string
	// InitController builds the matching NodeController variant for this
	// entry, wires it to cfg, and remembers it for CurrentController.
	InitController(cfg *nodeConfig, parent *nodeChildren) nodeController
	// CurrentController returns the controller built by InitController,
	// or nil if none has been built yet.
	CurrentController() nodeController
}

type entryKind int

const (
	entryFilesystemRoot entryKind = iota
	entrySubdirectory
	entryRegularFile
)

type baseEntry struct {
	path       string
	name       string
	controller nodeController
}

func (e *baseEntry) Path() string { return e.path }
func (e *baseEntry) Name() string { return e.name }

func (e *baseEntry) DisplayName() string {
	if e.name == "" {
		return displayEmptySentinel
	}
	return e.name
}

func (e *baseEntry) CurrentController() nodeController { return e.controller }

// FilesystemRootEntry wraps a filesystem handle; its path is empty.
type FilesystemRootEntry struct {
	baseEntry
	rootName string // e.g. "C:\" on a roots-enumerating platform, "/" on Unix
}

// NewFilesystemRootEntry constructs the entry for one enumerated root of
// a filesystem. rootName is the root's own display form (e.g. "/" on
// Unix, "C:\" on a drive-letter platform).
func NewFilesystemRootEntry(rootName string) *FilesystemRootEntry {
	return &FilesystemRootEntry{baseEntry: baseEntry{path: "", name: rootName}, rootName: rootName}
}

func (e *FilesystemRootEntry) entryKind() entryKind { return entryFilesystemRoot }

// InitController treats the enumerated root as an ordinary subdirectory
// rooted at its own path (e.g. "/" on Unix, "C:\" on a drive-letter
// platform): only the Facade's single top-level root controller polls
// for root-set changes, not each individual root.
func (e *FilesystemRootEntry) InitController(cfg *nodeConfig, parent *nodeChildren) nodeController {
	ctrl := newSubdirController(cfg, parent, e.rootName)
	e.controller = ctrl
	return ctrl
}

// SubdirectoryEntry wraps an absolute directory path.
type SubdirectoryEntry struct {
	baseEntry
}

// NewSubdirectoryEntry constructs the entry for a subdirectory at
// absolute path p.
func NewSubdirectoryEntry(p string) *SubdirectoryEntry {
	return &SubdirectoryEntry{baseEntry{path: p, name: path.Base(p)}}
}

func (e *SubdirectoryEntry) entryKind() entryKind { return entrySubdirectory }

func (e *SubdirectoryEntry) InitController(cfg *nodeConfig, parent *nodeChildren) nodeController {
	ctrl := newSubdirController(cfg, parent, e.path)
	e.controller = ctrl
	return ctrl
}

// RegularFileEntry wraps an absolute file path that may be mountable.
type RegularFileEntry struct {
	baseEntry
}

// NewRegularFileEntry constructs the entry for a regular file at
// absolute path p.
func NewRegularFileEntry(p string) *RegularFileEntry {
	return &RegularFileEntry{baseEntry{path: p, name: path.Base(p)}}
}

func (e *RegularFileEntry) entryKind() entryKind { return entryRegularFile }

func (e *RegularFileEntry) InitController(cfg *nodeConfig, parent *nodeChildren) nodeController {
	ctrl := newFileMountController(cfg, parent, e.path)
	e.controller = ctrl
	return ctrl
}

// entryComparator orders two DirectoryEntry values by their Name under
// the configured FilenameComparator.
func entryComparator(cmp FilenameComparator) func(a, b DirectoryEntry) int {
	return func(a, b DirectoryEntry) int {
		return cmp(a.Name(), b.Name())
	}
}

// entryKeyByName builds a proxy DirectoryEntry carrying only a name, used
// to remove by key on a Delete(name) watch event without resolving the
// path against the filesystem.
func entryKeyByName(parentPath, name string) DirectoryEntry {
	return &SubdirectoryEntry{baseEntry{path: joinPath(parentPath, name), name: name}}
}

func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
