package fsview

import (
	"strings"

	"github.com/spf13/afero"
)

// FilenameComparator is a strict total order over sibling names used to
// keep each node's child list sorted. Equal names are never distinguished
// (see Invariant 2): two siblings comparing equal cannot coexist.
type FilenameComparator func(a, b string) int

// DefaultFilenameComparator orders names the way the host's string
// ordering would: byte-wise, matching strings.Compare.
func DefaultFilenameComparator(a, b string) int {
	return strings.Compare(a, b)
}

// LinkOption controls whether path inspection follows symlinks.
type LinkOption int

const (
	// FollowLinks resolves symlinks when probing a path's type. Default.
	FollowLinks LinkOption = iota
	// NoFollowLinks treats a symlink as its own entry without resolving it.
	NoFollowLinks
)

// NodePolicy is the host-implementable, per-node behavior contract. The
// PolicyFactory given to WithNodePolicy builds the root node's policy;
// every other node gets its policy from its parent's PolicyFor at
// construction time, which may return a shared singleton, a fresh value
// per path, or anything in between.
type NodePolicy interface {
	// LinkOptions reports how this node resolves symlinks when inspecting
	// paths under it.
	LinkOptions() LinkOption

	// IsCreatingNodeForDirectory reports whether the subdirectory at path
	// should become a visible node.
	IsCreatingNodeForDirectory(path string) bool

	// IsCreatingNodeForFile reports whether the regular file at path
	// should become a visible, potentially mountable node.
	IsCreatingNodeForFile(path string) bool

	// CreateFilesystemFor returns a mounted filesystem for the file at
	// path, or nil if this file is not mountable.
	CreateFilesystemFor(path string) afero.Fs

	// OnClosingFilesystem is invoked exactly once when a mounted
	// filesystem this policy created is closed.
	OnClosingFilesystem(fs afero.Fs)

	// IsLeafNode reports whether path is a conceptual leaf regardless of
	// its actual directory contents.
	IsLeafNode(path string) bool

	// IsRequestingUpdateNotifier reports whether this node wants a
	// callback it can invoke to request its own refresh.
	IsRequestingUpdateNotifier() bool

	// SetUpdateNotifier receives a function the policy may call at any
	// time to force an UpdateTree on this specific node.
	SetUpdateNotifier(notify func())

	// PolicyFor returns the policy instance to use for the child node at
	// path (which may be this same instance, a shared singleton, or a
	// freshly constructed policy).
	PolicyFor(path string) NodePolicy
}

// defaultPolicy is the stateless "simple policy": non-hidden directories
// are shown, files are never shown, and nothing is mountable.
type defaultPolicy struct{}

func (defaultPolicy) LinkOptions() LinkOption { return FollowLinks }

func (defaultPolicy) IsCreatingNodeForDirectory(path string) bool {
	return !isHiddenName(path)
}

func (defaultPolicy) IsCreatingNodeForFile(string) bool           { return false }
func (defaultPolicy) CreateFilesystemFor(string) afero.Fs         { return nil }
func (defaultPolicy) OnClosingFilesystem(afero.Fs)                {}
func (defaultPolicy) IsLeafNode(string) bool                      { return false }
func (defaultPolicy) IsRequestingUpdateNotifier() bool            { return false }
func (defaultPolicy) SetUpdateNotifier(func())                    {}
func (p defaultPolicy) PolicyFor(string) NodePolicy                { return p }

// DefaultNodePolicy returns the stateless simple policy used when
// WithNodePolicy is not given.
func DefaultNodePolicy() NodePolicy { return defaultPolicy{} }

func isHiddenName(path string) bool {
	name := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		name = path[idx+1:]
	}
	return strings.HasPrefix(name, ".")
}

// PolicyFactory constructs the root NodePolicy for a tree. It is called
// once, at Facade construction time, to build the policy for the root
// node; every other node's policy comes from NodePolicy.PolicyFor.
type PolicyFactory func() NodePolicy

// View is the host-implementable UI adapter for one node. The core never
// blocks on a View call and never assumes it runs on any particular
// thread/goroutine; implementations that drive a GUI toolkit should hop
// onto that toolkit's event loop themselves.
type View interface {
	// InsertSubnodes inserts the given child views at the given indices,
	// ascending-index order.
	InsertSubnodes(indices []int, children []View)

	// AddAllSubnodes bulk-appends to what must be an empty view.
	AddAllSubnodes(children []View)

	// RemoveSubnodes removes children at the given indices, in the order
	// given (descending order is used for synchronizes).
	RemoveSubnodes(indices []int)

	// Clear removes all subnodes.
	Clear()

	// SetExpanded reflects the node's expansion flag.
	SetExpanded(flag bool)

	// SetLeaf reflects whether the node is (now) a leaf.
	SetLeaf(flag bool)
}

// ViewFactory produces the View adapter for a newly created node, given
// its absolute path and display name, plus a toggle callback the host's
// UI widget should invoke when the user interactively expands or
// collapses this specific node (e.g. clicking a tree-item's disclosure
// triangle). This is the host-to-core direction the §4.7 Facade contract
// does not otherwise provide a path for: Facade.ExpandPath only drives
// expansion top-down by path, so arbitrary per-node collapse from a UI
// click needs its own channel back into the controller that owns this
// node.
type ViewFactory func(path, displayName string, toggle func(expand bool)) View

// Config carries the builder-style construction options for a Tree.
// Build with NewConfig and the With* options; the zero Config is
// unusable because Filesystem and ViewFactory have no sane default.
type Config struct {
	filesystem         afero.Fs
	requestWatchService bool
	filenameComparator FilenameComparator
	policyFactory      PolicyFactory
	viewFactory        ViewFactory
}

// Option configures a Config built by NewConfig.
type Option func(*Config)

// NewConfig builds a Config for filesystem fs, rendering views through
// viewFactory, applying any options in order.
func NewConfig(fs afero.Fs, viewFactory ViewFactory, opts ...Option) *Config {
	c := &Config{
		filesystem:          fs,
		requestWatchService: true,
		filenameComparator:  DefaultFilenameComparator,
		policyFactory:       DefaultNodePolicy,
		viewFactory:         viewFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithWatchService toggles whether the tree attempts watch-service
// integration. Default true.
func WithWatchService(requested bool) Option {
	return func(c *Config) { c.requestWatchService = requested }
}

// WithFilenameComparator overrides the sibling ordering function.
func WithFilenameComparator(cmp FilenameComparator) Option {
	return func(c *Config) { c.filenameComparator = cmp }
}

// WithNodePolicy overrides the root NodePolicy factory.
func WithNodePolicy(factory PolicyFactory) Option {
	return func(c *Config) { c.policyFactory = factory }
}
