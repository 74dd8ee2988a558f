package fsview

import (
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/berndmichaely/lib-filesystem-view/watchhub"
)

// Tree is the public entry point for this library: construct it over a
// filesystem and a Config, then drive it through ExpandPath,
// ClearSelection, ExpandedPaths, UpdateTree, and Close. It corresponds to
// the Facade of the component design.
type Tree struct {
	mu sync.Mutex

	cfg      *nodeConfig
	root     *rootDirController
	selected string
	hasSel   bool
	closed   bool
}

// defaultOverflowLimiter caps Overflow re-reads at one per path every
// 200ms, enough to absorb a burst of create/delete churn without
// starving the caller with redundant full re-reads.
func defaultOverflowLimiter(string) *rate.Limiter {
	return rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
}

// New constructs a Tree from cfg. The host filesystem's roots are not
// read until the first ExpandPath call; construction itself never
// touches the filesystem.
func New(cfg *Config) *Tree {
	hub := watchhub.New(cfg.requestWatchService)
	nc := &nodeConfig{
		comparator:      cfg.filenameComparator,
		viewFactory:     cfg.viewFactory,
		hub:             hub,
		fs:              cfg.filesystem,
		overflowLimiter: defaultOverflowLimiter,
	}
	policy := cfg.policyFactory()
	t := &Tree{cfg: nc}
	v := cfg.viewFactory("", "", func(expand bool) { t.root.setExpanded(expand) })
	// Root-set polling is only useful (and only attempted) when the
	// watch hub itself is unavailable for roots and the host filesystem
	// can plausibly grow/shrink its root set; afero backends expose no
	// such signal, so polling stays opt-in behind a future Option rather
	// than auto-detected here.
	t.root = newRootController(nc, policy, v, false)
	return t
}

// ExpandPath descends one path component at a time from the root,
// creating intermediate expansions as needed, and returns the deepest
// reached path. An empty path with selectPath true clears the selection
// and returns "". If absPath is not absolute, it returns
// ErrNonAbsolutePath. ErrDomainMismatch is reserved for a future
// fs.FS-typed entry point; a string path carries no filesystem identity
// to mismatch against, so this function never returns it.
func (t *Tree) ExpandPath(absPath string, expandLast, selectPath bool) (string, error) {
	if absPath == "" {
		if selectPath {
			t.ClearSelection()
		}
		return "", nil
	}
	if !strings.HasPrefix(absPath, "/") {
		return "", ErrNonAbsolutePath
	}

	t.root.setExpanded(true)
	result := t.root.expandPath(absPath, 0, expandLast)

	if selectPath && result.reached == absPath {
		t.mu.Lock()
		t.selected = result.reached
		t.hasSel = true
		t.mu.Unlock()
	}
	return result.reached, nil
}

// ClearSelection clears the current selection, if any. Always valid.
func (t *Tree) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = ""
	t.hasSel = false
}

// SelectedPath returns the currently selected path and whether a
// selection exists.
func (t *Tree) SelectedPath() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected, t.hasSel
}

// HasSelection reports whether a selection currently exists.
func (t *Tree) HasSelection() bool {
	_, ok := t.SelectedPath()
	return ok
}

// ExpandedPaths returns the sorted set of paths at the edge of the
// expanded region: every collapsed child of an expanded node, plus every
// expanded node that has no children. Passing each returned path to
// ExpandPath with expandLast false re-expands every node that was
// expanded and has children; an expanded node without children is
// reported by its own path and is not re-expanded that way.
func (t *Tree) ExpandedPaths() []string {
	set := t.root.expandedPaths()
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// UpdateTree triggers a recursive refresh from the root down through all
// currently expanded descendants.
func (t *Tree) UpdateTree() {
	t.root.updateTree()
}

// Close forces the root collapsed (tearing down every descendant's watch
// registration and mounted filesystem) and closes the WatchHub. Behavior
// of any method after Close returns is undefined.
func (t *Tree) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.root.setExpanded(false)
	return t.cfg.hub.Close()
}
