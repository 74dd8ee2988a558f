package fsview

import (
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/berndmichaely/lib-filesystem-view/sortedlist"
	"github.com/berndmichaely/lib-filesystem-view/watchhub"
)

// expansionState is the per-node state machine described by the
// Collapsed/Expanding/Waiting/Expanded contract.
type expansionState int

const (
	stateCollapsed expansionState = iota
	stateExpanding
	stateWaiting
	stateExpanded
)

// nodeConfig is shared, read-only configuration reachable from every node
// in one tree: the filename ordering, the view factory, and the watch
// hub. It never changes after Tree construction.
type nodeConfig struct {
	comparator  FilenameComparator
	viewFactory ViewFactory
	hub         *watchhub.Hub
	fs          afero.Fs
	overflowLimiter func(path string) *rate.Limiter
}

// nodeChildren is the synchronized core described in the component
// design: it owns the sorted child list, the expansion state machine,
// the materialized View, and the effective policy for this node. Every
// mutating and inspecting operation acquires mu; lock ordering is
// parent-before-child.
type nodeChildren struct {
	mu sync.Mutex

	cfg    *nodeConfig
	path   string
	view   View
	policy NodePolicy
	state  expansionState
	isLeaf bool

	list *sortedlist.List[DirectoryEntry]
}

// newNodeChildren constructs the synchronized core for one node. It
// takes no reference to the parent node: per the component design, a
// controller points downward only, and upward navigation (when needed)
// is done by path-walk from the root rather than by held pointer.
func newNodeChildren(cfg *nodeConfig, path string, policy NodePolicy, view View) *nodeChildren {
	nc := &nodeChildren{
		cfg:    cfg,
		path:   path,
		view:   view,
		policy: policy,
		state:  stateCollapsed,
	}
	cmp := entryComparator(cfg.comparator)
	nc.list = sortedlist.New(cmp, nc.onListEvent)
	return nc
}

// onListEvent is the SortedDistinctList observer wiring from §4.3: it
// runs under nc.mu (the caller always holds it while mutating nc.list)
// and must never call back up to an owning node, since none is held.
func (nc *nodeChildren) onListEvent(ev sortedlist.Event[DirectoryEntry]) {
	switch ev.Kind {
	case sortedlist.EventAdd, sortedlist.EventMultiAdd:
		views := make([]View, len(ev.Items))
		for i, entry := range ev.Items {
			views[i] = nc.materializeChild(entry)
		}
		nc.view.InsertSubnodes(ev.Indices, views)

	case sortedlist.EventBulkAdd:
		views := make([]View, len(ev.Items))
		for i, entry := range ev.Items {
			views[i] = nc.materializeChild(entry)
		}
		nc.view.AddAllSubnodes(views)

	case sortedlist.EventRemove, sortedlist.EventMultiRemove:
		for _, entry := range ev.Items {
			nc.collapseEntry(entry)
		}
		nc.view.RemoveSubnodes(ev.Indices)

	case sortedlist.EventBulkClear:
		for _, entry := range ev.Items {
			nc.collapseEntry(entry)
		}
		nc.view.Clear()
	}
}

// materializeChild builds the NodeController for a newly-visible entry,
// propagates its leaf status to its own (freshly constructed) view, and
// returns that view for insertion into nc.view.
func (nc *nodeChildren) materializeChild(entry DirectoryEntry) View {
	childPolicy := nc.policy.PolicyFor(entry.Path())
	ctrl := entry.InitController(nc.cfg, nc)
	view := ctrl.view()
	view.SetLeaf(childPolicy.IsLeafNode(entry.Path()))
	return view
}

// collapseEntry forces a departing entry's controller to Collapsed,
// triggering its own recursive teardown, before the view is told to
// remove it.
func (nc *nodeChildren) collapseEntry(entry DirectoryEntry) {
	if ctrl := entry.CurrentController(); ctrl != nil {
		ctrl.setExpanded(false)
	}
}

// isExpandedLocked reports the current state without acquiring mu; callers
// must already hold it.
func (nc *nodeChildren) isExpandedLocked() bool {
	return nc.state == stateExpanded || nc.state == stateExpanding
}

// recomputeLeaf recomputes leaf status by asking policy and forces an
// empty child set if a formerly non-leaf expanded node has flipped to
// leaf. It returns the new leaf status.
func (nc *nodeChildren) recomputeLeaf() bool {
	nc.isLeaf = nc.policy.IsLeafNode(nc.path)
	if nc.isLeaf && nc.state == stateExpanded {
		nc.list.SynchronizeTo(nil)
	}
	nc.view.SetLeaf(nc.isLeaf)
	return nc.isLeaf
}

// forEach applies fn to each current child entry.
func (nc *nodeChildren) forEach(fn func(DirectoryEntry)) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	for _, e := range nc.list.Items() {
		fn(e)
	}
}

// findChildByName performs an O(log n) lookup by name only, using a
// proxy entry so no filesystem access is needed.
func (nc *nodeChildren) findChildByName(name string) DirectoryEntry {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	proxy := entryKeyByName(nc.path, name)
	idx := nc.list.IndexOf(proxy)
	if idx < 0 {
		return nil
	}
	return nc.list.At(idx)
}
