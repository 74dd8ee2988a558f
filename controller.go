package fsview

import (
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/berndmichaely/lib-filesystem-view/watchhub"
)

// nodeController is the internal contract shared by every controller
// variant (root, subdirectory, file-mount, and the skipping-root
// delegating wrapper). Exported behavior is reached only through Tree,
// the Facade; this interface exists so DirectoryEntry and nodeChildren
// can drive any variant uniformly.
type nodeController interface {
	view() View
	setExpanded(flag bool)
	updateTree()
	findChildByName(name string) nodeController
	expandedPaths() map[string]struct{}
	expandPath(absPath string, idx int, expandLast bool) expandResult
	path() string
}

// --- Subdirectory controller -------------------------------------------

type subdirController struct {
	nc *nodeChildren
}

func newSubdirController(cfg *nodeConfig, parent *nodeChildren, dirPath string) *subdirController {
	policy := parent.policy.PolicyFor(dirPath)
	sc := &subdirController{}
	v := cfg.viewFactory(dirPath, path.Base(dirPath), func(expand bool) { sc.setExpanded(expand) })
	sc.nc = newNodeChildren(cfg, dirPath, policy, v)
	if policy.IsRequestingUpdateNotifier() {
		policy.SetUpdateNotifier(func() { sc.updateTree() })
	}
	return sc
}

func (s *subdirController) view() View { return s.nc.view }
func (s *subdirController) path() string { return s.nc.path }

func (s *subdirController) setExpanded(flag bool) {
	nc := s.nc
	nc.mu.Lock()
	defer nc.mu.Unlock()

	nc.recomputeLeaf()
	if nc.isLeaf && flag {
		return // leaves never expand
	}

	switch {
	case flag && nc.state == stateCollapsed:
		nc.state = stateExpanding
		nc.view.SetExpanded(true)
		s.readAndApplyLocked()
		if nc.state == stateExpanding {
			nc.state = stateExpanded
			nc.cfg.hub.Register(nc.path, s.onWatchEvent, nc.cfg.overflowLimiter)
		}

	case !flag && nc.state == stateExpanding:
		// Reached only once reads move off-thread; readAndApplyLocked
		// currently runs synchronously above, so this path never fires
		// today. It is kept for that future asynchronous reader.
		nc.state = stateCollapsed
		nc.view.SetExpanded(false)

	case !flag && nc.state == stateExpanded:
		nc.cfg.hub.Unregister(nc.path)
		for _, e := range nc.list.Items() {
			nc.collapseEntry(e)
		}
		nc.list.SynchronizeTo(nil)
		nc.state = stateCollapsed
		nc.view.SetExpanded(false)

	case flag && nc.state == stateExpanded:
		// no-op
	}
}

// readAndApplyLocked runs the directory read synchronously (per §5,
// DirectoryReader currently always runs on the calling goroutine) and
// applies the result if the node is still wanted expanded.
func (s *subdirController) readAndApplyLocked() {
	nc := s.nc
	entries := readDirectory(nc.cfg.fs, nc.path, nc.policy)
	if nc.state == stateCollapsed {
		return // collapsed while the read was in flight; discard
	}
	nc.list.SynchronizeTo(entries)
}

func (s *subdirController) updateTree() {
	nc := s.nc
	nc.mu.Lock()
	expanded := nc.state == stateExpanded
	// recomputeLeaf empties the list of an expanded node that has become
	// a leaf; only a non-leaf node is re-read.
	if expanded && !nc.recomputeLeaf() {
		s.readAndApplyLocked()
	}
	children := nc.list.Items()
	nc.mu.Unlock()

	if expanded {
		for _, e := range children {
			if ctrl := e.CurrentController(); ctrl != nil {
				ctrl.updateTree()
			}
		}
	}
}

func (s *subdirController) findChildByName(name string) nodeController {
	entry := s.nc.findChildByName(name)
	if entry == nil {
		return nil
	}
	return entry.CurrentController()
}

func (s *subdirController) expandedPaths() map[string]struct{} {
	return collectExpandedPaths(s.nc)
}

func (s *subdirController) expandPath(absPath string, idx int, expandLast bool) expandResult {
	return expandPathOn(s, s.nc, absPath, idx, expandLast)
}

// onWatchEvent handles the Create/Delete/Overflow callback delivered by
// the WatchHub for this node's directory.
func (s *subdirController) onWatchEvent(kind watchhub.EventKind, name string) {
	nc := s.nc
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.state != stateExpanded {
		return
	}
	switch kind {
	case watchhub.Create:
		childPath := joinPath(nc.path, name)
		if isMountable, entry := classifyForCreate(nc, childPath); isMountable {
			nc.list.Add(entry)
		}
	case watchhub.Delete:
		nc.list.Remove(entryKeyByName(nc.path, name))
	case watchhub.Overflow:
		entries := readDirectory(nc.cfg.fs, nc.path, nc.policy)
		nc.list.SynchronizeTo(entries)
	}
}

// classifyForCreate resolves a single new path and asks policy whether it
// should become a visible entry, mirroring readDirectory's per-entry
// logic for the watch-driven single-item case.
func classifyForCreate(nc *nodeChildren, childPath string) (bool, DirectoryEntry) {
	info, err := nc.cfg.fs.Stat(childPath)
	if err != nil {
		return false, nil
	}
	switch {
	case info.IsDir():
		if nc.policy.IsCreatingNodeForDirectory(childPath) {
			return true, NewSubdirectoryEntry(childPath)
		}
	case info.Mode().IsRegular():
		if nc.policy.IsCreatingNodeForFile(childPath) {
			return true, NewRegularFileEntry(childPath)
		}
	}
	return false, nil
}

// --- Root controller -----------------------------------------------------

// rootPollInterval is the fixed-delay period for the roots-poll
// scheduler, matching the original's 2-second ScheduledExecutorService.
const rootPollInterval = 2 * time.Second

type rootDirController struct {
	nc *nodeChildren

	pollEnabled bool
	pollStop    chan struct{}
}

// newRootController builds the single global root controller owned by
// the Facade. pollRoots opts into the periodic roots re-read used on
// platforms whose root set can change and which cannot watch roots
// natively (e.g. removable drives).
func newRootController(cfg *nodeConfig, policy NodePolicy, v View, pollRoots bool) *rootDirController {
	nc := newNodeChildren(cfg, "", policy, v)
	r := &rootDirController{nc: nc, pollEnabled: pollRoots}
	return r
}

func (r *rootDirController) view() View   { return r.nc.view }
func (r *rootDirController) path() string { return "" }

func (r *rootDirController) setExpanded(flag bool) {
	nc := r.nc
	nc.mu.Lock()
	switch {
	case flag && nc.state == stateCollapsed:
		nc.state = stateExpanding
		nc.view.SetExpanded(true)
		entries := readFilesystemRoots(nc.cfg.fs, false, nc.policy)
		nc.list.SynchronizeTo(entries)
		nc.state = stateExpanded
		if r.pollEnabled {
			r.startPollLocked()
		}
	case !flag && (nc.state == stateExpanded || nc.state == stateExpanding):
		r.stopPoll()
		for _, e := range nc.list.Items() {
			nc.collapseEntry(e)
		}
		nc.list.SynchronizeTo(nil)
		nc.state = stateCollapsed
		nc.view.SetExpanded(false)
	}
	nc.mu.Unlock()
}

func (r *rootDirController) startPollLocked() {
	if r.pollStop != nil {
		return
	}
	r.pollStop = make(chan struct{})
	stop := r.pollStop
	go func() {
		ticker := time.NewTicker(rootPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.updateTree()
			}
		}
	}()
}

func (r *rootDirController) stopPoll() {
	if r.pollStop != nil {
		close(r.pollStop)
		r.pollStop = nil
	}
}

func (r *rootDirController) updateTree() {
	nc := r.nc
	nc.mu.Lock()
	expanded := nc.state == stateExpanded
	if expanded {
		entries := readFilesystemRoots(nc.cfg.fs, false, nc.policy)
		nc.list.SynchronizeTo(entries)
	}
	children := nc.list.Items()
	nc.mu.Unlock()

	if expanded {
		for _, e := range children {
			if ctrl := e.CurrentController(); ctrl != nil {
				ctrl.updateTree()
			}
		}
	}
}

func (r *rootDirController) findChildByName(name string) nodeController {
	entry := r.nc.findChildByName(name)
	if entry == nil {
		return nil
	}
	return entry.CurrentController()
}

func (r *rootDirController) expandedPaths() map[string]struct{} {
	return collectExpandedPaths(r.nc)
}

// expandPath resolves absPath against this Facade's enumerated roots.
// Unlike an ordinary directory, whose children are found by matching one
// path segment at a time, a root's own name (e.g. "/" on Unix, "C:" on a
// drive-letter platform) may consume zero or more path segments, so the
// match is by prefix against each root entry's full name rather than by
// expandPathOn's single-segment lookup.
func (r *rootDirController) expandPath(absPath string, idx int, expandLast bool) expandResult {
	r.setExpanded(true)

	r.nc.mu.Lock()
	children := r.nc.list.Items()
	r.nc.mu.Unlock()

	for _, e := range children {
		rootName := e.Name()
		stripped := strings.TrimSuffix(rootName, "/")
		matches := stripped == "" || absPath == stripped || strings.HasPrefix(absPath, stripped+"/")
		if !matches {
			continue
		}
		ctrl := e.CurrentController()
		if ctrl == nil {
			break
		}
		rootSegs := len(splitPath(rootName))
		totalSegs := splitPath(absPath)
		if rootSegs == len(totalSegs) {
			if expandLast {
				ctrl.setExpanded(true)
			}
			return expandResult{ctrl.view(), ctrl.path()}
		}
		return ctrl.expandPath(absPath, rootSegs, expandLast)
	}

	r.nc.mu.Lock()
	v := r.nc.view
	r.nc.mu.Unlock()
	return expandResult{v, ""} // absPath matches none of the enumerated roots
}

// --- File-mount controller -----------------------------------------------

type fileMountController struct {
	nc       *nodeChildren
	filePath string
	hostCfg  *nodeConfig // the real tree's cfg, restored on collapse

	mountedFs      interface{ Close() error }
	mountedAferoFs afero.Fs // the filesystem OnClosingFilesystem is told about
	closeOnce      sync.Once
	skippingChild  nodeController // non-nil once the single-root skip has fired
}

func newFileMountController(cfg *nodeConfig, parent *nodeChildren, filePath string) *fileMountController {
	policy := parent.policy.PolicyFor(filePath)
	fc := &fileMountController{filePath: filePath, hostCfg: cfg}
	v := cfg.viewFactory(filePath, path.Base(filePath), func(expand bool) { fc.setExpanded(expand) })
	fc.nc = newNodeChildren(cfg, filePath, policy, v)
	return fc
}

func (f *fileMountController) view() View {
	if f.skippingChild != nil {
		return f.skippingChild.view()
	}
	return f.nc.view
}

func (f *fileMountController) path() string { return f.filePath }

func (f *fileMountController) setExpanded(flag bool) {
	nc := f.nc
	nc.mu.Lock()

	switch {
	case flag && nc.state == stateCollapsed:
		nc.state = stateExpanding
		nc.view.SetExpanded(true)
		mounted := nc.policy.CreateFilesystemFor(f.filePath)
		if mounted == nil {
			nc.state = stateExpanded
			nc.mu.Unlock()
			return
		}
		mountCfg := &nodeConfig{
			comparator:  nc.cfg.comparator,
			viewFactory: nc.cfg.viewFactory,
			hub:         nil, // watch-service is not offered inside mounted filesystems
			fs:          mounted,
		}
		f.mountedFs, _ = mounted.(interface{ Close() error })
		f.mountedAferoFs = mounted
		roots := readFilesystemRoots(mounted, false, nc.policy)
		if len(roots) == 1 && roots[0].Name() == "/" {
			skipNc := newNodeChildren(mountCfg, "/", nc.policy, nc.view)
			skip := &subdirController{nc: skipNc}
			f.skippingChild = skip
			nc.state = stateExpanded
			nc.mu.Unlock()
			skip.setExpanded(true)
			return
		}
		// This node's own children are the mount's enumerated roots, read
		// through mountCfg.fs rather than the host filesystem; swap cfg so
		// onListEvent materializes them with the mount's (watch-less) cfg.
		nc.cfg = mountCfg
		nc.list.SynchronizeTo(roots)
		nc.state = stateExpanded

	case !flag && (nc.state == stateExpanded || nc.state == stateExpanding):
		if f.skippingChild != nil {
			skip := f.skippingChild
			f.skippingChild = nil
			nc.mu.Unlock()
			skip.setExpanded(false)
			nc.mu.Lock()
		} else {
			for _, e := range nc.list.Items() {
				nc.collapseEntry(e)
			}
			nc.list.SynchronizeTo(nil)
		}
		nc.cfg = f.hostCfg
		nc.state = stateCollapsed
		nc.view.SetExpanded(false)
		f.closeMountedFs()
	}
	nc.mu.Unlock()
}

// closeMountedFs closes the mounted filesystem and invokes the policy's
// on-closing hook exactly once, per Invariant 4. The default filesystem
// (hub == nil is not sufficient evidence of that; mountedFs is only ever
// set for genuinely mounted filesystems) is never reached here.
func (f *fileMountController) closeMountedFs() {
	f.closeOnce.Do(func() {
		if f.mountedFs == nil {
			return
		}
		if err := f.mountedFs.Close(); err != nil {
			log.Warn("close mounted filesystem:", f.filePath, err)
		}
		f.nc.policy.OnClosingFilesystem(f.mountedAferoFs)
	})
}

func (f *fileMountController) updateTree() {
	if f.skippingChild != nil {
		f.skippingChild.updateTree()
		return
	}
	nc := f.nc
	nc.mu.Lock()
	children := nc.list.Items()
	nc.mu.Unlock()
	for _, e := range children {
		if ctrl := e.CurrentController(); ctrl != nil {
			ctrl.updateTree()
		}
	}
}

func (f *fileMountController) findChildByName(name string) nodeController {
	if f.skippingChild != nil {
		return f.skippingChild.findChildByName(name)
	}
	entry := f.nc.findChildByName(name)
	if entry == nil {
		return nil
	}
	return entry.CurrentController()
}

func (f *fileMountController) expandedPaths() map[string]struct{} {
	if f.skippingChild != nil {
		return f.skippingChild.expandedPaths()
	}
	return collectExpandedPaths(f.nc)
}

func (f *fileMountController) expandPath(absPath string, idx int, expandLast bool) expandResult {
	if f.skippingChild != nil {
		return f.skippingChild.expandPath(absPath, idx, expandLast)
	}
	return expandPathOn(f, f.nc, absPath, idx, expandLast)
}

// --- shared helpers --------------------------------------------------------

// collectExpandedPaths implements the recursive snapshot: if nc is
// expanded and has children, return the union of its children's sets (a
// collapsed child contributes its own path); if nc is collapsed, or
// expanded with no children, return {nc.path}.
func collectExpandedPaths(nc *nodeChildren) map[string]struct{} {
	nc.mu.Lock()
	expanded := nc.state == stateExpanded
	children := nc.list.Items()
	self := nc.path
	nc.mu.Unlock()

	if !expanded {
		return map[string]struct{}{self: {}}
	}

	union := map[string]struct{}{}
	for _, e := range children {
		ctrl := e.CurrentController()
		if ctrl == nil {
			continue
		}
		for p := range ctrl.expandedPaths() {
			union[p] = struct{}{}
		}
	}
	if len(union) == 0 {
		return map[string]struct{}{self: {}}
	}
	return union
}

// expandResult is what expandPathOn returns: the deepest View reached
// and the absolute path it corresponds to (a prefix of the request if
// traversal could not go all the way).
type expandResult struct {
	view    View
	reached string
}

// expandPathOn implements the §4.4 descend-one-component algorithm,
// shared by every controller variant. self is the controller being
// descended from; nc is its nodeChildren. self is always expanded
// before its children are searched, since finding segments[idx] among
// them requires them to be materialized; expandLast governs only
// whether the final, matched node itself also gets expanded.
func expandPathOn(self nodeController, nc *nodeChildren, absPath string, idx int, expandLast bool) expandResult {
	segments := splitPath(absPath)
	if idx >= len(segments) {
		nc.mu.Lock()
		v := nc.view
		nc.mu.Unlock()
		return expandResult{v, self.path()}
	}

	self.setExpanded(true)

	name := segments[idx]
	child := self.findChildByName(name)
	if child == nil {
		nc.mu.Lock()
		v := nc.view
		nc.mu.Unlock()
		return expandResult{v, self.path()} // prefix-match only: requested path not fully present
	}

	isLast := idx == len(segments)-1
	if isLast {
		if expandLast {
			child.setExpanded(true)
		}
		return expandResult{child.view(), child.path()}
	}
	return child.expandPath(absPath, idx+1, expandLast)
}

// splitPath breaks an absolute path into its non-empty components.
func splitPath(absPath string) []string {
	trimmed := strings.Trim(absPath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
