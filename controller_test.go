package fsview_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berndmichaely/lib-filesystem-view"
	"github.com/berndmichaely/lib-filesystem-view/fsviewtest"
)

// Scenario 4 — watch-service create/delete sequencing. Since the
// MemMapFs backend used here has no fsnotify integration, this calls
// UpdateTree after each filesystem mutation instead of waiting on a real
// notifier: the child list is refreshed by a full re-read and
// SynchronizeTo (the path an Overflow event takes), not by the single
// Add/Remove calls of Create/Delete events. The sorted-child-list
// invariant under interleaved create/delete is what's actually under
// test (U1/U2/U3).
func TestScenario4CreateDeleteSequencing(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/b/")
	registry, factory := fsviewtest.NewRegistry()
	cfg := fsview.NewConfig(fs, factory, fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	_, err := tree.ExpandPath("/a/b", true, false)
	require.NoError(t, err)

	ab, ok := registry.ByPath("/a/b")
	require.True(t, ok)
	assert.Empty(t, ab.Snapshot())

	require.NoError(t, fs.MkdirAll("/a/b/subdir2", 0755))
	tree.UpdateTree()
	assert.Equal(t, []string{"subdir2"}, ab.Snapshot())

	require.NoError(t, fs.MkdirAll("/a/b/subdir1", 0755))
	tree.UpdateTree()
	assert.Equal(t, []string{"subdir1", "subdir2"}, ab.Snapshot())

	require.NoError(t, fs.Remove("/a/b/subdir2"))
	tree.UpdateTree()
	assert.Equal(t, []string{"subdir1"}, ab.Snapshot())

	require.NoError(t, fs.MkdirAll("/a/b/subdir3", 0755))
	tree.UpdateTree()
	assert.Equal(t, []string{"subdir1", "subdir3"}, ab.Snapshot())

	require.NoError(t, fs.Remove("/a/b/subdir1"))
	tree.UpdateTree()
	assert.Equal(t, []string{"subdir3"}, ab.Snapshot())

	require.NoError(t, fs.Remove("/a/b/subdir3"))
	tree.UpdateTree()
	assert.Empty(t, ab.Snapshot())
}

// leafFlipPolicy wraps the default policy, allowing a single path's leaf
// status to be flipped at test-runtime and to carry an update-notifier
// callback the test can invoke directly, modeling Scenario 5's
// policy-driven refresh.
type leafFlipPolicy struct {
	fsview.NodePolicy
	ownPath string
	target  string
	isLeaf  func() bool
	notify  *func() // shared across every PolicyFor copy in this test's chain
}

func (p *leafFlipPolicy) IsLeafNode(path string) bool {
	if path == p.target && p.isLeaf != nil {
		return p.isLeaf()
	}
	return p.NodePolicy.IsLeafNode(path)
}

func (p *leafFlipPolicy) IsRequestingUpdateNotifier() bool { return p.ownPath == p.target }

func (p *leafFlipPolicy) SetUpdateNotifier(run func()) {
	*p.notify = run
}

func (p *leafFlipPolicy) PolicyFor(path string) fsview.NodePolicy {
	return &leafFlipPolicy{NodePolicy: p.NodePolicy.PolicyFor(path), ownPath: path, target: p.target, isLeaf: p.isLeaf, notify: p.notify}
}

// Scenario 5 — policy-driven leaf flip. Expanding /a with children
// {a,b,c}; flipping IsLeafNode(/a) to true and firing the update
// notifier empties the child list; flipping back restores it.
func TestScenario5PolicyDrivenLeafFlip(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/a/", "/a/b/", "/a/c/")
	registry, factory := fsviewtest.NewRegistry()

	leaf := false
	notifyBox := new(func())
	base := &leafFlipPolicy{NodePolicy: fsview.DefaultNodePolicy(), target: "/a", isLeaf: func() bool { return leaf }, notify: notifyBox}
	cfg := fsview.NewConfig(fs, factory, fsview.WithWatchService(false), fsview.WithNodePolicy(func() fsview.NodePolicy { return base }))
	tree := fsview.New(cfg)
	defer tree.Close()

	_, err := tree.ExpandPath("/a", true, false)
	require.NoError(t, err)

	a, ok := registry.ByPath("/a")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, a.Snapshot())

	leaf = true
	require.NotNil(t, *notifyBox)
	(*notifyBox)()
	assert.Empty(t, a.Snapshot())

	leaf = false
	(*notifyBox)()
	assert.Equal(t, []string{"a", "b", "c"}, a.Snapshot())
}

var _ = afero.NewMemMapFs
