package fsview_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berndmichaely/lib-filesystem-view"
	"github.com/berndmichaely/lib-filesystem-view/fsviewtest"
)

// Scenario 1 from the acceptance scenarios: a Unix-style root with a
// single static directory chain, expand-and-select, then collapse.
func TestScenario1UnixRootExpandAndSelect(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/b/c/")
	factory := fsviewtest.NewRecorderFactory()
	cfg := fsview.NewConfig(fs, factory, fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	reached, err := tree.ExpandPath("/", false, false)
	require.NoError(t, err)
	assert.Equal(t, "/", reached)
	assert.Equal(t, []string{"/"}, tree.ExpandedPaths())

	reached, err = tree.ExpandPath("/a/b/c", false, true)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", reached)
	selected, ok := tree.SelectedPath()
	assert.True(t, ok)
	assert.Equal(t, "/a/b/c", selected)
	assert.Equal(t, []string{"/a/b/c"}, tree.ExpandedPaths())
}

func TestExpandPathRejectsRelativePath(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/")
	cfg := fsview.NewConfig(fs, fsviewtest.NewRecorderFactory(), fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	_, err := tree.ExpandPath("relative/path", false, false)
	assert.ErrorIs(t, err, fsview.ErrNonAbsolutePath)
}

func TestExpandPathStopsAtMissingComponent(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/b/")
	cfg := fsview.NewConfig(fs, fsviewtest.NewRecorderFactory(), fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	reached, err := tree.ExpandPath("/a/does-not-exist/deeper", false, true)
	require.NoError(t, err)
	assert.Equal(t, "/a", reached)
	_, hasSel := tree.SelectedPath()
	assert.False(t, hasSel, "selection must not move past a prefix match")
}

func TestClearSelection(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/")
	cfg := fsview.NewConfig(fs, fsviewtest.NewRecorderFactory(), fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	_, err := tree.ExpandPath("/a", false, true)
	require.NoError(t, err)
	assert.True(t, tree.HasSelection())

	tree.ClearSelection()
	assert.False(t, tree.HasSelection())
}

// Scenario 1's final step: collapsing the "/" node (via the toggle a
// UI tree widget would invoke on its disclosure control) recursively
// tears down every descendant expansion. The Tree's selection is not
// changed by a per-node collapse.
func TestCollapseClearsDescendantExpansion(t *testing.T) {
	fs := fsviewtest.BuildFixture("/a/b/c/")
	registry, factory := fsviewtest.NewRegistry()
	cfg := fsview.NewConfig(fs, factory, fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	_, err := tree.ExpandPath("/a/b/c", false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b/c"}, tree.ExpandedPaths())

	root, ok := registry.ByPath("/")
	require.True(t, ok)
	root.Toggle(false)

	assert.Equal(t, []string{"/"}, tree.ExpandedPaths())
}

var _ = afero.NewMemMapFs // keep afero import live for readers checking the fixture backend
