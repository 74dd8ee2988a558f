package fsview_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berndmichaely/lib-filesystem-view"
	"github.com/berndmichaely/lib-filesystem-view/fsviewtest"
)

// multiRootFs adds a duck-typed Roots() method atop an ordinary afero.Fs,
// modeling a drive-letter platform that enumerates more than one
// filesystem root (Scenario 2 from the acceptance scenarios).
type multiRootFs struct {
	afero.Fs
	roots []string
}

func (m multiRootFs) Roots() []string { return m.roots }

// Scenario 2 — a Windows-style filesystem enumerating two roots; each
// root gets its own top-level node, and ExpandPath descends through the
// correct one by prefix.
func TestScenario2MultiRootExpand(t *testing.T) {
	backing := fsviewtest.BuildFixture("/C:/Users/docs/", "/D:/Data/")
	fs := multiRootFs{Fs: backing, roots: []string{"/C:", "/D:"}}
	registry, factory := fsviewtest.NewRegistry()
	cfg := fsview.NewConfig(fs, factory, fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	reached, err := tree.ExpandPath("/C:/Users/docs", false, true)
	require.NoError(t, err)
	assert.Equal(t, "/C:/Users/docs", reached)
	selected, ok := tree.SelectedPath()
	assert.True(t, ok)
	assert.Equal(t, "/C:/Users/docs", selected)

	c, ok := registry.ByPath("/C:")
	require.True(t, ok)
	assert.Equal(t, []string{"Users"}, c.Snapshot())

	reached, err = tree.ExpandPath("/D:", false, false)
	require.NoError(t, err)
	assert.Equal(t, "/D:", reached)

	_, ok = registry.ByPath("/D:")
	require.True(t, ok)
}

func TestScenario2UnrelatedPathReachesNothing(t *testing.T) {
	backing := fsviewtest.BuildFixture("/C:/Users/")
	fs := multiRootFs{Fs: backing, roots: []string{"/C:", "/D:"}}
	cfg := fsview.NewConfig(fs, fsviewtest.NewRecorderFactory(), fsview.WithWatchService(false))
	tree := fsview.New(cfg)
	defer tree.Close()

	reached, err := tree.ExpandPath("/E:/Nothing", false, false)
	require.NoError(t, err)
	assert.Empty(t, reached)
}
