package persist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	state := State{ExpandedPaths: []string{"/a", "/a/b", "/a/b/c"}, SelectedIndex: 2}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, state))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, state, got)
	path, ok := got.SelectedPath()
	assert.True(t, ok)
	assert.Equal(t, "/a/b/c", path)
}

func TestNoSelection(t *testing.T) {
	state := State{ExpandedPaths: []string{"/"}, SelectedIndex: -1}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, state))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.False(t, got.HasSelection())
}

func TestEmptyInput(t *testing.T) {
	got, err := Read(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.False(t, got.HasSelection())
	assert.Empty(t, got.ExpandedPaths)
}
