package fsview_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berndmichaely/lib-filesystem-view"
)

func buildZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestArchiveMountingPolicyRecognizesArchiveFiles(t *testing.T) {
	host := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(host, "/bundle.zip", buildZipBytes(t, map[string]string{"a.txt": "hi"}), 0644))
	require.NoError(t, afero.WriteFile(host, "/readme.txt", []byte("hi"), 0644))

	policy := fsview.NewArchiveMountingPolicy(fsview.DefaultNodePolicy(), host)

	assert.True(t, policy.IsCreatingNodeForFile("/bundle.zip"))
	assert.False(t, policy.IsCreatingNodeForFile("/readme.txt"))
}

func TestArchiveMountingPolicyOpensMountedFilesystem(t *testing.T) {
	host := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(host, "/bundle.zip", buildZipBytes(t, map[string]string{"a.txt": "hi"}), 0644))

	policy := fsview.NewArchiveMountingPolicy(fsview.DefaultNodePolicy(), host)

	mounted := policy.CreateFilesystemFor("/bundle.zip")
	require.NotNil(t, mounted)
	defer mounted.(io.Closer).Close()

	content, err := afero.ReadFile(mounted, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))
}

func TestArchiveMountingPolicyNonArchiveDelegatesToBase(t *testing.T) {
	host := afero.NewMemMapFs()
	policy := fsview.NewArchiveMountingPolicy(fsview.DefaultNodePolicy(), host)

	assert.Nil(t, policy.CreateFilesystemFor("/readme.txt"))
}

func TestArchiveMountingPolicyForPropagatesHostFs(t *testing.T) {
	host := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(host, "/sub/bundle.zip", buildZipBytes(t, map[string]string{"a.txt": "hi"}), 0644))

	policy := fsview.NewArchiveMountingPolicy(fsview.DefaultNodePolicy(), host)
	child := policy.PolicyFor("/sub")

	mounted := child.CreateFilesystemFor("/sub/bundle.zip")
	require.NotNil(t, mounted)
	defer mounted.(io.Closer).Close()
	assert.True(t, child.IsCreatingNodeForFile("/sub/bundle.zip"))
}
