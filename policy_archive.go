package fsview

import (
	"github.com/spf13/afero"

	"github.com/berndmichaely/lib-filesystem-view/mount"
)

// archiveMountingPolicy decorates a base NodePolicy so that files with a
// recognized archive extension (.zip, .tar, .tar.gz) become mountable
// nodes, backed by the mount package's read-only afero.Fs. Hosts that
// want this behavior wrap their own policy with
// NewArchiveMountingPolicy; it is never the default (CreateFilesystemFor
// defaults to returning nothing).
type archiveMountingPolicy struct {
	NodePolicy
	hostFs afero.Fs
}

// NewArchiveMountingPolicy wraps base so that IsCreatingNodeForFile and
// CreateFilesystemFor recognize archive files under hostFs, leaving
// every other method delegated to base unchanged.
func NewArchiveMountingPolicy(base NodePolicy, hostFs afero.Fs) NodePolicy {
	return &archiveMountingPolicy{NodePolicy: base, hostFs: hostFs}
}

func (p *archiveMountingPolicy) IsCreatingNodeForFile(path string) bool {
	return mount.Mountable(path) || p.NodePolicy.IsCreatingNodeForFile(path)
}

func (p *archiveMountingPolicy) CreateFilesystemFor(path string) afero.Fs {
	if !mount.Mountable(path) {
		return p.NodePolicy.CreateFilesystemFor(path)
	}
	fs, err := mount.Open(p.hostFs, path)
	if err != nil {
		log.Warn("mount archive:", path, err)
		return nil
	}
	return fs
}

func (p *archiveMountingPolicy) PolicyFor(path string) NodePolicy {
	return &archiveMountingPolicy{NodePolicy: p.NodePolicy.PolicyFor(path), hostFs: p.hostFs}
}
