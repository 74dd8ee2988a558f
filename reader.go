package fsview

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// readRoots enumerates the roots of fs. Most afero filesystems (disk,
// in-memory) have exactly one root, the empty path rendered as "/"; a
// filesystem wrapping a drive-letter host may enumerate several. afero
// itself has no roots-enumeration API, so this uses fsys's optional
// Roots() []string method when it has one and otherwise returns the
// single conventional root "/".
func readRoots(fsys afero.Fs) []string {
	if lister, ok := fsys.(interface{ Roots() []string }); ok {
		return lister.Roots()
	}
	return []string{"/"}
}

// readDirectory lists the entries of path through fsys, applying
// policy's filter predicates. Non-directory, non-regular paths and
// policy-rejected paths are skipped. Returns nil and logs at info/warning
// on AccessDenied/IoFailure respectively, matching §7's propagation
// policy: errors here never escape to the caller.
func readDirectory(fsys afero.Fs, dirPath string, policy NodePolicy) []DirectoryEntry {
	entries, err := afero.ReadDir(fsys, dirPath)
	if err != nil {
		if os.IsPermission(err) {
			log.Info("access denied:", dirPath)
		} else if err != io.EOF {
			log.Warn("read directory:", dirPath, err)
		}
		return nil
	}

	var out []DirectoryEntry
	for _, info := range entries {
		childPath := filepath.Join(dirPath, info.Name())
		mode := info.Mode()
		if policy.LinkOptions() == FollowLinks && mode&os.ModeSymlink != 0 {
			if resolved, err := resolveSymlink(fsys, childPath); err == nil {
				mode = resolved
			}
		}
		switch {
		case mode.IsDir():
			if policy.IsCreatingNodeForDirectory(childPath) {
				out = append(out, NewSubdirectoryEntry(childPath))
			}
		case mode.IsRegular():
			if policy.IsCreatingNodeForFile(childPath) {
				out = append(out, NewRegularFileEntry(childPath))
			}
		}
	}
	return out
}

// resolveSymlink stats through a symlink with fsys.Stat; afero.Fs has no
// first-class symlink API, so when that Stat fails the caller keeps the
// symlink's own mode.
func resolveSymlink(fsys afero.Fs, linkPath string) (os.FileMode, error) {
	info, err := fsys.Stat(linkPath)
	if err != nil {
		return 0, err
	}
	return info.Mode(), nil
}

// readFilesystemRoots implements the "filesystem-roots read" constructor:
// when skipSingleRoot holds and fsys enumerates exactly one trivial root
// "/", it switches to a directory read on that root instead of returning
// a single FilesystemRootEntry.
func readFilesystemRoots(fsys afero.Fs, skipSingleRoot bool, policy NodePolicy) []DirectoryEntry {
	roots := readRoots(fsys)
	if skipSingleRoot && len(roots) == 1 && roots[0] == "/" {
		return readDirectory(fsys, "/", policy)
	}
	out := make([]DirectoryEntry, 0, len(roots))
	for _, r := range roots {
		out = append(out, NewFilesystemRootEntry(r))
	}
	return out
}
