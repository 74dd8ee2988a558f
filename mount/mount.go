// Package mount provides read-only afero.Fs implementations over archive
// files (zip, tar, tar.gz), used by NodePolicy.CreateFilesystemFor to
// mount a file node's contents as a pseudo-filesystem.
package mount

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jpillora/archive"
	"github.com/spf13/afero"
)

// Mountable reports whether path carries a recognized archive extension,
// using jpillora/archive's own extension matcher (a regex over
// .tar/.tar.gz/.zip) so mount detection agrees with what that library
// considers an archive, even though this package uses the standard
// library to read the contents back out.
func Mountable(path string) bool {
	return archive.ValidExtension(path)
}

// Fs is a read-only afero.Fs exposing an archive's contents, with a
// Close method. The contents are decoded into memory when the archive is
// opened; Close releases nothing and always returns nil.
type Fs interface {
	afero.Fs
	io.Closer
}

// Open reads the archive at path from the host filesystem and returns a
// read-only afero.Fs exposing its contents rooted at "/". The whole
// archive is decoded up front; closing the returned Fs is a no-op.
func Open(hostFs afero.Fs, filePath string) (Fs, error) {
	f, err := hostFs.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	switch archive.Extension(filePath) {
	case ".zip":
		return newZipFs(data)
	case ".tar":
		return newTarFs(bytes.NewReader(data), false)
	case ".tar.gz":
		return newTarFs(bytes.NewReader(data), true)
	default:
		return nil, errors.New("mount: unsupported archive extension: " + filePath)
	}
}

type entry struct {
	name    string // absolute path, "/"-rooted
	isDir   bool
	size    int64
	mode    os.FileMode
	modTime time.Time
	data    []byte
}

// archiveFs is a read-only, in-memory afero.Fs built by fully decoding
// an archive up front; it never re-touches the originating host file.
type archiveFs struct {
	entries map[string]*entry
}

func newZipFs(data []byte) (*archiveFs, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	fs := &archiveFs{entries: map[string]*entry{"/": {name: "/", isDir: true, mode: os.ModeDir | 0555}}}
	for _, zf := range zr.File {
		name := normalizeName(zf.Name)
		if zf.FileInfo().IsDir() {
			fs.addDir(name, zf.ModTime())
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		fs.ensureParents(name, zf.ModTime())
		fs.entries[name] = &entry{
			name: name, size: int64(len(content)), mode: 0444,
			modTime: zf.ModTime(), data: content,
		}
	}
	return fs, nil
}

func newTarFs(r io.Reader, gzipped bool) (*archiveFs, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	tr := tar.NewReader(r)
	fs := &archiveFs{entries: map[string]*entry{"/": {name: "/", isDir: true, mode: os.ModeDir | 0555}}}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		name := normalizeName(hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			fs.addDir(name, hdr.ModTime)
		case tar.TypeReg:
			content, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			fs.ensureParents(name, hdr.ModTime)
			fs.entries[name] = &entry{
				name: name, size: int64(len(content)), mode: 0444,
				modTime: hdr.ModTime, data: content,
			}
		}
	}
	return fs, nil
}

func normalizeName(name string) string {
	name = strings.TrimSuffix(name, "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return path.Clean(name)
}

func (fs *archiveFs) addDir(name string, modTime time.Time) {
	fs.ensureParents(name, modTime)
	if _, ok := fs.entries[name]; !ok {
		fs.entries[name] = &entry{name: name, isDir: true, mode: os.ModeDir | 0555, modTime: modTime}
	}
}

func (fs *archiveFs) ensureParents(name string, modTime time.Time) {
	dir := path.Dir(name)
	for dir != "/" && dir != "." {
		if _, ok := fs.entries[dir]; !ok {
			fs.entries[dir] = &entry{name: dir, isDir: true, mode: os.ModeDir | 0555, modTime: modTime}
		}
		dir = path.Dir(dir)
	}
}

// Roots reports the single trivial root of every mounted archive; the
// owning NodeController consults this to apply the single-root skip.
func (fs *archiveFs) Roots() []string { return []string{"/"} }

func (fs *archiveFs) Open(name string) (afero.File, error) {
	e, ok := fs.entries[normalizeName(name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return newArchiveFile(fs, e), nil
}

func (fs *archiveFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		return nil, errors.New("mount: filesystem is read-only")
	}
	return fs.Open(name)
}

func (fs *archiveFs) Stat(name string) (os.FileInfo, error) {
	e, ok := fs.entries[normalizeName(name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return fileInfo{e}, nil
}

func (fs *archiveFs) Name() string { return "mount.archiveFs" }

func (fs *archiveFs) Close() error { return nil }

func (fs *archiveFs) Create(string) (afero.File, error)      { return nil, errors.New("mount: read-only") }
func (fs *archiveFs) Mkdir(string, os.FileMode) error         { return errors.New("mount: read-only") }
func (fs *archiveFs) MkdirAll(string, os.FileMode) error      { return errors.New("mount: read-only") }
func (fs *archiveFs) Remove(string) error                     { return errors.New("mount: read-only") }
func (fs *archiveFs) RemoveAll(string) error                  { return errors.New("mount: read-only") }
func (fs *archiveFs) Rename(string, string) error              { return errors.New("mount: read-only") }
func (fs *archiveFs) Chmod(string, os.FileMode) error          { return errors.New("mount: read-only") }
func (fs *archiveFs) Chown(string, int, int) error              { return errors.New("mount: read-only") }
func (fs *archiveFs) Chtimes(string, time.Time, time.Time) error { return errors.New("mount: read-only") }

// children returns the direct children of dir, sorted by name, used by
// afero.ReadDir through the File.Readdir implementation.
func (fs *archiveFs) children(dir string) []*entry {
	dir = normalizeName(dir)
	var out []*entry
	for name, e := range fs.entries {
		if name == dir {
			continue
		}
		if path.Dir(name) == dir {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

type fileInfo struct{ *entry }

func (fi fileInfo) Name() string {
	if fi.name == "/" {
		return "/"
	}
	return path.Base(fi.name)
}
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() os.FileMode  { return fi.mode }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return fi.isDir }
func (fi fileInfo) Sys() interface{}   { return nil }
