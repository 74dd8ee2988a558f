package mount

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// archiveFile adapts one decoded entry to afero.File. Every write-side
// method is rejected: archives mounted through this package are
// permanently read-only.
type archiveFile struct {
	fs     *archiveFs
	entry  *entry
	reader *bytes.Reader
}

func newArchiveFile(fs *archiveFs, e *entry) *archiveFile {
	return &archiveFile{fs: fs, entry: e, reader: bytes.NewReader(e.data)}
}

func (f *archiveFile) Name() string { return f.entry.name }

func (f *archiveFile) Read(p []byte) (int, error) {
	if f.entry.isDir {
		return 0, errors.New("mount: is a directory")
	}
	return f.reader.Read(p)
}

func (f *archiveFile) ReadAt(p []byte, off int64) (int, error) {
	if f.entry.isDir {
		return 0, errors.New("mount: is a directory")
	}
	return f.reader.ReadAt(p, off)
}

func (f *archiveFile) Seek(offset int64, whence int) (int64, error) {
	return f.reader.Seek(offset, whence)
}

func (f *archiveFile) Readdir(count int) ([]os.FileInfo, error) {
	children := f.fs.children(f.entry.name)
	if count > 0 && count < len(children) {
		children = children[:count]
	}
	out := make([]os.FileInfo, len(children))
	for i, c := range children {
		out[i] = fileInfo{c}
	}
	return out, nil
}

func (f *archiveFile) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

func (f *archiveFile) Stat() (os.FileInfo, error) { return fileInfo{f.entry}, nil }

func (f *archiveFile) Close() error { return nil }

func (f *archiveFile) Write([]byte) (int, error)              { return 0, errReadOnlyFile }
func (f *archiveFile) WriteAt([]byte, int64) (int, error)      { return 0, errReadOnlyFile }
func (f *archiveFile) WriteString(string) (int, error)         { return 0, errReadOnlyFile }
func (f *archiveFile) Truncate(int64) error                    { return errReadOnlyFile }
func (f *archiveFile) Sync() error                             { return nil }

var errReadOnlyFile = errors.New("mount: file is read-only")

var _ io.ReaderAt = (*archiveFile)(nil)
