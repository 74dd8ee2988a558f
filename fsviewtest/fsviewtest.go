// Package fsviewtest provides test helpers for exercising fsview
// against an in-memory filesystem: a recording View implementation, and
// golden-fixture (de)serialization for expected tree shapes.
package fsviewtest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/berndmichaely/lib-filesystem-view"
)

// Recorder is a fsview.View implementation that records every call it
// receives, guarded by its own mutex since the core may call into it
// from the watch goroutine as well as the caller. It is the Go
// counterpart of the original library's unit-test observation hook.
type Recorder struct {
	mu sync.Mutex

	Path     string
	Name     string
	Expanded bool
	Leaf     bool
	Children []*Recorder

	// Toggle is the callback the core handed back at construction; tests
	// drive interactive expand/collapse of this specific node by calling
	// it directly, the way a UI tree widget would on a user click.
	Toggle func(expand bool)

	Log []string
}

// NewRecorderFactory returns a fsview.ViewFactory that produces a fresh
// *Recorder per node, remembering the toggle callback the core supplies.
func NewRecorderFactory() fsview.ViewFactory {
	return func(path, name string, toggle func(bool)) fsview.View {
		return &Recorder{Path: path, Name: name, Toggle: toggle}
	}
}

func (r *Recorder) record(format string, args ...interface{}) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// Registry tracks every Recorder created by its factory, keyed by path,
// so tests can reach into the tree by path without the host having to
// maintain its own UI-side index.
type Registry struct {
	mu        sync.Mutex
	byPath    map[string]*Recorder
}

// NewRegistry returns a Registry and the fsview.ViewFactory it observes.
func NewRegistry() (*Registry, fsview.ViewFactory) {
	reg := &Registry{byPath: make(map[string]*Recorder)}
	factory := func(path, name string, toggle func(bool)) fsview.View {
		r := &Recorder{Path: path, Name: name, Toggle: toggle}
		reg.mu.Lock()
		reg.byPath[path] = r
		reg.mu.Unlock()
		return r
	}
	return reg, factory
}

// ByPath returns the Recorder constructed for path, if any.
func (r *Registry) ByPath(path string) (*Recorder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byPath[path]
	return rec, ok
}

func asRecorders(views []fsview.View) []*Recorder {
	out := make([]*Recorder, len(views))
	for i, v := range views {
		out[i] = v.(*Recorder)
	}
	return out
}

// InsertSubnodes implements fsview.View.
func (r *Recorder) InsertSubnodes(indices []int, children []fsview.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := asRecorders(children)
	for i, idx := range indices {
		r.Children = append(r.Children, nil)
		copy(r.Children[idx+1:], r.Children[idx:])
		r.Children[idx] = recs[i]
	}
	r.record("insert@%v", indices)
}

// AddAllSubnodes implements fsview.View.
func (r *Recorder) AddAllSubnodes(children []fsview.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Children = append(r.Children, asRecorders(children)...)
	r.record("bulk-add(%d)", len(children))
}

// RemoveSubnodes implements fsview.View.
func (r *Recorder) RemoveSubnodes(indices []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, idx := range indices {
		r.Children = append(r.Children[:idx], r.Children[idx+1:]...)
	}
	r.record("remove@%v", indices)
}

// Clear implements fsview.View.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Children = nil
	r.record("clear")
}

// SetExpanded implements fsview.View.
func (r *Recorder) SetExpanded(flag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Expanded = flag
	r.record("expanded=%v", flag)
}

// SetLeaf implements fsview.View.
func (r *Recorder) SetLeaf(flag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Leaf = flag
	r.record("leaf=%v", flag)
}

// Snapshot returns the current child names in display order, for
// assertions that don't care about full recursive shape.
func (r *Recorder) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.Children))
	for i, c := range r.Children {
		names[i] = c.Name
	}
	return names
}

// Golden is the serializable shape of a Recorder subtree, used for
// golden-fixture comparisons via yaml.v2.
type Golden struct {
	Name     string   `yaml:"name"`
	Leaf     bool     `yaml:"leaf,omitempty"`
	Children []Golden `yaml:"children,omitempty"`
}

// ToGolden converts a Recorder subtree into its comparable Golden form,
// sorting children by name so fixture files don't depend on insertion
// order.
func (r *Recorder) ToGolden() Golden {
	r.mu.Lock()
	children := make([]*Recorder, len(r.Children))
	copy(children, r.Children)
	r.mu.Unlock()

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	g := Golden{Name: r.Name, Leaf: r.Leaf}
	for _, c := range children {
		g.Children = append(g.Children, c.ToGolden())
	}
	return g
}

// MarshalGolden renders a Golden tree as YAML, for writing or comparing
// fixture files.
func MarshalGolden(g Golden) (string, error) {
	out, err := yaml.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// UnmarshalGolden parses a YAML fixture back into a Golden tree.
func UnmarshalGolden(data string) (Golden, error) {
	var g Golden
	err := yaml.Unmarshal([]byte(data), &g)
	return g, err
}

// BuildFixture populates an afero.MemMapFs from a flat list of
// slash-separated paths. Paths ending in "/" are created as directories
// (and their ancestors); others are created as empty regular files with
// their ancestor directories.
func BuildFixture(paths ...string) afero.Fs {
	fs := afero.NewMemMapFs()
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			_ = fs.MkdirAll(p, 0755)
			continue
		}
		_ = fs.MkdirAll(parentDir(p), 0755)
		f, _ := fs.Create(p)
		if f != nil {
			f.Close()
		}
	}
	return fs
}

func parentDir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}
