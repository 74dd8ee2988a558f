// Package watchhub provides a single background notifier that
// multiplexes one filesystem-level watch primitive (fsnotify) across
// many registered directories, delivering per-directory Create/Delete/
// Overflow callbacks.
package watchhub

import (
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// EventKind identifies the shape of a callback delivered by Hub.
type EventKind int

const (
	// Create signals a new entry with the given name appeared.
	Create EventKind = iota
	// Delete signals an entry with the given name disappeared.
	Delete
	// Overflow signals that events may have been lost for the
	// registered path; the recipient should discard accumulated state
	// and re-read.
	Overflow
)

// Callback is invoked on the Hub's background goroutine. name is empty
// for Overflow.
type Callback func(kind EventKind, name string)

type registration struct {
	callback Callback
	limiter  *rate.Limiter
	id       string
}

// Hub owns the single fsnotify watcher for one filesystem and the
// mapping from watched directory path to its registration. The zero
// value is not usable; construct with New.
type Hub struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	regs     map[string]*registration
	available bool
	closed   bool

	log *stdlog.Logger
}

// New constructs a Hub. requested mirrors the host's
// request_watch_service configuration option; if false, or if the
// underlying platform cannot create a watcher, IsAvailable reports
// false and every other method becomes a no-op, matching the
// WatchUnavailable error kind's "stays off" behavior.
func New(requested bool) *Hub {
	h := &Hub{
		regs: make(map[string]*registration),
		log:  stdlog.New(os.Stderr, "[watchhub] ", stdlog.LstdFlags|stdlog.Lmsgprefix),
	}
	if !requested {
		return h
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		h.log.Println("[warn] watch service requested but unavailable:", err)
		return h
	}
	h.watcher = w
	h.available = true
	go h.loop()
	return h
}

// IsAvailable reports whether the hub was requested and the underlying
// watch primitive is usable.
func (h *Hub) IsAvailable() bool {
	if h == nil {
		return false
	}
	return h.available
}

// Register starts watching path, replacing any previous registration for
// the same path (idempotent in effect). limiterFor, if non-nil, receives
// path and should return the rate.Limiter governing how often Overflow
// re-reads are allowed to fire for that path; a nil return means
// unlimited. A nil Hub (the sentinel used inside mounted filesystems,
// where watching is never offered) makes this a no-op.
func (h *Hub) Register(path string, cb Callback, limiterFor func(string) *rate.Limiter) {
	if h == nil || !h.available {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.regs[path]; ok {
		h.watcher.Remove(path)
		delete(h.regs, path)
		_ = existing
	}

	var limiter *rate.Limiter
	if limiterFor != nil {
		limiter = limiterFor(path)
	}
	reg := &registration{callback: cb, limiter: limiter, id: uuid.New().String()}

	if err := h.watcher.Add(path); err != nil {
		if os.IsPermission(err) {
			h.log.Println("[info] access denied watching path:", path)
		} else {
			h.log.Println("[warn] watch registration failed:", path, err)
		}
		return
	}
	h.regs[path] = reg
	h.log.Println("[trace] watching", path, "correlation", reg.id)
}

// IsWatched reports whether path currently has an active registration.
func (h *Hub) IsWatched(path string) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.regs[path]
	return ok
}

// Unregister cancels the watch on path, if any.
func (h *Hub) Unregister(path string) {
	if h == nil || !h.available {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.regs[path]; ok {
		h.watcher.Remove(path)
		delete(h.regs, path)
		h.log.Println("[trace] stopped watching", path)
	}
}

// Close shuts down the underlying watch primitive; the background
// goroutine exits on its next wake-up.
func (h *Hub) Close() error {
	if h == nil || !h.available {
		return nil
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()
	return h.watcher.Close()
}

// loop is the background goroutine: it dispatches fsnotify events to
// the destination path's callback, discarding or throttling overflow
// storms through the per-path rate.Limiter, and exits once the watcher
// is closed.
func (h *Hub) loop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.dispatch(event)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			if err == fsnotify.ErrEventOverflow {
				h.notifyAllOverflow()
				continue
			}
			h.log.Println("[warn]", err)
		}
	}
}

// notifyAllOverflow fans an OS-queue overflow out to every currently
// registered path: fsnotify attributes ErrEventOverflow to the whole
// watcher, not to any one watched directory, so every node that might
// have missed an event is told to re-read rather than just one.
func (h *Hub) notifyAllOverflow() {
	h.mu.Lock()
	paths := make([]string, 0, len(h.regs))
	for p := range h.regs {
		paths = append(paths, p)
	}
	h.mu.Unlock()

	for _, p := range paths {
		h.NotifyOverflow(p)
	}
}

func (h *Hub) dispatch(event fsnotify.Event) {
	dir := filepath.Dir(event.Name)
	name := filepath.Base(event.Name)

	h.mu.Lock()
	reg, ok := h.regs[dir]
	h.mu.Unlock()
	if !ok {
		return
	}

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		reg.callback(Create, name)
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		reg.callback(Delete, name)
	}
}

// NotifyOverflow is invoked by a consumer (typically the filesystem
// abstraction wrapping an in-memory or virtual backend that cannot rely
// on fsnotify's own Remove/Create granularity) to force an Overflow
// callback for path, throttled by that path's limiter so a thrashing
// directory can't starve the caller.
func (h *Hub) NotifyOverflow(path string) {
	if h == nil || !h.available {
		return
	}
	h.mu.Lock()
	reg, ok := h.regs[path]
	h.mu.Unlock()
	if !ok {
		return
	}
	if reg.limiter != nil && !reg.limiter.Allow() {
		return
	}
	reg.callback(Overflow, "")
}
