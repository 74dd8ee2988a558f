package watchhub

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewUnrequestedIsUnavailable(t *testing.T) {
	h := New(false)
	defer h.Close()

	assert.False(t, h.IsAvailable())
	assert.False(t, h.IsWatched("/anything"))
}

func TestNilHubIsSafeEverywhere(t *testing.T) {
	var h *Hub

	assert.False(t, h.IsAvailable())
	assert.False(t, h.IsWatched("/a"))
	assert.NotPanics(t, func() { h.Register("/a", func(EventKind, string) {}, nil) })
	assert.NotPanics(t, func() { h.Unregister("/a") })
	assert.NotPanics(t, func() { h.NotifyOverflow("/a") })
	assert.NoError(t, h.Close())
}

func TestRegisterDispatchesCreateAndDelete(t *testing.T) {
	dir := t.TempDir()
	h := New(true)
	defer h.Close()
	require.True(t, h.IsAvailable())

	events := make(chan struct {
		kind EventKind
		name string
	}, 8)
	h.Register(dir, func(kind EventKind, name string) {
		events <- struct {
			kind EventKind
			name string
		}{kind, name}
	}, nil)
	assert.True(t, h.IsWatched(dir))

	target := filepath.Join(dir, "child")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	select {
	case ev := <-events:
		assert.Equal(t, Create, ev.kind)
		assert.Equal(t, "child", ev.name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	require.NoError(t, os.Remove(target))

	select {
	case ev := <-events:
		assert.Equal(t, Delete, ev.kind)
		assert.Equal(t, "child", ev.name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}
}

func TestUnregisterStopsDispatch(t *testing.T) {
	dir := t.TempDir()
	h := New(true)
	defer h.Close()

	fired := make(chan struct{}, 1)
	h.Register(dir, func(EventKind, string) { fired <- struct{}{} }, nil)
	h.Unregister(dir)
	assert.False(t, h.IsWatched(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "child"), []byte("x"), 0644))

	select {
	case <-fired:
		t.Fatal("callback fired after Unregister")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRegisterReplacesExistingRegistration(t *testing.T) {
	dir := t.TempDir()
	h := New(true)
	defer h.Close()

	firstFired := false
	h.Register(dir, func(EventKind, string) { firstFired = true }, nil)

	secondFired := make(chan struct{}, 1)
	h.Register(dir, func(EventKind, string) { secondFired <- struct{}{} }, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "child"), []byte("x"), 0644))

	select {
	case <-secondFired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for replacement callback")
	}
	assert.False(t, firstFired, "the replaced registration's callback must not fire")
}

func TestNotifyOverflowThrottledByLimiter(t *testing.T) {
	h := New(true)
	defer h.Close()

	dir := t.TempDir()
	calls := 0
	h.Register(dir, func(kind EventKind, name string) {
		if kind == Overflow {
			calls++
		}
	}, func(string) *rate.Limiter { return rate.NewLimiter(rate.Every(time.Hour), 1) })

	h.NotifyOverflow(dir)
	h.NotifyOverflow(dir)
	h.NotifyOverflow(dir)

	assert.Equal(t, 1, calls, "only the first overflow notification should pass the limiter")
}

func TestNotifyOverflowUnknownPathIsNoop(t *testing.T) {
	h := New(true)
	defer h.Close()
	assert.NotPanics(t, func() { h.NotifyOverflow("/never/registered") })
}

// A real fsnotify queue overflow is attributed to the watcher as a
// whole, not to any one directory, so notifyAllOverflow (the handler
// loop() calls on fsnotify.ErrEventOverflow) must fan out Overflow to
// every currently registered path.
func TestNotifyAllOverflowFansOutToEveryRegisteredPath(t *testing.T) {
	h := New(true)
	defer h.Close()

	dirA, dirB := t.TempDir(), t.TempDir()
	var gotA, gotB int
	h.Register(dirA, func(kind EventKind, name string) {
		if kind == Overflow {
			gotA++
		}
	}, nil)
	h.Register(dirB, func(kind EventKind, name string) {
		if kind == Overflow {
			gotB++
		}
	}, nil)

	h.notifyAllOverflow()

	assert.Equal(t, 1, gotA)
	assert.Equal(t, 1, gotB)
}
