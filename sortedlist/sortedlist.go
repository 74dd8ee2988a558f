// Package sortedlist implements a generic, duplicate-free ordered sequence
// with a diffing synchronize-to-target primitive, modeled on the sorted
// child lists used throughout the filesystem tree controller.
package sortedlist

import (
	"errors"
	"sort"
)

// ErrUnsupported names mutating operations this list does not support
// (index-based insert/set, sort, iterator-remove). List has no such
// methods, so no List method returns it.
var ErrUnsupported = errors.New("sortedlist: operation not supported")

// Comparator reports the strict total order between a and b: negative if
// a sorts before b, zero if equal, positive if a sorts after b.
type Comparator[T any] func(a, b T) int

// EventKind identifies the shape of a change event emitted by List.
type EventKind int

const (
	// EventAdd carries a single insertion index.
	EventAdd EventKind = iota
	// EventRemove carries a single removal index.
	EventRemove
	// EventMultiAdd carries ascending post-deletion insertion indices.
	EventMultiAdd
	// EventMultiRemove carries descending removal indices.
	EventMultiRemove
	// EventBulkAdd carries the entire list, which was previously empty.
	EventBulkAdd
	// EventBulkClear carries the entire outgoing list, captured before
	// clearing.
	EventBulkClear
)

// Event is the immutable view of a single change delivered to an
// Observer. Observers must treat Items and Indices as read-only.
type Event[T any] struct {
	Kind    EventKind
	Indices []int
	Items   []T
}

// Observer receives change notifications. Implementations must not
// mutate the emitting List from within the callback.
type Observer[T any] func(Event[T])

// List is an ordered, duplicate-free sequence under a caller-supplied
// strict total order. All mutation goes through Add, Remove, RemoveAt,
// and SynchronizeTo; there is no index-based insert, no sort, and no
// iterator-remove.
type List[T any] struct {
	cmp      Comparator[T]
	items    []T
	observer Observer[T]
}

// New builds an empty List ordered by cmp. cmp must implement a strict
// total order; callers needing a natural order for comparable/ordered T
// should supply one explicitly, since Go generics provide no default
// comparator for arbitrary T.
func New[T any](cmp Comparator[T], observer Observer[T]) *List[T] {
	return &List[T]{cmp: cmp, observer: observer}
}

// Len returns the number of items currently held.
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the item at index i.
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// Items returns a defensive copy of the current contents in order.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// search performs a binary search for item, returning (index, true) if
// found, or (insertion point, false) otherwise.
func (l *List[T]) search(item T) (int, bool) {
	lo, hi := 0, len(l.items)
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := l.cmp(l.items[mid], item); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return mid, true
		}
	}
	return lo, false
}

// IndexOf returns the index of item, or -1 if absent.
func (l *List[T]) IndexOf(item T) int {
	if idx, found := l.search(item); found {
		return idx
	}
	return -1
}

// Contains reports whether item is present.
func (l *List[T]) Contains(item T) bool {
	_, found := l.search(item)
	return found
}

// Add inserts item at its sorted position if absent, emitting one
// EventAdd with the insertion index. Returns whether the list changed.
func (l *List[T]) Add(item T) bool {
	idx, found := l.search(item)
	if found {
		return false
	}
	l.items = append(l.items, item)
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = item
	l.emit(Event[T]{Kind: EventAdd, Indices: []int{idx}, Items: []T{item}})
	return true
}

// Remove locates item by binary search and removes it, emitting one
// EventRemove with the removal index. Returns whether the list changed.
func (l *List[T]) Remove(item T) bool {
	idx, found := l.search(item)
	if !found {
		return false
	}
	removed := l.items[idx]
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.emit(Event[T]{Kind: EventRemove, Indices: []int{idx}, Items: []T{removed}})
	return true
}

// RemoveAt removes the item at index idx without a lookup, emitting one
// EventRemove.
func (l *List[T]) RemoveAt(idx int) T {
	removed := l.items[idx]
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.emit(Event[T]{Kind: EventRemove, Indices: []int{idx}, Items: []T{removed}})
	return removed
}

func (l *List[T]) emit(ev Event[T]) {
	if l.observer != nil {
		l.observer(ev)
	}
}

// SynchronizeTo replaces the current content with target, deduplicated
// and sorted under the list's comparator, emitting the minimum set of
// events per the emission preference rule:
//
//   - empty -> non-empty yields one EventBulkAdd;
//   - non-empty -> empty yields one EventBulkClear (captured before
//     clearing);
//   - otherwise, one EventMultiRemove with descending indices for items
//     absent from target, then one EventMultiAdd with ascending
//     post-deletion indices for items newly present.
func (l *List[T]) SynchronizeTo(target []T) {
	sorted := dedupSort(target, l.cmp)

	if len(l.items) == 0 {
		if len(sorted) == 0 {
			return
		}
		l.items = sorted
		l.emit(Event[T]{Kind: EventBulkAdd, Items: l.Items()})
		return
	}
	if len(sorted) == 0 {
		outgoing := l.items
		l.items = nil
		l.emit(Event[T]{Kind: EventBulkClear, Items: outgoing})
		return
	}

	// Deletions: descending indices of items in l.items absent from sorted.
	var removeIdx []int
	var removeItems []T
	si := 0
	for i, cur := range l.items {
		for si < len(sorted) && l.cmp(sorted[si], cur) < 0 {
			si++
		}
		if si < len(sorted) && l.cmp(sorted[si], cur) == 0 {
			continue
		}
		removeIdx = append(removeIdx, i)
		removeItems = append(removeItems, cur)
	}
	if len(removeIdx) > 0 {
		// Apply in descending order, as required by the contract.
		descIdx := make([]int, len(removeIdx))
		descItems := make([]T, len(removeItems))
		for i := range removeIdx {
			descIdx[i] = removeIdx[len(removeIdx)-1-i]
			descItems[i] = removeItems[len(removeItems)-1-i]
		}
		remaining := make([]T, 0, len(l.items)-len(removeIdx))
		removeSet := make(map[int]bool, len(removeIdx))
		for _, idx := range removeIdx {
			removeSet[idx] = true
		}
		for i, cur := range l.items {
			if !removeSet[i] {
				remaining = append(remaining, cur)
			}
		}
		l.items = remaining
		l.emit(Event[T]{Kind: EventMultiRemove, Indices: descIdx, Items: descItems})
	}

	// Insertions: for each item in sorted absent from the now-reduced
	// l.items, record its position in that pre-insertion array (rawIdx),
	// used below to rebuild l.items by a two-pointer merge.
	var rawIdx []int
	var addItems []T
	ci := 0
	for _, want := range sorted {
		for ci < len(l.items) && l.cmp(l.items[ci], want) < 0 {
			ci++
		}
		if ci < len(l.items) && l.cmp(l.items[ci], want) == 0 {
			ci++
			continue
		}
		rawIdx = append(rawIdx, ci)
		addItems = append(addItems, want)
	}
	if len(rawIdx) > 0 {
		next := make([]T, 0, len(l.items)+len(rawIdx))
		ai, ci := 0, 0
		for i := 0; i < len(l.items)+len(rawIdx); i++ {
			if ai < len(rawIdx) && rawIdx[ai] == ci {
				next = append(next, addItems[ai])
				ai++
				continue
			}
			next = append(next, l.items[ci])
			ci++
		}
		l.items = next

		// The indices an Observer receives must apply correctly under a
		// naive sequential ascending-order insert into its own mirrored
		// array (the Observer contract), so each one needs to account for
		// the insertions already applied earlier in this same batch —
		// unlike rawIdx, which counts only pre-batch positions.
		emitIdx := make([]int, len(rawIdx))
		for k, r := range rawIdx {
			emitIdx[k] = r + k
		}
		l.emit(Event[T]{Kind: EventMultiAdd, Indices: emitIdx, Items: addItems})
	}
}

// dedupSort returns target sorted under cmp with adjacent duplicates
// collapsed (keeping the first occurrence).
func dedupSort[T any](target []T, cmp Comparator[T]) []T {
	sorted := make([]T, len(target))
	copy(sorted, target)
	sort.SliceStable(sorted, func(i, j int) bool { return cmp(sorted[i], sorted[j]) < 0 })
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, item := range sorted[1:] {
		if cmp(out[len(out)-1], item) != 0 {
			out = append(out, item)
		}
	}
	return out
}
