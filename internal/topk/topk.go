// Package topk implements a bounded top-k selection heap.
package topk

import (
	"container/heap"
	"slices"
)

// Compile time check to ensure worstFirst satisfies the heap interface.
var _ heap.Interface = (*worstFirst[int])(nil)

// Item is a scored candidate.
type Item[T any] struct {
	Value T       // Value is the payload carried with the score.
	Score float64 // Score is the ranking key.
	Seq   int     // Seq is the arrival order, used to break ties.
}

// Heap keeps the k best items seen so far.
//
// When Descending is true larger scores are better (similarity), otherwise
// smaller scores are better (distance). Among equal scores the item offered
// first wins, so results follow enumeration order on ties.
type Heap[T any] struct {
	k    int
	seq  int
	heap worstFirst[T]
}

// New returns a heap that retains at most k items.
func New[T any](k int, descending bool) *Heap[T] {
	k = max(k, 0)
	return &Heap[T]{
		k: k,
		heap: worstFirst[T]{
			descending: descending,
			items:      make([]Item[T], 0, min(k, 1024)),
		},
	}
}

// Offer considers v with the given score. It reports whether v was retained.
func (h *Heap[T]) Offer(v T, score float64) bool {
	return h.OfferItem(Item[T]{Value: v, Score: score, Seq: h.seq})
}

// Len returns the number of retained items.
func (h *Heap[T]) Len() int { return h.heap.Len() }

// Worst returns the retained item that would be evicted next.
func (h *Heap[T]) Worst() (Item[T], bool) {
	if h.heap.Len() == 0 {
		var zero Item[T]
		return zero, false
	}
	return h.heap.items[0], true
}

// Sorted returns the retained items best first. The heap is left intact.
func (h *Heap[T]) Sorted() []Item[T] {
	out := slices.Clone(h.heap.items)
	slices.SortFunc(out, func(a, b Item[T]) int {
		switch {
		case h.heap.better(a, b):
			return -1
		case h.heap.better(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Merge offers every retained item of other. Seq values are compared as-is,
// so both heaps must number items from the same enumeration.
func (h *Heap[T]) Merge(other *Heap[T]) {
	for _, it := range other.heap.items {
		h.OfferItem(it)
	}
}

// OfferItem offers a pre-sequenced item. Use it when candidates were scored
// out of order and Seq already holds the enumeration position.
func (h *Heap[T]) OfferItem(it Item[T]) bool {
	if it.Seq >= h.seq {
		h.seq = it.Seq + 1
	}
	if h.k == 0 {
		return false
	}
	if h.heap.Len() < h.k {
		heap.Push(&h.heap, it)
		return true
	}
	if !h.heap.better(it, h.heap.items[0]) {
		return false
	}
	h.heap.items[0] = it
	heap.Fix(&h.heap, 0)
	return true
}

// worstFirst implements heap.Interface with the worst item at the root.
type worstFirst[T any] struct {
	descending bool
	items      []Item[T]
}

// better reports whether a ranks before b.
func (w *worstFirst[T]) better(a, b Item[T]) bool {
	if a.Score != b.Score {
		if w.descending {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	return a.Seq < b.Seq
}

// Len returns the number of elements in the heap.
func (w *worstFirst[T]) Len() int { return len(w.items) }

// Less orders the worst item first.
func (w *worstFirst[T]) Less(i, j int) bool { return w.better(w.items[j], w.items[i]) }

// Swap swaps the elements with indexes i and j.
func (w *worstFirst[T]) Swap(i, j int) { w.items[i], w.items[j] = w.items[j], w.items[i] }

// Push adds x to the heap.
func (w *worstFirst[T]) Push(x any) {
	w.items = append(w.items, x.(Item[T]))
}

// Pop removes and returns the last element.
func (w *worstFirst[T]) Pop() any {
	old := w.items
	n := len(old)
	item := old[n-1]
	var zero Item[T]
	old[n-1] = zero // Avoid memory leak
	w.items = old[:n-1]
	return item
}
