// Package queue provides a bounded top-k heap for scored candidates.
package queue

// Item is a scored candidate.
type Item struct {
	Index uint32  // Index of the candidate in the searched set.
	Score float32 // Score is a similarity: higher is better.
}

// Better reports whether a ranks before b: higher score first, ties broken by
// the smaller index.
func Better(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// TopK retains the k best items pushed into it.
// The heap root is the worst retained item, so a full heap rejects a new item
// in O(1) when it does not beat the root.
type TopK struct {
	k     int
	items []Item // value-based storage
}

// NewTopK creates a heap that retains at most k items.
func NewTopK(k int) *TopK {
	q := &TopK{}
	q.Reset(k)
	return q
}

// Reset empties the heap and sets a new capacity.
func (q *TopK) Reset(k int) {
	if k < 0 {
		k = 0
	}
	q.k = k
	if cap(q.items) < k {
		q.items = make([]Item, 0, k)
	}
	q.items = q.items[:0]
}

// Len returns the number of retained items.
func (q *TopK) Len() int {
	return len(q.items)
}

// Worst returns the lowest ranked retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push offers an item to the heap.
// If the heap is full and the item does not beat the worst retained item, it is skipped.
func (q *TopK) Push(item Item) {
	if q.k == 0 {
		return
	}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return
	}
	if Better(item, q.items[0]) {
		q.items[0] = item
		q.siftDown(0)
	}
}

// Drain appends the retained items to dst ordered best first and empties the heap.
func (q *TopK) Drain(dst []Item) []Item {
	n := len(q.items)
	start := len(dst)
	for range n {
		dst = append(dst, Item{})
	}
	for i := n - 1; i >= 0; i-- {
		dst[start+i] = q.pop()
	}
	return dst
}

// less orders the heap so that the worst item is at the root.
func (q *TopK) less(i, j int) bool {
	return Better(q.items[j], q.items[i])
}

func (q *TopK) pop() Item {
	n := len(q.items)
	item := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.siftDown(0)
	}
	return item
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && q.less(right, left) {
			child = right
		}
		if !q.less(child, i) {
			break
		}
		q.items[i], q.items[child] = q.items[child], q.items[i]
		i = child
	}
}
