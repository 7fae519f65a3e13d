// Package priorityqueue implements a container/heap-backed ordering: a
// heap keyed by a strict comparator, repurposed to rank pending lots by
// (hot_lot, priority, created_at) for the Scheduler's "next five
// prioritized lots" view.
package priorityqueue

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Item is one entry ranked by the queue: just enough information to
// answer "what's next" without round-tripping the full Lot.
type Item struct {
	LotID      uuid.UUID
	HotLot     bool
	Priority   int
	CreatedAt  time.Time
	index      int
}

// LotQueue orders Items by the lexicographic rule:
// hot lots first, then ascending priority (1 highest), then FIFO by
// creation time.
type LotQueue struct {
	items lotHeap
}

func NewLotQueue() *LotQueue {
	q := &LotQueue{items: lotHeap{}}
	heap.Init(&q.items)
	return q
}

func (q *LotQueue) Push(item Item) {
	heap.Push(&q.items, item)
}

// Pop removes and returns the highest-priority item.
func (q *LotQueue) Pop() (Item, bool) {
	if q.items.Len() == 0 {
		return Item{}, false
	}
	it := heap.Pop(&q.items).(Item)
	return it, true
}

func (q *LotQueue) Len() int { return q.items.Len() }

// Top returns the first n items in priority order without mutating the
// queue, for read-only views like GET /dispatch/queue.
func (q *LotQueue) Top(n int) []Item {
	clone := make(lotHeap, len(q.items.data))
	copy(clone, q.items.data)
	cq := &lotHeap{data: clone}
	heap.Init(cq)

	out := make([]Item, 0, n)
	for i := 0; i < n && cq.Len() > 0; i++ {
		out = append(out, heap.Pop(cq).(Item))
	}
	return out
}

type lotHeap struct {
	data []Item
}

func (h lotHeap) Len() int { return len(h.data) }

func (h lotHeap) Less(i, j int) bool {
	a, b := h.data[i], h.data[j]
	if a.HotLot != b.HotLot {
		return a.HotLot // hot lots sort first
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority // 1 before 5
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (h lotHeap) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.data[i].index = i
	h.data[j].index = j
}

func (h *lotHeap) Push(x interface{}) {
	item := x.(Item)
	item.index = len(h.data)
	h.data = append(h.data, item)
}

func (h *lotHeap) Pop() interface{} {
	old := h.data
	n := len(old)
	item := old[n-1]
	old[n-1] = Item{}
	item.index = -1
	h.data = old[:n-1]
	return item
}
