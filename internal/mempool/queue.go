// Package mempool holds pending transactions waiting for block inclusion
// in a bounded priority queue.
package mempool

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/xpeer-network/chasm/pkg/tx"
)

// Queue errors.
var (
	ErrQueueFull   = errors.New("pending queue is full")
	ErrQueueEmpty  = errors.New("pending queue is empty")
	ErrSlotInUse   = errors.New("pending slot already in use")
	ErrSlotInvalid = errors.New("pending slot out of range")
)

// Entry is a queued transaction. Slot is its stable storage index.
type Entry struct {
	Slot     uint32
	Priority uint64
	Tx       *tx.Signed

	seq uint64 // insertion order, breaks priority ties FIFO
}

// Queue is a max-priority queue with a fixed number of slots. Slots freed
// by Pop or eviction are recycled. It is not safe for concurrent use.
type Queue struct {
	entries entryHeap
	free    []uint32
	used    map[uint32]bool
	size    int
	seq     uint64
}

// New creates a queue with size slots.
func New(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		free: make([]uint32, 0, size),
		used: make(map[uint32]bool, size),
		size: size,
	}
	for i := 0; i < size; i++ {
		q.free = append(q.free, uint32(i))
	}
	return q
}

// Push inserts stx. When the queue is full the lowest-priority entry is
// evicted if priority is strictly greater than it; otherwise ErrQueueFull.
// Among equal lowest priorities the most recent entry is evicted.
func (q *Queue) Push(stx *tx.Signed, priority uint64) (Entry, *Entry, error) {
	var evicted *Entry
	if len(q.free) == 0 {
		i := q.lowest()
		if priority <= q.entries[i].Priority {
			return Entry{}, nil, fmt.Errorf("%w: priority %d does not beat minimum %d",
				ErrQueueFull, priority, q.entries[i].Priority)
		}
		e := heap.Remove(&q.entries, i).(*Entry)
		q.release(e.Slot)
		evicted = e
	}

	slot := q.free[0]
	q.free = q.free[1:]
	e := &Entry{Slot: slot, Priority: priority, Tx: stx, seq: q.seq}
	q.seq++
	q.used[slot] = true
	heap.Push(&q.entries, e)
	return *e, evicted, nil
}

// Restore places an entry at a known slot, used when rebuilding from storage.
func (q *Queue) Restore(slot uint32, stx *tx.Signed, priority uint64) error {
	if int(slot) >= q.size {
		return fmt.Errorf("%w: %d >= %d", ErrSlotInvalid, slot, q.size)
	}
	if q.used[slot] {
		return fmt.Errorf("%w: %d", ErrSlotInUse, slot)
	}
	for i, s := range q.free {
		if s == slot {
			q.free = append(q.free[:i], q.free[i+1:]...)
			break
		}
	}
	q.used[slot] = true
	heap.Push(&q.entries, &Entry{Slot: slot, Priority: priority, Tx: stx, seq: q.seq})
	q.seq++
	return nil
}

// Pop removes and returns the highest-priority entry.
func (q *Queue) Pop() (Entry, error) {
	if len(q.entries) == 0 {
		return Entry{}, ErrQueueEmpty
	}
	e := heap.Pop(&q.entries).(*Entry)
	q.release(e.Slot)
	return *e, nil
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Cap returns the number of slots.
func (q *Queue) Cap() int {
	return q.size
}

// Entries returns the queued entries in pop order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool { return higher(&out[i], &out[j]) })
	return out
}

func (q *Queue) release(slot uint32) {
	delete(q.used, slot)
	q.free = append(q.free, slot)
}

// lowest returns the heap index of the entry evicted next.
func (q *Queue) lowest() int {
	low := 0
	for i := 1; i < len(q.entries); i++ {
		if higher(q.entries[low], q.entries[i]) {
			low = i
		}
	}
	return low
}

// higher reports whether a pops before b.
func higher(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

type entryHeap []*Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return higher(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(*Entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
