package orchestrator

import (
	"container/heap"
	"sync"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// queueItem wraps a task with the monotonic sequence number it was
// submitted with, so equal-priority tasks remain FIFO (priority is a
// stable tiebreaker, not the primary order).
type queueItem struct {
	task model.AgentTask
	seq  int64
}

// priorityHeap orders by priority descending, then by submission
// sequence ascending (FIFO within a priority tier).
type priorityHeap []queueItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x interface{}) { *h = append(*h, x.(queueItem)) }
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// taskQueue is a bounded, priority-ordered FIFO. Enqueue fails (returns
// false) rather than blocking or dropping silently when the queue is
// full. Dequeue blocks until an item is available or the queue is
// closed.
type taskQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    priorityHeap
	capacity int
	nextSeq  int64
	closed   bool
}

func newTaskQueue(capacity int) *taskQueue {
	q := &taskQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.items)
	return q
}

// Enqueue adds a task, returning false if the queue is at capacity or
// closed.
func (q *taskQueue) Enqueue(task model.AgentTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) >= q.capacity {
		return false
	}
	q.nextSeq++
	heap.Push(&q.items, queueItem{task: task, seq: q.nextSeq})
	q.cond.Signal()
	return true
}

// Dequeue blocks until a task is available, the queue is closed and
// drained (ok=false), or Close is called. Close wakes every blocked
// Dequeue.
func (q *taskQueue) Dequeue() (model.AgentTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return model.AgentTask{}, false
		}
		q.cond.Wait()
	}
	item := heap.Pop(&q.items).(queueItem)
	return item.task, true
}

// Close marks the queue closed and wakes every blocked Dequeue; items
// already queued can still be drained via Dequeue until empty.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the current queue depth.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
