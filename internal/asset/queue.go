package asset

import "sync"

// Queue carries continuations from worker goroutines to the render thread.
// Post is safe from any goroutine; Drain runs on the render thread only.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Drain runs every continuation queued before the call, in post order.
// Continuations posted while draining wait for the next Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
