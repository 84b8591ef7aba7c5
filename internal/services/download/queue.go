package download

import (
	"context"
	"sync"

	"clipstream/internal/domain"
)

// queue is an unbounded multi-producer/single-consumer FIFO of tasks.
// push never blocks; pop suspends until an item arrives or the context is
// cancelled. No priority, no reordering, no deduplication.
type queue struct {
	mu    sync.Mutex
	items []domain.Task
	// ready wakes the single consumer; capacity 1 so producers never block.
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(t domain.Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pop removes the oldest task, blocking until one is available. Returns
// ctx.Err() when the context is cancelled before an item arrives.
func (q *queue) pop(ctx context.Context) (domain.Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Keep the wakeup token alive for the next pop; a burst of
				// pushes may have collapsed into a single signal.
				q.signal()
			}
			return task, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.Task{}, ctx.Err()
		case <-q.ready:
		}
	}
}
