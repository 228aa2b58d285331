package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// Queue is a bounded FIFO of feed events between the subscription loop and
// its observers. When full, Push evicts the oldest event so the producer
// never blocks.
type Queue struct {
	mu    sync.Mutex
	buf   []domain.FeedEvent
	head  int
	size  int
	ready chan struct{}

	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		buf:   make([]domain.FeedEvent, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends ev and reports whether an older event was evicted.
func (q *Queue) Push(ev domain.FeedEvent) bool {
	q.mu.Lock()
	evicted := false
	if q.size == len(q.buf) {
		q.buf[q.head] = domain.FeedEvent{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		evicted = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = ev
	q.size++
	q.mu.Unlock()

	if evicted {
		q.dropped.Add(1)
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return evicted
}

// TryPop removes the oldest event without blocking.
func (q *Queue) TryPop() (domain.FeedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return domain.FeedEvent{}, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = domain.FeedEvent{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return ev, true
}

// Pop blocks until an event is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (domain.FeedEvent, error) {
	for {
		if ev, ok := q.TryPop(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return domain.FeedEvent{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns how many events were evicted since creation.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
