// Package bus carries market events from the parsing thread to the
// processing thread through a bounded single-producer single-consumer
// queue. A full queue drops events by design: bounded loss is preferred
// over backpressure on the feed.
package bus

import (
	"sync/atomic"

	"main/internal/model"
)

// DefaultCapacity is the default ring capacity (slots, one withheld).
const DefaultCapacity = 1 << 18

// Queue is a bounded, non-blocking SPSC event queue. Exactly one
// goroutine may call TryPush/Close and exactly one may call TryPop.
//
// The channel is allocated one slot short of the requested capacity so
// that a ring of capacity C holds at most C-1 events, mirroring the
// classic two-index ring where one slot disambiguates full from empty.
type Queue struct {
	ch     chan model.MarketEvent
	cap    int
	closed uint32
}

// NewQueue allocates a queue. capacity is rounded up to a power of two
// and must leave at least one usable slot.
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}
	capacity = nextPowerOfTwo(capacity)
	return &Queue{
		ch:  make(chan model.MarketEvent, capacity-1),
		cap: capacity,
	}
}

// TryPush enqueues an event without blocking. It reports false when the
// queue is full or closed; the event is then dropped by the caller.
func (q *Queue) TryPush(e model.MarketEvent) bool {
	if atomic.LoadUint32(&q.closed) != 0 {
		return false
	}
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// TryPop dequeues the oldest event without blocking. It reports false
// when nothing is available right now.
func (q *Queue) TryPop() (model.MarketEvent, bool) {
	select {
	case e, ok := <-q.ch:
		if !ok {
			return model.MarketEvent{}, false
		}
		return e, true
	default:
		return model.MarketEvent{}, false
	}
}

// Close stops the queue from accepting new events. Events already
// admitted remain poppable; the producer must not push afterwards.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Drained reports whether the queue is closed and every admitted event
// has been popped. The consumer exits its poll loop on this condition.
func (q *Queue) Drained() bool {
	return atomic.LoadUint32(&q.closed) != 0 && len(q.ch) == 0
}

// Len returns the number of events currently resident.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the ring capacity; usable slots are Cap()-1.
func (q *Queue) Cap() int {
	return q.cap
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
