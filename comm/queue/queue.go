package queue

import (
	"errors"
	"sync"

	"github.com/commlink-dev/commlink/comm/common"
)

var (
	// ErrFull is returned by a non-blocking Add on a queue at capacity.
	ErrFull = errors.New("queue: full")
	// ErrEmpty is returned by a non-blocking Remove on an empty queue.
	ErrEmpty = errors.New("queue: empty")
	// ErrClosed is returned once every producer has signaled finished and
	// the backlog is drained. It is the terminal signal consumers use to
	// exit their loop.
	ErrClosed = errors.New("queue: finished and drained")
)

// MessageQueue is a bounded FIFO of messages. Capacity 0 means unbounded.
//
// The queue tracks which of its producers have signaled that they will
// add no more items; once all of them have, the queue is finished and a
// drained queue answers every Remove with ErrClosed.
type MessageQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items    []common.Message
	capacity int

	numProducers int
	finished     map[int]struct{}
}

// New creates a message queue with the given capacity (0 = unbounded)
// expecting numProducers distinct producers (values < 1 mean one).
func New(capacity, numProducers int) *MessageQueue {
	if numProducers < 1 {
		numProducers = 1
	}
	q := &MessageQueue{
		capacity:     capacity,
		numProducers: numProducers,
		finished:     make(map[int]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// finishedLocked reports whether every registered producer has signaled.
// Callers must hold q.mu.
func (q *MessageQueue) finishedLocked() bool {
	return len(q.finished) >= q.numProducers
}

// Add appends msg to the queue. With blocking=true the caller is
// suspended while the queue is at capacity; with blocking=false ErrFull
// is returned instead. Adding to a finished queue returns ErrClosed.
func (q *MessageQueue) Add(msg common.Message, blocking bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.capacity > 0 && len(q.items) >= q.capacity {
		if q.finishedLocked() {
			return ErrClosed
		}
		if !blocking {
			return ErrFull
		}
		q.cond.Wait()
	}
	if q.finishedLocked() {
		return ErrClosed
	}

	q.items = append(q.items, msg)
	q.cond.Broadcast()
	return nil
}

// Remove pops the oldest message. With blocking=true the caller is
// suspended until an item arrives or the queue finishes; with
// blocking=false an empty queue returns ErrEmpty immediately.
// A finished and drained queue returns ErrClosed.
func (q *MessageQueue) Remove(blocking bool) (common.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.finishedLocked() {
			return common.Message{}, ErrClosed
		}
		if !blocking {
			return common.Message{}, ErrEmpty
		}
		q.cond.Wait()
	}

	msg := q.items[0]
	q.items[0] = common.Message{} // release the payload reference
	q.items = q.items[1:]
	q.cond.Broadcast()
	return msg, nil
}

// Empty reports whether the queue currently holds no messages.
func (q *MessageQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// EmptyAndNoMoreAdd reports whether the queue is drained and every
// producer has signaled finished.
func (q *MessageQueue) EmptyAndNoMoreAdd() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.finishedLocked()
}

// SignalFinished records that the given producer will add no more items.
// Once all registered producers have signaled, blocked Remove calls wake
// and start reporting ErrClosed as soon as the backlog is drained.
func (q *MessageQueue) SignalFinished(producerID int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished[producerID] = struct{}{}
	if q.finishedLocked() {
		q.cond.Broadcast()
	}
}

// WaitDrained suspends the caller until the queue holds no messages.
// It does not imply the queue is finished, only that the backlog of the
// moment has been consumed.
func (q *MessageQueue) WaitDrained() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) > 0 {
		q.cond.Wait()
	}
}
