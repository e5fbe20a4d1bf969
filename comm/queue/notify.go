package queue

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the notifier's linked list
type node struct {
	id   int
	next atomic.Pointer[node]
}

// Notifier is a lock-free multi-producer single-consumer channel of peer
// IDs. Every receive worker posts the sender ID of each fully assembled
// message; the single consumer blocks on Recv() to learn that some queue
// gained an item. Post never blocks, so a slow consumer cannot stall the
// receive workers.
//
// Implementation: a linked list appended to with CAS, drained by one pump
// goroutine into an unbuffered output channel. Closing the notifier still
// delivers every ID posted before the close, then closes the channel.
type Notifier struct {
	head   atomic.Pointer[node]
	tail   atomic.Pointer[node]
	out    chan int
	pump   sync.WaitGroup
	closed atomic.Bool

	// Condition variable so the pump can sleep while the list is empty
	mu   sync.Mutex
	cond *sync.Cond
}

// NewNotifier creates a notifier and starts its pump goroutine.
func NewNotifier() *Notifier {
	// Sentinel node (dummy node at the beginning)
	sentinel := &node{}

	n := &Notifier{
		out: make(chan int),
	}
	n.cond = sync.NewCond(&n.mu)

	n.head.Store(sentinel)
	n.tail.Store(sentinel)

	n.pump.Add(1)
	go n.run()

	return n
}

// Post appends id to the notifier. Returns false if the notifier is
// already closed.
//
// Thread-safety: safe to call from any number of goroutines.
func (n *Notifier) Post(id int) bool {
	if n.closed.Load() {
		return false
	}

	newNode := &node{id: id}

	var backoff uint8
	for {
		tailNode := n.tail.Load()

		// try to atomically append our node to the current tail
		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// Appended. The tail CAS may lose to a helping producer,
				// which is fine - tail still converges.
				n.tail.CompareAndSwap(tailNode, newNode)

				// Wake the pump. Taken under the mutex so the signal
				// cannot fall between the pump's empty check and its Wait.
				n.mu.Lock()
				n.cond.Signal()
				n.mu.Unlock()
				return true
			}
		} else {
			// help update the tail pointer if another producer has already
			// appended a node but not yet moved tail
			n.tail.CompareAndSwap(tailNode, next)
		}

		// Exponential backoff under contention: spin first, yield later
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// run moves IDs from the linked list to the output channel.
func (n *Notifier) run() {
	defer n.pump.Done()
	defer close(n.out)

	for {
		hasItems := false

		for {
			head := n.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			id := next.id
			// move head pointer (frees the old node)
			n.head.Store(next)

			n.out <- id
		}

		// Exit once closed and fully drained
		if !hasItems && n.closed.Load() {
			return
		}

		if !hasItems {
			n.mu.Lock()
			// Double-check after acquiring the lock
			head := n.head.Load()
			if head.next.Load() == nil && !n.closed.Load() {
				n.cond.Wait()
			}
			n.mu.Unlock()
		}
	}
}

// Recv returns the receive-only channel of posted IDs. The channel is
// closed once Close has been called and every pending ID was delivered.
func (n *Notifier) Recv() <-chan int {
	return n.out
}

// Close stops the notifier. IDs already posted are still delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed.Store(true)
	n.cond.Signal()
	n.mu.Unlock()
}
