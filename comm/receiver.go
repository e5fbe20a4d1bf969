package comm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/commlink-dev/commlink/comm/common"
	"github.com/commlink-dev/commlink/comm/queue"
	"github.com/commlink-dev/commlink/comm/socket"
	"github.com/commlink-dev/commlink/comm/wire"
)

// socketReceiver implements the Receiver interface over TCP.
//
// The i-th accepted connection is sender i. Senders are partitioned into
// shards by index modulo the worker count; each shard runs one receive
// loop multiplexing its sockets. All loops share one Notifier, which is
// how a single consumer learns that some queue gained a message without
// scanning every queue under lock.
type socketReceiver struct {
	config common.Config

	listener   *socket.Listener
	numSenders int
	conns      []*socket.Conn
	queues     []*queue.MessageQueue
	notify     *queue.Notifier
	loops      sync.WaitGroup

	// round-robin fairness cursor, owned by the consuming goroutine
	cursor int
}

func newSocketReceiver(config common.Config) *socketReceiver {
	return &socketReceiver{config: config.WithDefaults()}
}

func (r *socketReceiver) Wait(addr string, numSenders int) error {
	if numSenders <= 0 {
		Logger.Panicf("number of senders must be positive, got %d", numSenders)
	}
	address := common.ParseAddress(addr)

	l, err := socket.Listen(address, r.config)
	if err != nil {
		Logger.Panicf("cannot listen on %s: %v", address, err)
	}
	r.listener = l

	n := r.config.MaxThreadCount
	if n == 0 || n > numSenders {
		n = numSenders
	}

	r.numSenders = numSenders
	r.conns = make([]*socket.Conn, numSenders)
	r.queues = make([]*queue.MessageQueue, numSenders)
	r.notify = queue.NewNotifier()

	// sender indices per shard
	shards := make([][]int, n)
	for i := 0; i < numSenders; i++ {
		conn, aerr := l.Accept()
		if aerr != nil {
			Logger.Warningf("error accepting sender %d: %v", i, aerr)
			return fmt.Errorf("failed to accept sender %d/%d: %v", i+1, numSenders, aerr)
		}
		r.conns[i] = conn
		r.queues[i] = queue.New(r.config.QueueCapacity, 1)
		shards[i%n] = append(shards[i%n], i)
		Logger.Infof("accepted sender %d/%d from %s", i+1, numSenders, conn.RemoteAddr())
	}

	for shard := 0; shard < n; shard++ {
		r.loops.Add(1)
		go r.recvLoop(shards[shard])
	}

	// the notifier outlives the loops just long enough to deliver the
	// signals posted before the last stream ended
	go func() {
		r.loops.Wait()
		r.notify.Close()
	}()

	Logger.Infof("receiver on %s accepted %d senders using %d workers", address, numSenders, n)
	return nil
}

func (r *socketReceiver) Recv() (common.Message, int, error) {
	if _, ok := <-r.notify.Recv(); !ok {
		// every stream ended and every signaled message was consumed
		return common.Message{}, -1, queue.ErrClosed
	}

	// One signal means at least one queue holds a message. Scan from the
	// cursor so that no sender is starved while others keep producing.
	for {
		for i := 0; i < r.numSenders; i++ {
			sendID := (r.cursor + i) % r.numSenders
			msg, err := r.queues[sendID].Remove(false)
			if err != nil {
				// empty or finished, try the next queue
				continue
			}
			r.cursor = (sendID + 1) % r.numSenders
			return msg, sendID, nil
		}
	}
}

func (r *socketReceiver) RecvFrom(sendID int) (common.Message, error) {
	if sendID < 0 || sendID >= r.numSenders {
		Logger.Panicf("sender id %d out of range [0, %d)", sendID, r.numSenders)
	}
	// consume one unit of the shared signal; if the notifier is already
	// closed the queue itself reports the terminal state
	<-r.notify.Recv()
	return r.queues[sendID].Remove(true)
}

func (r *socketReceiver) Finalize() {
	for sendID, q := range r.queues {
		q.WaitDrained()
		q.SignalFinished(sendID)
	}
	r.loops.Wait()
	for _, conn := range r.conns {
		conn.Close()
	}
	r.listener.Close()
}

// recvLoop multiplexes one shard's sockets, assembles frames through the
// per-sender receive contexts and publishes completed messages.
func (r *socketReceiver) recvLoop(senderIDs []int) {
	defer r.loops.Done()

	mux := socket.NewMultiplexer()
	ctxs := make(map[int]*wire.RecvContext, len(senderIDs))
	for _, sendID := range senderIDs {
		mux.AddSocket(r.conns[sendID], sendID)
		ctxs[sendID] = wire.NewRecvContext()
	}

	for {
		conn, sendID := mux.Wait()
		q := r.queues[sendID]

		if q.EmptyAndNoMoreAdd() {
			// the consumer is done with this sender
			if mux.RemoveSocket(sendID) == 0 {
				return
			}
			continue
		}

		ctx := ctxs[sendID]
		if ctx.AwaitingHeader() {
			size, err := wire.ReadSize(conn)
			if err != nil {
				if errors.Is(err, socket.ErrWouldBlock) {
					// spurious wakeup, nothing to read yet
					continue
				}
				Logger.Panicf("failed to read frame header from sender %d: %v", sendID, err)
			}
			switch {
			case size == 0:
				// end-of-stream: this sender will produce no more messages
				q.SignalFinished(sendID)
				if mux.RemoveSocket(sendID) == 0 {
					return
				}
				continue
			case size < 0:
				Logger.Panicf("sender %d announced negative frame length %d", sendID, size)
			}
			ctx.Begin(size)
		}

		if err := ctx.Fill(conn); err != nil {
			Logger.Panicf("failed to read message payload from sender %d: %v", sendID, err)
		}

		if ctx.Complete() {
			data := ctx.Take()
			if err := q.Add(common.Message{Data: data}, true); err != nil {
				// finished queues take no more messages; drop and move on
				Logger.Warningf("dropping late message from sender %d: %v", sendID, err)
				continue
			}
			common.MessagesReceived.Inc()
			common.BytesReceived.Add(len(data))
			r.notify.Post(sendID)
		}
	}
}
