package comm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/commlink-dev/commlink/comm/common"
	"github.com/commlink-dev/commlink/comm/queue"
	"github.com/commlink-dev/commlink/comm/socket"
	"github.com/commlink-dev/commlink/comm/wire"
	"github.com/puzpuzpuz/xsync/v3"
)

// socketSender implements the Sender interface over TCP.
//
// Registered peers are partitioned into shards by recvID modulo the
// worker count. Each shard owns one queue and one worker goroutine; the
// worker is the only goroutine that ever writes to the shard's sockets,
// which is what makes per-peer FIFO hold end to end.
type socketSender struct {
	config common.Config

	// receiver registry, recvID -> address
	addrs *xsync.MapOf[int, common.Address]

	numShards int
	shards    []map[int]*socket.Conn
	queues    []*queue.MessageQueue
	workers   sync.WaitGroup
	connected bool
}

func newSocketSender(config common.Config) *socketSender {
	return &socketSender{
		config: config.WithDefaults(),
		addrs:  xsync.NewMapOf[int, common.Address](),
	}
}

func (s *socketSender) AddReceiver(addr string, recvID int) {
	if recvID < 0 {
		Logger.Panicf("receiver id cannot be negative, got %d", recvID)
	}
	s.addrs.Store(recvID, common.ParseAddress(addr))
}

func (s *socketSender) Connect() error {
	count := s.addrs.Size()
	if count == 0 {
		return fmt.Errorf("no receivers registered")
	}

	n := s.config.MaxThreadCount
	if n == 0 || n > count {
		n = count
	}
	s.numShards = n
	s.shards = make([]map[int]*socket.Conn, n)
	for i := range s.shards {
		s.shards[i] = make(map[int]*socket.Conn)
	}

	var dialErr error
	s.addrs.Range(func(recvID int, addr common.Address) bool {
		conn, err := socket.Dial(addr, s.config)
		if err != nil {
			dialErr = err
			return false
		}
		s.shards[recvID%n][recvID] = conn
		Logger.Infof("connected to receiver %d at %s", recvID, addr)
		return true
	})
	if dialErr != nil {
		s.closeSockets()
		return dialErr
	}

	s.queues = make([]*queue.MessageQueue, n)
	for shard := 0; shard < n; shard++ {
		q := queue.New(s.config.QueueCapacity, 1)
		s.queues[shard] = q
		s.workers.Add(1)
		go s.sendLoop(s.shards[shard], q)
	}

	s.connected = true
	Logger.Infof("sender connected to %d receivers using %d workers", count, n)
	return nil
}

func (s *socketSender) Send(msg common.Message, recvID int) error {
	if len(msg.Data) == 0 {
		Logger.Panicf("message payload must be non-empty")
	}
	if recvID < 0 {
		Logger.Panicf("receiver id cannot be negative, got %d", recvID)
	}
	if !s.connected {
		Logger.Panicf("Send called before Connect")
	}
	if _, ok := s.addrs.Load(recvID); !ok {
		Logger.Panicf("receiver %d is not registered", recvID)
	}

	msg.ReceiverID = recvID
	return s.queues[recvID%s.numShards].Add(msg, !s.config.NonBlockingSend)
}

func (s *socketSender) Finalize() {
	for _, q := range s.queues {
		q.WaitDrained()
		// each shard queue has a single producer, the API caller
		q.SignalFinished(0)
	}
	s.workers.Wait()
	s.closeSockets()
}

func (s *socketSender) closeSockets() {
	for _, shard := range s.shards {
		for _, conn := range shard {
			conn.Close()
		}
	}
}

// sendLoop drains one shard queue onto the shard's sockets. On queue
// close it emits the zero-length end-of-stream frame to every socket the
// shard owns, then terminates.
func (s *socketSender) sendLoop(conns map[int]*socket.Conn, q *queue.MessageQueue) {
	defer s.workers.Done()
	for {
		msg, err := q.Remove(true)
		if errors.Is(err, queue.ErrClosed) {
			for recvID, conn := range conns {
				if werr := wire.WriteFrame(conn, nil); werr != nil {
					Logger.Errorf("failed to send end-of-stream to receiver %d: %v", recvID, werr)
				}
			}
			return
		}
		if werr := wire.WriteFrame(conns[msg.ReceiverID], msg.Data); werr != nil {
			Logger.Panicf("failed to send message to receiver %d: %v", msg.ReceiverID, werr)
		}
		common.MessagesSent.Inc()
		common.BytesSent.Add(len(msg.Data))
	}
}
