package socket

// watched is one connection under multiplexer supervision. Its watcher
// goroutine delivers at most one readiness event at a time and then
// waits to be re-armed before watching again, which keeps the
// level-triggered behavior of the readiness contract: a connection that
// still has unread data is reported again on the next Wait.
type watched struct {
	conn  *Conn
	id    int
	rearm chan struct{}
	stop  chan struct{}
}

// Multiplexer blocks until at least one of its registered connections is
// readable and returns one ready (conn, id) pair per Wait call.
//
// A Multiplexer is owned by a single worker goroutine; none of its
// methods are safe for concurrent use.
type Multiplexer struct {
	ready  chan int
	conns  map[int]*watched
	lastID int
}

// NewMultiplexer creates an empty multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		ready:  make(chan int),
		conns:  make(map[int]*watched),
		lastID: -1,
	}
}

// AddSocket registers conn under id and starts watching it.
func (m *Multiplexer) AddSocket(conn *Conn, id int) {
	w := &watched{
		conn:  conn,
		id:    id,
		rearm: make(chan struct{}),
		stop:  make(chan struct{}),
	}
	m.conns[id] = w
	go w.watch(m.ready)
}

// RemoveSocket deregisters the connection with the given id and returns
// the number of connections still monitored, so the owning loop can
// detect that all of its peers have finished.
func (m *Multiplexer) RemoveSocket(id int) int {
	if w, ok := m.conns[id]; ok {
		close(w.stop)
		delete(m.conns, id)
	}
	if m.lastID == id {
		m.lastID = -1
	}
	return len(m.conns)
}

// Count returns the number of currently monitored connections.
func (m *Multiplexer) Count() int {
	return len(m.conns)
}

// Wait blocks until one registered connection is readable and returns
// it. Calling Wait re-arms the connection returned by the previous call,
// so a connection is reported again as long as it stays readable.
func (m *Multiplexer) Wait() (*Conn, int) {
	if w, ok := m.conns[m.lastID]; ok {
		w.rearm <- struct{}{}
		m.lastID = -1
	}
	for {
		id := <-m.ready
		w, ok := m.conns[id]
		if !ok {
			// event raced with RemoveSocket, drop it
			continue
		}
		m.lastID = id
		return w.conn, id
	}
}

// watch reports readiness of one connection until stopped. A readiness
// wait that fails (the connection was closed) is still reported: the
// owner's next read surfaces the actual error.
func (w *watched) watch(ready chan<- int) {
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		if err := w.conn.WaitReadable(); err != nil {
			Logger.Debugf("readiness wait for peer %d ended: %v", w.id, err)
		}

		select {
		case ready <- w.id:
		case <-w.stop:
			return
		}

		select {
		case <-w.rearm:
		case <-w.stop:
			return
		}
	}
}
