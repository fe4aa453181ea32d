//go:build linux
// +build linux

package reactor

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/linechat/internal/bufpool"
	"github.com/momentics/linechat/internal/conntable"
	"github.com/momentics/linechat/internal/control"
	"github.com/momentics/linechat/internal/history"
	"github.com/momentics/linechat/internal/limits"
	"github.com/momentics/linechat/internal/protocol"
)

// Loop is the single-threaded readiness-driven I/O multiplexer binding the
// buffer pool, connection table, message history, and protocol dispatcher
// into a running server (spec.md §4.5/§4.6). It owns all mutable state and
// runs on the goroutine that calls Run; nothing here synchronizes, per
// spec.md §5.
//
// Grounded on the teacher's reactor/reactor_linux.go and
// reactor/epoll_reactor.go for the epoll call sequence, and on
// original_source/main.c's poll() loop (accept, dispatch by revents,
// clean_closed_sockets at the end of each tick) for the overall shape.
type Loop struct {
	ep      *epollMultiplexer
	table   *conntable.Table
	pool    *bufpool.Pool
	history *history.History
	proto   *protocol.Dispatcher
	logger  *log.Logger
	ctrl    *control.Control

	listenFD int
	fdIndex  map[int]int // fd -> current table index
}

// New builds a Loop around an already-listening, non-blocking socket
// (typically the result of Listen). ctrl may be nil, in which case no
// metrics are recorded and no debug probes are registered.
func New(listenFD int, logger *log.Logger, ctrl *control.Control) (*Loop, error) {
	ep, err := newEpoll()
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll create: %w", err)
	}

	table := conntable.New()
	table.SetListenerFD(listenFD)

	pool := bufpool.New()
	hist := history.New()
	proto := protocol.NewDispatcher(pool, hist, table, logger)

	l := &Loop{
		ep:       ep,
		table:    table,
		pool:     pool,
		history:  hist,
		proto:    proto,
		logger:   logger,
		ctrl:     ctrl,
		listenFD: listenFD,
		fdIndex:  map[int]int{listenFD: 0},
	}

	if ctrl != nil {
		ctrl.Debug.Register("conntable.peers", func() any { return l.table.PeerCount() })
		ctrl.Debug.Register("bufpool.free", func() any { return l.pool.FreeCount() })
		ctrl.Debug.Register("history.length", func() any { return l.history.Length() })
	}

	if err := ep.add(listenFD, uint32(evRead)); err != nil {
		ep.close()
		return nil, fmt.Errorf("reactor: register listener: %w", err)
	}
	return l, nil
}

// incr bumps a metrics counter if a Control facade was supplied.
func (l *Loop) incr(key string, delta uint64) {
	if l.ctrl != nil {
		l.ctrl.Metrics.Incr(key, delta)
	}
}

// Close releases the epoll instance and the listening socket.
func (l *Loop) Close() error {
	unix.Close(l.listenFD)
	return l.ep.close()
}

// Run blocks, driving readiness events until the epoll wait fails with a
// non-EINTR error. Accept failures and send failures other than EAGAIN are fatal,
// matching spec.md §7's "die loudly" policy for conditions the original C
// program handles with die().
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, limits.MaxConn)
	for {
		n, err := l.ep.wait(events)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: epoll wait: %w", err)
		}

		for i := 0; i < n; i++ {
			l.handleEvent(events[i])
		}

		l.compact()
	}
}

func (l *Loop) handleEvent(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	idx, ok := l.fdIndex[fd]
	if !ok {
		return
	}

	if idx == 0 {
		if ev.Events&uint32(evRead) != 0 {
			l.accept()
		}
		return
	}

	c, _ := l.table.At(idx)
	if c.Closed {
		return
	}

	if ev.Events&uint32(evErr) != 0 {
		c.Closed = true
		return
	}
	if ev.Events&uint32(evRead) != 0 {
		l.handleReadable(c)
	}
	if !c.Closed && ev.Events&uint32(evWrite) != 0 {
		l.handleWritable(c)
	}
}

// accept drains the listener's backlog. Once the table is full, newly
// accepted sockets are closed immediately with no data written to them,
// matching spec.md §4.5's correction of the original source's silent
// drop-on-full behavior.
func (l *Loop) accept() {
	for {
		fd, _, err := unix.Accept4(l.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			l.logger.Fatalf("reactor: accept failed: %v", err)
		}

		c, idx, err := l.table.Add(fd, time.Now())
		if err != nil {
			unix.Close(fd)
			l.incr("connections_rejected_full", 1)
			continue
		}
		l.fdIndex[fd] = idx
		l.incr("connections_accepted", 1)

		if err := l.ep.add(fd, uint32(evRead)); err != nil {
			l.logger.Printf("reactor: register fd=%d failed: %v", fd, err)
			c.Closed = true
		}
	}
}

func (l *Loop) handleReadable(c *conntable.Connection) {
	buf := &c.Input
	n, err := unix.Read(c.FD, buf.Data[buf.Used:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		c.Closed = true
		return
	}
	if n == 0 {
		c.Closed = true
		return
	}
	buf.Used += n

	l.proto.Frame(c)
	if c.Closed {
		return
	}

	// The dispatcher already flipped c.Interest the instant its send queue
	// went from empty to non-empty; push that through to epoll. Because a
	// writable-registered fd never receives read events again until
	// handleWritable flips it back, this only fires once per transition.
	if c.Interest == conntable.InterestWritable {
		if err := l.ep.modify(c.FD, uint32(evWrite)); err != nil {
			l.logger.Printf("reactor: re-arm fd=%d for write failed: %v", c.FD, err)
			c.Closed = true
		}
	}
}

func (l *Loop) handleWritable(c *conntable.Connection) {
	for !c.Out.Empty() {
		head := c.Out.Head()
		sent, err := unix.Write(c.FD, head.Data[:head.Used])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			l.logger.Fatalf("reactor: send failed on fd=%d: %v", c.FD, err)
		}
		if sent < head.Used {
			// Short write: keep the unsent remainder at the front of this
			// buffer rather than resending from the start.
			copy(head.Data, head.Data[sent:head.Used])
			head.Used -= sent
			return
		}
		c.Out.Advance(l.pool)
	}

	c.Interest = conntable.InterestReadable
	if err := l.ep.modify(c.FD, uint32(evRead)); err != nil {
		l.logger.Printf("reactor: re-arm fd=%d for read failed: %v", c.FD, err)
		c.Closed = true
	}
}

// compact removes every connection marked Closed this tick, keeping the
// reactor's fd->index map consistent with the table's in-place compaction.
func (l *Loop) compact() {
	closed := l.table.Compact(func(c *conntable.Connection, oldIndex, newIndex int) {
		l.fdIndex[c.FD] = newIndex
	})
	for _, c := range closed {
		delete(l.fdIndex, c.FD)
		l.ep.remove(c.FD)
		unix.Close(c.FD)
	}
	l.incr("connections_closed", uint64(len(closed)))
}
