// Package conntable implements the fixed-capacity, struct-of-arrays
// connection table described in spec.md §3/§4.5: a readiness-descriptor
// array running in lockstep with a per-connection state array, index 0
// reserved for the listening socket, compacted in place as connections
// close.
package conntable

import (
	"errors"
	"time"

	"github.com/momentics/linechat/internal/bufpool"
	"github.com/momentics/linechat/internal/limits"
	"github.com/momentics/linechat/internal/sendqueue"
)

// Interest is a connection's current readiness registration: readable XOR
// writable, never both (spec.md §4.2/§5).
type Interest uint8

const (
	InterestReadable Interest = iota
	InterestWritable
)

// ErrFull is returned by Add when the table has reached limits.MaxConn.
var ErrFull = errors.New("conntable: connection table is full")

// Connection is the per-peer protocol and I/O state.
type Connection struct {
	FD       int
	Interest Interest
	Closed   bool
	Nick     string
	LastSeen time.Time
	Input    bufpool.Buffer
	Out      sendqueue.Queue
}

func newConnection(fd int, now time.Time) *Connection {
	return &Connection{
		FD:       fd,
		Interest: InterestReadable,
		Nick:     limits.DefaultNick,
		LastSeen: now,
		Input:    bufpool.Buffer{Data: make([]byte, limits.BufCap)},
	}
}

// Table holds the listener's descriptor at index 0 and peer connections at
// indices 1..Len()-1. The fds slice mirrors conns index for index; a
// reactor that maps descriptors back to indices keeps that map itself
// (see Compact's reindex callback).
type Table struct {
	fds   []int32
	conns []*Connection
}

// New constructs an empty table with the listener slot reserved.
func New() *Table {
	return &Table{
		fds:   make([]int32, 1, limits.MaxConn),
		conns: make([]*Connection, 1, limits.MaxConn),
	}
}

// SetListenerFD records the listening socket's descriptor at index 0.
func (t *Table) SetListenerFD(fd int) {
	t.fds[0] = int32(fd)
}

// ListenerFD returns the listening socket's descriptor.
func (t *Table) ListenerFD() int {
	return int(t.fds[0])
}

// Len returns the table's current length, including the reserved listener
// slot at index 0.
func (t *Table) Len() int {
	return len(t.conns)
}

// Full reports whether the table has reached limits.MaxConn.
func (t *Table) Full() bool {
	return len(t.conns) >= limits.MaxConn
}

// Add registers a new peer connection, returning it and its table index.
// It fails with ErrFull when the table is at capacity; the caller is
// expected to close the accepted socket without further ceremony per
// spec.md §4.5.
func (t *Table) Add(fd int, now time.Time) (*Connection, int, error) {
	if t.Full() {
		return nil, 0, ErrFull
	}
	c := newConnection(fd, now)
	t.fds = append(t.fds, int32(fd))
	t.conns = append(t.conns, c)
	return c, len(t.conns) - 1, nil
}

// At returns the connection and descriptor stored at index i. Index 0
// always yields a nil connection (the listener slot carries no protocol
// state).
func (t *Table) At(i int) (*Connection, int) {
	return t.conns[i], int(t.fds[i])
}

// PeerCount returns the number of peer connections, excluding the
// listener — exactly the count the "folks" command reports.
func (t *Table) PeerCount() int {
	return len(t.conns) - 1
}

// Peers returns the peer connection slice (indices 1..Len()-1).
func (t *Table) Peers() []*Connection {
	return t.conns[1:]
}

// Compact retains all non-closed peer connections in order, discarding
// closed ones, and returns the closed connections so the caller can tear
// down their descriptors. For every surviving connection whose index
// changes, reindex is invoked with the old and new index so a reactor can
// re-associate its readiness registration (e.g. EPOLL_CTL_MOD with new
// userData) — this is the Go-epoll analogue of the original C source's
// `clean_closed_sockets`, which could rely on poll(2) re-scanning the
// whole array every tick instead.
func (t *Table) Compact(reindex func(c *Connection, oldIndex, newIndex int)) []*Connection {
	var closed []*Connection
	d := 1
	for s := 1; s < len(t.conns); s++ {
		c := t.conns[s]
		if c.Closed {
			closed = append(closed, c)
			continue
		}
		if d != s {
			t.fds[d] = t.fds[s]
			t.conns[d] = c
			if reindex != nil {
				reindex(c, s, d)
			}
		}
		d++
	}
	t.fds = t.fds[:d]
	t.conns = t.conns[:d]
	return closed
}
