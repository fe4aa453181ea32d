// Package protocol implements the line-framed request parser and command
// dispatcher described in spec.md §4.4: it turns bytes accumulated in a
// connection's input buffer into dispatched requests, and turns command
// effects into responses written through internal/sendqueue.
//
// The control flow (parse whatever is buffered, dispatch each complete
// line, shift the unconsumed remainder to the front) is adapted from the
// teacher's own protocol/frame_codec.go and core/protocol/frame_codec.go,
// which do the same buffered-then-framed shape for WebSocket frames; the
// frame grammar itself comes from spec.md's line protocol rather than
// RFC 6455.
package protocol

import (
	"bytes"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/momentics/linechat/internal/bufpool"
	"github.com/momentics/linechat/internal/conntable"
	"github.com/momentics/linechat/internal/history"
	"github.com/momentics/linechat/internal/limits"
)

var crlf = []byte("\r\n")

const (
	prefixMyNameIs = "my name is "
	prefixSend     = "send "
	cmdFolks       = "folks"
	cmdNew         = "new"
)

// Dispatcher binds the buffer pool, message history, and connection table
// together to parse and answer one connection's requests. It carries no
// synchronization: it is driven exclusively by the reactor's single
// goroutine (spec.md §5).
type Dispatcher struct {
	Pool    *bufpool.Pool
	History *history.History
	Table   *conntable.Table
	Logger  *log.Logger

	// Now returns the current wall-clock time; overridable in tests.
	Now func() time.Time
}

// NewDispatcher constructs a Dispatcher wired to the given pool, history,
// and connection table.
func NewDispatcher(pool *bufpool.Pool, hist *history.History, table *conntable.Table, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		Pool:    pool,
		History: hist,
		Table:   table,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Frame extracts and dispatches every complete "\r\n"-terminated line
// currently sitting in c.Input, then shifts any unconsumed tail to the
// front of the buffer. If the buffer is completely full and holds no
// terminator at all, the connection is marked closed: the line is
// over-length (spec.md §4.4).
func (d *Dispatcher) Frame(c *conntable.Connection) {
	start := 0
	for !c.Closed {
		data := c.Input.Data[:c.Input.Used]
		idx := bytes.Index(data[start:], crlf)
		if idx < 0 {
			if start == 0 && c.Input.Used == cap(c.Input.Data) {
				d.closeConn(c, "over-length line")
			}
			break
		}
		line := data[start : start+idx]
		d.dispatch(c, line)
		start += idx + len(crlf)
	}
	if !c.Closed {
		c.Input.Used = copy(c.Input.Data, c.Input.Data[start:c.Input.Used])
	}
}

// dispatch recognizes one request line and produces its effect/response
// per the grammar table in spec.md §4.4.
func (d *Dispatcher) dispatch(c *conntable.Connection, line []byte) {
	switch {
	case bytes.HasPrefix(line, []byte(prefixMyNameIs)):
		d.handleMyNameIs(c, line[len(prefixMyNameIs):])
	case bytes.Equal(line, []byte(cmdFolks)):
		d.handleFolks(c)
	case bytes.HasPrefix(line, []byte(prefixSend)):
		d.handleSend(c, line[len(prefixSend):])
	case bytes.Equal(line, []byte(cmdNew)):
		d.handleNew(c)
	default:
		d.closeConn(c, "unknown command")
	}
}

func (d *Dispatcher) handleMyNameIs(c *conntable.Connection, nick []byte) {
	if len(nick) > limits.MaxNick {
		d.closeConn(c, "oversize nickname")
		return
	}
	c.Nick = string(nick)
	d.respond(c, "ok")
}

func (d *Dispatcher) handleFolks(c *conntable.Connection) {
	peers := d.Table.Peers()
	d.respond(c, strconv.Itoa(len(peers)))
	for _, p := range peers {
		d.respond(c, p.Nick)
	}
}

func (d *Dispatcher) handleSend(c *conntable.Connection, msg []byte) {
	if len(msg) > limits.MaxMsg {
		d.closeConn(c, "oversize message")
		return
	}
	d.History.Append(c.Nick, string(msg), d.Now())
	d.respond(c, "ok")
}

func (d *Dispatcher) handleNew(c *conntable.Connection) {
	entries := d.History.Since(c.LastSeen)
	d.respond(c, strconv.Itoa(len(entries)))
	for _, e := range entries {
		ts := e.Timestamp
		d.respond(c, fmt.Sprintf("[%02d:%02d:%02d] %s: %s",
			ts.Hour(), ts.Minute(), ts.Second(), e.Nick, e.Body))
	}
	c.LastSeen = d.Now()
}

// respond enqueues one response line and switches the connection's
// readiness interest to writable the moment its send queue transitions
// from empty to non-empty (spec.md §4.2). Pool exhaustion is fatal per
// spec.md §4.1/§7.
func (d *Dispatcher) respond(c *conntable.Connection, text string) {
	wasEmpty := c.Out.Empty()
	if err := c.Out.SendPackage(d.Pool, text); err != nil {
		d.Logger.Fatalf("protocol: buffer pool exhausted responding to fd=%d: %v", c.FD, err)
	}
	if wasEmpty {
		c.Interest = conntable.InterestWritable
	}
}

func (d *Dispatcher) closeConn(c *conntable.Connection, reason string) {
	c.Closed = true
	if d.Logger != nil {
		d.Logger.Printf("closing fd=%d nick=%q: %s", c.FD, c.Nick, reason)
	}
}
