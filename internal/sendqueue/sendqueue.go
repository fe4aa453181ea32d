// Package sendqueue implements the per-connection FIFO of pooled buffers
// the protocol layer writes responses into and the reactor drains onto the
// wire. See spec.md §4.2.
package sendqueue

import "github.com/momentics/linechat/internal/bufpool"

// Queue is a FIFO of *bufpool.PooledBuffer. Tail is nil iff head is nil;
// every non-tail node is full (Used == cap(Data)).
type Queue struct {
	head *bufpool.PooledBuffer
	tail *bufpool.PooledBuffer
}

// Empty reports whether the queue currently holds no buffers.
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Head returns the buffer currently at the front of the queue, or nil if
// empty. Used by the reactor's drain loop (internal/reactor).
func (q *Queue) Head() *bufpool.PooledBuffer {
	return q.head
}

// Enqueue appends bytes onto the queue, taking buffers from pool as
// needed. It fills the current tail first, then allocates new tail
// buffers until all of bytes has been stored. A single call may span
// multiple buffers.
func (q *Queue) Enqueue(pool *bufpool.Pool, data []byte) error {
	stored := 0
	for stored < len(data) {
		if q.tail == nil || q.tail.Free() == 0 {
			b, err := pool.Take()
			if err != nil {
				return err
			}
			if q.tail == nil {
				q.head = b
			} else {
				q.tail.SetNext(b)
			}
			q.tail = b
		}
		n := copy(q.tail.Data[q.tail.Used:cap(q.tail.Data)], data[stored:])
		q.tail.Used += n
		stored += n
	}
	return nil
}

// SendPackage enqueues text followed by the "\r\n" line terminator — the
// only way the protocol layer produces output (spec.md §4.2).
func (q *Queue) SendPackage(pool *bufpool.Pool, text string) error {
	if err := q.Enqueue(pool, []byte(text)); err != nil {
		return err
	}
	return q.Enqueue(pool, []byte("\r\n"))
}

// Advance releases the head buffer back to pool and moves to the next
// node, called by the reactor after fully transmitting the head buffer.
func (q *Queue) Advance(pool *bufpool.Pool) {
	old := q.head
	q.head = old.Next()
	if q.head == nil {
		q.tail = nil
	}
	old.SetNext(nil)
	pool.Release(old)
}
