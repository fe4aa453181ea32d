// Package bufpool implements the fixed-capacity buffer freelist that backs
// every connection's send queue. The pool is created once at startup and
// never allocates again: Take removes the head of the free list, Release
// pushes a buffer back. Exhaustion is fatal — the pool is sized against
// limits.MaxConn and a modest per-connection send depth, so running out
// means a misconfiguration or a runaway sender, not a transient condition.
//
// The pool is owned exclusively by the single reactor goroutine (see
// internal/reactor) and therefore needs no synchronization.
package bufpool

import (
	"fmt"

	"github.com/momentics/linechat/internal/limits"
)

// Buffer is a fixed-capacity byte container. Used never exceeds cap(Data);
// content beyond Used is undefined.
type Buffer struct {
	Data []byte
	Used int
}

// Free reports the number of bytes still available in the buffer.
func (b *Buffer) Free() int {
	return cap(b.Data) - b.Used
}

// PooledBuffer is a Buffer plus an intrusive link used only while the
// buffer sits on the pool's free list or on a connection's send queue. At
// any instant it belongs to exactly one of those lists, never both.
type PooledBuffer struct {
	Buffer
	next *PooledBuffer
}

// Next returns the buffer's successor on whichever list currently owns it.
func (b *PooledBuffer) Next() *PooledBuffer { return b.next }

// SetNext links b to the given successor; used by callers that manage
// their own lists (see internal/sendqueue).
func (b *PooledBuffer) SetNext(n *PooledBuffer) { b.next = n }

// ErrExhausted is returned by Take when the free list is empty. Callers in
// this codebase treat it as fatal per spec: the process cannot continue
// sending once the pool runs dry.
var ErrExhausted = fmt.Errorf("bufpool: memory limit exceeded")

// Pool is a fixed-size freelist of limits.PoolSize equally-sized buffers.
// No allocation occurs after New returns.
type Pool struct {
	storage []PooledBuffer
	free    *PooledBuffer
}

// New allocates the pool's backing storage and threads every buffer onto
// the free list.
func New() *Pool {
	p := &Pool{
		storage: make([]PooledBuffer, limits.PoolSize),
	}
	for i := range p.storage {
		p.storage[i].Data = make([]byte, limits.BufCap)
	}
	for i := 0; i < len(p.storage)-1; i++ {
		p.storage[i].next = &p.storage[i+1]
	}
	p.free = &p.storage[0]
	return p
}

// Take removes the head of the free list and returns it reset to used=0.
// It returns ErrExhausted when the free list is empty; the caller is
// expected to treat this as fatal (see spec.md §4.1/§7).
func (p *Pool) Take() (*PooledBuffer, error) {
	if p.free == nil {
		return nil, ErrExhausted
	}
	b := p.free
	p.free = b.next
	b.next = nil
	b.Used = 0
	return b, nil
}

// Release pushes b back onto the free list. The caller must guarantee b is
// not presently linked into any send queue.
func (p *Pool) Release(b *PooledBuffer) {
	b.next = p.free
	p.free = b
}

// FreeCount returns the number of buffers currently available, used by the
// control/debug facade for observability (see internal/control).
func (p *Pool) FreeCount() int {
	n := 0
	for b := p.free; b != nil; b = b.next {
		n++
	}
	return n
}

// Cap returns the pool's total buffer count.
func (p *Pool) Cap() int {
	return len(p.storage)
}
