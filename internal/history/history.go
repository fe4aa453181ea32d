// Package history implements the server-wide bounded ring of recently
// broadcast messages and the per-client "since-last-seen" cursoring
// described in spec.md §4.3.
//
// Unlike the distilled spec's reference shape (a most-recent-first array
// shifted on every append), this implementation takes the substitution
// spec.md §9 explicitly permits: a circular buffer. It is built on
// github.com/eapache/queue, which the teacher repository already declares
// as a dependency but never imports from any of its own source files.
// Entries are pushed to the back of the queue as they arrive (oldest at
// the front, newest at the back) and trimmed from the front once the
// length exceeds limits.MaxHist.
package history

import (
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/linechat/internal/limits"
)

// Entry is one broadcast message: nick, body, and the wall-clock instant
// it was appended.
type Entry struct {
	Nick      string
	Body      string
	Timestamp time.Time
}

// History is the bounded sequence of up to limits.MaxHist entries, ordered
// oldest-at-front internally; Since's return value preserves that
// oldest-first order, matching spec.md §4.3's delivery contract.
type History struct {
	q *queue.Queue
}

// New constructs an empty history.
func New() *History {
	return &History{q: queue.New()}
}

// Append inserts a new entry, trimming the oldest entry once length
// exceeds limits.MaxHist. After Append, the most recently appended entry
// is the one Since will return last.
func (h *History) Append(nick, body string, now time.Time) {
	h.q.Add(Entry{Nick: nick, Body: body, Timestamp: now})
	if h.q.Length() > limits.MaxHist {
		h.q.Remove()
	}
}

// Length returns the current number of stored entries.
func (h *History) Length() int {
	return h.q.Length()
}

// Since returns the entries strictly newer than cursor, oldest-first among
// them. An empty history, or a cursor at or after every entry, yields an
// empty slice. A cursor before every entry yields the full history.
func (h *History) Since(cursor time.Time) []Entry {
	n := h.q.Length()
	j := 0
	for j < n {
		e := h.q.Get(j).(Entry)
		if e.Timestamp.After(cursor) {
			break
		}
		j++
	}

	out := make([]Entry, 0, n-j)
	for i := j; i < n; i++ {
		out = append(out, h.q.Get(i).(Entry))
	}
	return out
}
