package history

import (
	"testing"
	"time"

	"github.com/momentics/linechat/internal/limits"
)

func TestAppendThenSinceReturnsOldestFirst(t *testing.T) {
	h := New()
	base := time.Unix(1_700_000_000, 0)

	h.Append("alice", "one", base)
	h.Append("alice", "two", base.Add(time.Second))

	entries := h.Since(base.Add(-time.Second))
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Body != "one" || entries[1].Body != "two" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestSinceEmptyHistory(t *testing.T) {
	h := New()
	if got := h.Since(time.Now()); len(got) != 0 {
		t.Fatalf("Since on empty history = %v, want empty", got)
	}
}

func TestSinceStrictlyNewer(t *testing.T) {
	h := New()
	base := time.Unix(1_700_000_000, 0)
	h.Append("bob", "hello", base)

	// Equal cursor must not re-deliver.
	if got := h.Since(base); len(got) != 0 {
		t.Fatalf("Since(equal cursor) = %v, want empty", got)
	}
	if got := h.Since(base.Add(-time.Nanosecond)); len(got) != 1 {
		t.Fatalf("Since(earlier cursor) = %v, want 1 entry", got)
	}
}

func TestAppendTrimsToMaxHist(t *testing.T) {
	h := New()
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < limits.MaxHist+5; i++ {
		h.Append("x", "m", base.Add(time.Duration(i)*time.Second))
	}
	if got := h.Length(); got != limits.MaxHist {
		t.Fatalf("Length() = %d, want %d", got, limits.MaxHist)
	}

	entries := h.Since(base.Add(-time.Second))
	if len(entries) != limits.MaxHist {
		t.Fatalf("len(entries) = %d, want %d", len(entries), limits.MaxHist)
	}
	// Oldest surviving entry is the 6th appended (index 5), since the
	// first 5 were trimmed.
	if entries[0].Timestamp != base.Add(5*time.Second) {
		t.Fatalf("oldest surviving entry timestamp = %v, want %v",
			entries[0].Timestamp, base.Add(5*time.Second))
	}
}

func TestTwoConsecutiveNewReturnZero(t *testing.T) {
	h := New()
	base := time.Unix(1_700_000_000, 0)
	h.Append("a", "hello", base)

	cursor := base.Add(time.Second)
	if got := h.Since(cursor); len(got) != 0 {
		t.Fatalf("first Since = %v, want empty", got)
	}
	if got := h.Since(cursor); len(got) != 0 {
		t.Fatalf("second Since = %v, want empty", got)
	}
}
