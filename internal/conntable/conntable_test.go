package conntable

import (
	"testing"
	"time"

	"github.com/momentics/linechat/internal/limits"
)

func TestAddAndPeerCount(t *testing.T) {
	tbl := New()
	tbl.SetListenerFD(3)

	now := time.Now()
	c1, idx1, err := tbl.Add(4, now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx1 != 1 {
		t.Fatalf("idx1 = %d, want 1", idx1)
	}
	if c1.Nick != limits.DefaultNick {
		t.Fatalf("default nick = %q, want %q", c1.Nick, limits.DefaultNick)
	}

	if _, _, err := tbl.Add(5, now); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	if got := tbl.PeerCount(); got != 2 {
		t.Fatalf("PeerCount() = %d, want 2", got)
	}
}

func TestAddRejectsWhenFull(t *testing.T) {
	tbl := New()
	tbl.SetListenerFD(3)
	now := time.Now()

	for i := 0; i < limits.MaxConn-1; i++ {
		if _, _, err := tbl.Add(100+i, now); err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
	}
	if !tbl.Full() {
		t.Fatal("table should be full")
	}
	if _, _, err := tbl.Add(999, now); err != ErrFull {
		t.Fatalf("Add on full table = %v, want ErrFull", err)
	}
}

func TestCompactPreservesOrderAndReindexes(t *testing.T) {
	tbl := New()
	tbl.SetListenerFD(3)
	now := time.Now()

	c1, _, _ := tbl.Add(10, now)
	c2, _, _ := tbl.Add(11, now)
	c3, _, _ := tbl.Add(12, now)

	c2.Closed = true

	var reindexed []struct{ old, new int }
	closed := tbl.Compact(func(c *Connection, oldIndex, newIndex int) {
		reindexed = append(reindexed, struct{ old, new int }{oldIndex, newIndex})
	})

	if len(closed) != 1 || closed[0] != c2 {
		t.Fatalf("closed = %+v, want [c2]", closed)
	}
	if tbl.PeerCount() != 2 {
		t.Fatalf("PeerCount() after compact = %d, want 2", tbl.PeerCount())
	}

	gotC1, fd1 := tbl.At(1)
	if gotC1 != c1 || fd1 != 10 {
		t.Fatalf("index 1 = (%v, %d), want (c1, 10)", gotC1, fd1)
	}
	gotC3, fd3 := tbl.At(2)
	if gotC3 != c3 || fd3 != 12 {
		t.Fatalf("index 2 = (%v, %d), want (c3, 12)", gotC3, fd3)
	}

	if len(reindexed) != 1 || reindexed[0].old != 3 || reindexed[0].new != 2 {
		t.Fatalf("reindexed = %+v, want one entry old=3 new=2", reindexed)
	}
}
