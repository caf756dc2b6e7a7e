package cache

import (
	"testing"

	"github.com/arbordb/arbor/common"
)

func TestPoolGetMiss(t *testing.T) {
	p := New[string](2, NewLRU())
	if _, ok := p.Get(42); ok {
		t.Fatal("Get on empty pool should miss")
	}
}

func TestPoolPlaceThenGet(t *testing.T) {
	p := New[string](2, NewLRU())
	p.Place(0, "a")
	got, ok := p.Get(0)
	if !ok || got != "a" {
		t.Fatalf("Get(0) = %q, %v; want %q, true", got, ok, "a")
	}
}

func TestPoolEvictsLRUOnOverflow(t *testing.T) {
	p := New[string](2, NewLRU())
	p.Place(0, "a")
	p.Place(1, "b")

	// Touch 0 so it is more recently used than 1.
	p.Get(0)

	evicted, did := p.Place(2, "c")
	if !did {
		t.Fatal("expected an eviction when placing past capacity")
	}
	if evicted.Pos != 1 {
		t.Fatalf("evicted pos = %d, want 1 (the least recently used)", evicted.Pos)
	}
	if !evicted.Dirty {
		t.Fatal("newly placed pages are dirty; the evicted entry should be too")
	}
}

func TestPoolReplaceExistingPromotesAndDoesNotEvict(t *testing.T) {
	p := New[string](2, NewLRU())
	p.Place(0, "a")
	p.Place(1, "b")

	if _, did := p.Place(0, "a2"); did {
		t.Fatal("re-placing an existing key should not evict")
	}
	got, _ := p.Get(0)
	if got != "a2" {
		t.Fatalf("Get(0) = %q, want %q", got, "a2")
	}
}

func TestPoolNeverEvictGrowsUnbounded(t *testing.T) {
	p := New[int](1, NeverEvict{})
	for i := 0; i < 10; i++ {
		if _, did := p.Place(common.Position(i), i); did {
			t.Fatalf("NeverEvict pool evicted at i=%d", i)
		}
	}
	if p.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", p.Len())
	}
}

func TestPoolFlushDrainsEverything(t *testing.T) {
	p := New[int](10, NewLRU())
	for i := 0; i < 5; i++ {
		p.Place(common.Position(i), i*10)
	}

	seen := map[common.Position]int{}
	for e := range p.Flush() {
		seen[e.Pos] = e.Page
		if !e.Dirty {
			t.Fatalf("flushed entry %d should be dirty", e.Pos)
		}
	}

	if len(seen) != 5 {
		t.Fatalf("flushed %d entries, want 5", len(seen))
	}
	if p.Len() != 0 {
		t.Fatalf("pool should be empty after Flush, Len() = %d", p.Len())
	}
}

func TestPoolMarkCleanThenFlushOmitsItFromWriteback(t *testing.T) {
	p := New[int](10, NewLRU())
	p.Place(0, 1)
	p.MarkClean(0)

	for e := range p.Flush() {
		if e.Pos == 0 && e.Dirty {
			t.Fatal("entry 0 was marked clean and should not flush as dirty")
		}
	}
}
