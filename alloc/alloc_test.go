package alloc

import (
	"bytes"
	"testing"

	"github.com/arbordb/arbor/common"
)

func TestStackAllocatorAllocIsMonotonic(t *testing.T) {
	a := NewStackAllocator(4096, 0)

	var got []common.Position
	for i := 0; i < 4; i++ {
		pos, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		got = append(got, pos)
	}

	want := []common.Position{0, 4096, 8192, 12288}
	for i, pos := range want {
		if got[i] != pos {
			t.Fatalf("alloc %d = %d, want %d", i, got[i], pos)
		}
	}
}

func TestStackAllocatorFreeUnsupported(t *testing.T) {
	a := NewStackAllocator(4096, 0)
	if _, err := a.Alloc(); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Free(0); err == nil {
		t.Fatal("Free should fail on a stack allocator")
	}
}

func TestStackAllocatorHasAllocated(t *testing.T) {
	a := NewStackAllocator(4096, 0)
	pos, _ := a.Alloc()
	if !a.HasAllocated(pos) {
		t.Fatal("HasAllocated should be true for an allocated position")
	}
	if a.HasAllocated(pos + 4096) {
		t.Fatal("HasAllocated should be false past the cursor")
	}
}

func TestStackAllocatorSaveLoad(t *testing.T) {
	a := NewStackAllocator(4096, 0)
	for i := 0; i < 3; i++ {
		a.Alloc()
	}

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := NewStackAllocator(4096, 0)
	if err := b.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	pos, _ := b.Alloc()
	if pos != 3*4096 {
		t.Fatalf("after load, next alloc = %d, want %d", pos, 3*4096)
	}
}

func TestFreeListAllocatorReusesFreedPosition(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 0)

	var allocated []common.Position
	for i := 0; i < 4; i++ {
		pos, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		allocated = append(allocated, pos)
	}

	// Free a non-top position, then alloc should hand it back before growing.
	nonTop := allocated[1]
	if err := a.Free(nonTop); err != nil {
		t.Fatalf("Free: %v", err)
	}

	pos, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if pos != nonTop {
		t.Fatalf("alloc after free = %d, want the freed position %d", pos, nonTop)
	}
}

func TestFreeListAllocatorFreeTopShrinks(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 0)
	a.Alloc()
	top, _ := a.Alloc() // position 4096, the highest allocated page

	if err := a.Free(top); err != nil {
		t.Fatalf("Free: %v", err)
	}

	// Freeing the top page should shrink nextUnused rather than growing the
	// free list, so the very next alloc reuses that exact position again.
	pos, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if pos != top {
		t.Fatalf("alloc after freeing top = %d, want %d", pos, top)
	}
}

func TestFreeListAllocatorDuplicateFreeFails(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 0)
	a.Alloc()
	a.Alloc()
	a.Alloc()

	if err := a.Free(4096); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := a.Free(4096); err == nil {
		t.Fatal("double free of a non-top position should fail with BadPosition")
	}
}

func TestFreeListAllocatorOutOfSpace(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 2)
	a.Alloc()
	a.Alloc()
	if _, err := a.Alloc(); err == nil {
		t.Fatal("alloc past the limit should fail")
	}
}

func TestFreeListAllocatorBadPositionNotAligned(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 0)
	a.Alloc()
	if err := a.Free(100); err == nil {
		t.Fatal("freeing a non-page-aligned position should fail")
	}
}

func TestFreeListAllocatorSaveLoad(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 10)
	a.Alloc()
	a.Alloc()
	a.Alloc()
	a.Free(0)

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := NewFreeListAllocator(4096, 0, 0)
	if err := b.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !b.HasAllocated(4096) {
		t.Fatal("position 4096 should be allocated after load")
	}
	if b.HasAllocated(0) {
		t.Fatal("position 0 should be free after load")
	}

	pos, err := b.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if pos != 0 {
		t.Fatalf("alloc after load should reuse freed position 0, got %d", pos)
	}
}

func TestAllocatorIterAllocated(t *testing.T) {
	a := NewFreeListAllocator(4096, 0, 0)
	a.Alloc()
	a.Alloc()
	a.Alloc()
	a.Free(4096)

	var got []common.Position
	for pos := range a.IterAllocated() {
		got = append(got, pos)
	}

	want := []common.Position{0, 8192}
	if len(got) != len(want) {
		t.Fatalf("iterated %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iterated %v, want %v", got, want)
		}
	}
}
