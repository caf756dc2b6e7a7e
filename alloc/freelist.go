package alloc

import (
	"fmt"
	"io"
	"iter"
	"sort"
	"sync"

	"github.com/arbordb/arbor/common"
)

// FreeListAllocator reuses freed positions before growing the file. Freed
// positions are kept in a slice sorted ascending by position; Alloc pops from
// the end so the largest freed position is handed out first (spec.md §4.1),
// which in practice also tends to be the most recently freed one since
// positions only grow over a file's lifetime.
type FreeListAllocator struct {
	mu         sync.Mutex
	pageSize   uint32
	freeList   []common.Position // sorted ascending; Alloc pops the tail (largest)
	nextUnused uint64            // next never-used page index
	limit      uint64            // hard cap on nextUnused; 0 means unbounded
}

var _ Allocator = (*FreeListAllocator)(nil)

// NewFreeListAllocator creates a free-list allocator. limit is the maximum
// number of pages (0 for unbounded); firstUnused is normally 0 or 1 if page 0
// is reserved for a header.
func NewFreeListAllocator(pageSize uint32, firstUnused uint64, limit uint64) *FreeListAllocator {
	return &FreeListAllocator{pageSize: pageSize, nextUnused: firstUnused, limit: limit}
}

func (f *FreeListAllocator) Alloc() (common.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.freeList); n > 0 {
		pos := f.freeList[n-1]
		f.freeList = f.freeList[:n-1]
		return pos, nil
	}

	if f.limit != 0 && f.nextUnused >= f.limit {
		return 0, fmt.Errorf("%w: out of space (limit=%d pages)", common.ErrBadAlloc, f.limit)
	}

	pos := common.Position(f.nextUnused * uint64(f.pageSize))
	f.nextUnused++
	return pos, nil
}

func (f *FreeListAllocator) Free(pos common.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if uint64(pos)%uint64(f.pageSize) != 0 {
		return fmt.Errorf("%w: position %d is not page-aligned", common.ErrBadPosition, pos)
	}

	highest := common.Position((f.nextUnused - 1) * uint64(f.pageSize))
	if f.nextUnused > 0 && pos == highest {
		f.nextUnused--
		return nil
	}

	i := sort.Search(len(f.freeList), func(i int) bool { return f.freeList[i] >= pos })
	if i < len(f.freeList) && f.freeList[i] == pos {
		return fmt.Errorf("%w: position %d already free", common.ErrBadPosition, pos)
	}
	f.freeList = append(f.freeList, 0)
	copy(f.freeList[i+1:], f.freeList[i:])
	f.freeList[i] = pos
	return nil
}

func (f *FreeListAllocator) HasAllocated(pos common.Position) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if uint64(pos) >= f.nextUnused*uint64(f.pageSize) {
		return false
	}
	i := sort.Search(len(f.freeList), func(i int) bool { return f.freeList[i] >= pos })
	return !(i < len(f.freeList) && f.freeList[i] == pos)
}

func (f *FreeListAllocator) IterAllocated() iter.Seq[common.Position] {
	return func(yield func(common.Position) bool) {
		f.mu.Lock()
		nextUnused := f.nextUnused
		pageSize := uint64(f.pageSize)
		freed := make(map[common.Position]struct{}, len(f.freeList))
		for _, p := range f.freeList {
			freed[p] = struct{}{}
		}
		f.mu.Unlock()

		for i := uint64(0); i < nextUnused; i++ {
			pos := common.Position(i * pageSize)
			if _, isFree := freed[pos]; isFree {
				continue
			}
			if !yield(pos) {
				return
			}
		}
	}
}

func (f *FreeListAllocator) Save(w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeUint64(w, f.nextUnused); err != nil {
		return err
	}
	if err := writeUint64(w, f.limit); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(len(f.freeList))); err != nil {
		return err
	}
	for _, pos := range f.freeList {
		if err := writeUint64(w, uint64(pos)); err != nil {
			return err
		}
	}
	return nil
}

func (f *FreeListAllocator) Load(r io.Reader) error {
	nextUnused, err := readUint64(r)
	if err != nil {
		return fmt.Errorf("%w: free-list allocator: %v", common.ErrBadRead, err)
	}
	limit, err := readUint64(r)
	if err != nil {
		return fmt.Errorf("%w: free-list allocator: %v", common.ErrBadRead, err)
	}
	count, err := readUint64(r)
	if err != nil {
		return fmt.Errorf("%w: free-list allocator: %v", common.ErrBadRead, err)
	}
	freeList := make([]common.Position, count)
	for i := range freeList {
		pos, err := readUint64(r)
		if err != nil {
			return fmt.Errorf("%w: free-list allocator: %v", common.ErrBadRead, err)
		}
		freeList[i] = common.Position(pos)
	}

	f.mu.Lock()
	f.nextUnused = nextUnused
	f.limit = limit
	f.freeList = freeList
	f.mu.Unlock()
	return nil
}
