package alloc

import (
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/arbordb/arbor/common"
)

// StackAllocator hands out strictly increasing page positions and never reuses
// one: alloc is O(1), Free always fails, HasAllocated is a single comparison,
// iteration costs O(cursor/pageSize). This is the cheapest policy and is the
// right choice when the dataset is append-only or pages are never freed.
type StackAllocator struct {
	mu       sync.Mutex
	pageSize uint32
	cursor   common.Position // next position to hand out
}

var _ Allocator = (*StackAllocator)(nil)

// NewStackAllocator creates a stack allocator over pages of size pageSize,
// starting the cursor at firstPos (normally 0, or past a reserved header page).
func NewStackAllocator(pageSize uint32, firstPos common.Position) *StackAllocator {
	return &StackAllocator{pageSize: pageSize, cursor: firstPos}
}

func (s *StackAllocator) Alloc() (common.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.cursor
	s.cursor += common.Position(s.pageSize)
	return pos, nil
}

func (s *StackAllocator) Free(pos common.Position) error {
	return fmt.Errorf("%w: stack allocator does not support free", common.ErrBadAlloc)
}

func (s *StackAllocator) HasAllocated(pos common.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pos < s.cursor
}

func (s *StackAllocator) IterAllocated() iter.Seq[common.Position] {
	return func(yield func(common.Position) bool) {
		s.mu.Lock()
		cursor := s.cursor
		pageSize := common.Position(s.pageSize)
		s.mu.Unlock()

		for pos := common.Position(0); pos < cursor; pos += pageSize {
			if !yield(pos) {
				return
			}
		}
	}
}

func (s *StackAllocator) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeUint64(w, uint64(s.cursor))
}

func (s *StackAllocator) Load(r io.Reader) error {
	cursor, err := readUint64(r)
	if err != nil {
		return fmt.Errorf("%w: stack allocator: %v", common.ErrBadRead, err)
	}
	s.mu.Lock()
	s.cursor = common.Position(cursor)
	s.mu.Unlock()
	return nil
}
