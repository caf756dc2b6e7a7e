// Package alloc implements the pluggable page-allocation policies pager.Pager
// delegates to: a monotonic stack allocator and a free-list allocator that reuses
// freed positions. Both satisfy the same Allocator capability set (spec.md §4.1,
// §9 "Policies as capability objects") so the pager depends only on the interface,
// never on a concrete allocation strategy.
package alloc

import (
	"encoding/binary"
	"io"
	"iter"

	"github.com/arbordb/arbor/common"
)

// Allocator assigns and releases page positions in a file. Positions it returns
// are always page-aligned multiples of pageSize.
type Allocator interface {
	// Alloc returns a fresh page position, or common.ErrBadAlloc if none can be
	// produced (out of space under a configured page limit).
	Alloc() (common.Position, error)

	// Free releases a previously allocated position for reuse. Implementations
	// that cannot support release (e.g. StackAllocator) return common.ErrBadAlloc.
	Free(pos common.Position) error

	// HasAllocated reports whether pos is currently considered allocated.
	HasAllocated(pos common.Position) bool

	// IterAllocated yields every currently-allocated position in an unspecified
	// but stable-for-the-call order. It is a finite lazy sequence, not
	// restartable, and holds no lock across yields (spec.md §9).
	IterAllocated() iter.Seq[common.Position]

	// Save serializes the allocator's state.
	Save(w io.Writer) error
	// Load replaces the allocator's state from a previously Save'd stream.
	Load(r io.Reader) error
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
