package pager

import (
	"fmt"

	"github.com/arbordb/arbor/common"
)

// DefaultPageSize matches the common OS page size and is used whenever a
// caller does not override it (spec.md §3: "suggested 4096 or 16384 bytes;
// configurable").
const DefaultPageSize = 4096

// Page is a fixed-size byte buffer: the unit of allocation, I/O and caching.
// Byte 0 is always the page-type tag; everything after it is interpreted by
// the node codec (for common.PageTypeNode) or the sub-page allocator (for
// common.PageTypeSlots).
type Page struct {
	pos   common.Position
	data  []byte // length == the owning pager's page size
	dirty bool
}

// NewPage allocates a fresh, zeroed page of the given type at pos.
func NewPage(pos common.Position, size uint32, typ common.PageType) *Page {
	data := make([]byte, size)
	data[0] = byte(typ)
	return &Page{pos: pos, data: data, dirty: true}
}

// LoadPage wraps raw bytes read from disk as a Page. data is taken by
// reference, not copied, since the caller (the pager) owns a freshly read
// buffer and passes ownership in.
func LoadPage(pos common.Position, data []byte) (*Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty page buffer", common.ErrBadRead)
	}
	return &Page{pos: pos, data: data, dirty: false}, nil
}

func (p *Page) Position() common.Position { return p.pos }

func (p *Page) Type() common.PageType { return common.PageType(p.data[0]) }

func (p *Page) SetType(t common.PageType) {
	p.data[0] = byte(t)
	p.dirty = true
}

func (p *Page) IsDirty() bool { return p.dirty }

func (p *Page) SetDirty(dirty bool) { p.dirty = dirty }

// Size returns the full page length, including the type byte.
func (p *Page) Size() int { return len(p.data) }

// Data returns the full underlying buffer, type byte included. Mutating it
// does not automatically mark the page dirty; callers that write through it
// must call SetDirty(true) themselves (the node codec and sub-page allocator
// do this).
func (p *Page) Data() []byte { return p.data }

// Payload returns everything after the type byte.
func (p *Page) Payload() []byte { return p.data[1:] }

// Clone makes an independent copy of the page, used when a node is read,
// mutated in memory and written back under a (possibly different) position.
func (p *Page) Clone(pos common.Position) *Page {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	return &Page{pos: pos, data: data, dirty: true}
}
