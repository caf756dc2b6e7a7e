package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/arbordb/arbor/common"
	"github.com/arbordb/arbor/pager"
)

// encodedSize returns the exact number of payload bytes encodeNode would
// produce for n, used by fanout.go to evaluate candidate record counts
// without actually allocating a page (spec.md §4.8).
func encodedSize(n *Node) int {
	size := 1 + 1 + 8 + 8 // kind, root, parentPos, nextLeaf (always present; unused by branches)
	if n.isLeaf() {
		size += 4
		for i := range n.Keys {
			size += varintSize(uint64(len(n.Keys[i]))) + len(n.Keys[i])
			size += varintSize(uint64(len(n.Vals[i]))) + len(n.Vals[i])
		}
		return size
	}
	size += 4
	for _, ref := range n.Refs {
		size += varintSize(uint64(len(ref))) + len(ref)
	}
	size += 4
	size += len(n.Links) * (8 + 1)
	return size
}

// encodeNode serializes the node portion of a page: the same bytes for
// every call on an equal *Node, and the inverse of decodeNode (spec.md §4.7:
// "from_page and make_page are total functions and mutually inverse").
func encodeNode(n *Node) []byte {
	buf := make([]byte, encodedSize(n))
	off := 0
	buf[off] = byte(n.Kind)
	off++
	buf[off] = byte(n.Root)
	off++
	binary.BigEndian.PutUint64(buf[off:], uint64(n.ParentPos))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(n.NextLeaf))
	off += 8

	if n.isLeaf() {
		binary.BigEndian.PutUint32(buf[off:], uint32(len(n.Keys)))
		off += 4
		for i := range n.Keys {
			off += putUvarint(buf[off:], uint64(len(n.Keys[i])))
			off += copy(buf[off:], n.Keys[i])
			off += putUvarint(buf[off:], uint64(len(n.Vals[i])))
			off += copy(buf[off:], n.Vals[i])
		}
		return buf
	}

	binary.BigEndian.PutUint32(buf[off:], uint32(len(n.Refs)))
	off += 4
	for _, ref := range n.Refs {
		off += putUvarint(buf[off:], uint64(len(ref)))
		off += copy(buf[off:], ref)
	}
	binary.BigEndian.PutUint32(buf[off:], uint32(len(n.Links)))
	off += 4
	for i, link := range n.Links {
		binary.BigEndian.PutUint64(buf[off:], uint64(link))
		off += 8
		buf[off] = byte(n.LinkStat[i])
		off++
	}
	return buf
}

// decodeNode parses the node portion previously written by encodeNode.
// Trailing bytes in buf (the unused tail of the page) are ignored, per
// spec.md §4.7.
func decodeNode(buf []byte) (*Node, error) {
	if len(buf) < 18 {
		return nil, fmt.Errorf("%w: node header truncated", common.ErrBadRead)
	}
	n := &Node{}
	off := 0
	n.Kind = Kind(buf[off])
	off++
	n.Root = RootStatus(buf[off])
	off++
	n.ParentPos = common.Position(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	n.NextLeaf = common.Position(binary.BigEndian.Uint64(buf[off:]))
	off += 8

	if n.Kind == KindLeaf {
		if off+4 > len(buf) {
			return nil, fmt.Errorf("%w: leaf count truncated", common.ErrBadRead)
		}
		count := binary.BigEndian.Uint32(buf[off:])
		off += 4
		n.Keys = make([][]byte, count)
		n.Vals = make([][]byte, count)
		for i := 0; i < int(count); i++ {
			var err error
			n.Keys[i], off, err = readVarBytes(buf, off)
			if err != nil {
				return nil, err
			}
			n.Vals[i], off, err = readVarBytes(buf, off)
			if err != nil {
				return nil, err
			}
		}
		return n, nil
	}

	if off+4 > len(buf) {
		return nil, fmt.Errorf("%w: branch ref count truncated", common.ErrBadRead)
	}
	numRefs := binary.BigEndian.Uint32(buf[off:])
	off += 4
	n.Refs = make([][]byte, numRefs)
	for i := 0; i < int(numRefs); i++ {
		var err error
		n.Refs[i], off, err = readVarBytes(buf, off)
		if err != nil {
			return nil, err
		}
	}

	if off+4 > len(buf) {
		return nil, fmt.Errorf("%w: branch link count truncated", common.ErrBadRead)
	}
	numLinks := binary.BigEndian.Uint32(buf[off:])
	off += 4
	n.Links = make([]common.Position, numLinks)
	n.LinkStat = make([]LinkStatus, numLinks)
	for i := 0; i < int(numLinks); i++ {
		if off+9 > len(buf) {
			return nil, fmt.Errorf("%w: branch link truncated", common.ErrBadRead)
		}
		n.Links[i] = common.Position(binary.BigEndian.Uint64(buf[off:]))
		off += 8
		n.LinkStat[i] = LinkStatus(buf[off])
		off++
	}
	return n, nil
}

func readVarBytes(buf []byte, off int) ([]byte, int, error) {
	length, n := uvarint(buf[off:])
	if n <= 0 {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrBadRead, errMalformedNode)
	}
	off += n
	if off+int(length) > len(buf) {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrBadRead, errMalformedNode)
	}
	out := make([]byte, length)
	copy(out, buf[off:off+int(length)])
	return out, off + int(length), nil
}

// makePage serializes n into a fresh Node-typed page of pageSize, failing
// with BadWrite if the encoding does not fit.
func makePage(n *Node, pos common.Position, pageSize uint32) (*pager.Page, error) {
	encoded := encodeNode(n)
	page := pager.NewPage(pos, pageSize, common.PageTypeNode)
	if len(encoded) > len(page.Payload()) {
		return nil, fmt.Errorf("%w: node of %d bytes does not fit a %d byte page", common.ErrBadWrite, len(encoded), pageSize)
	}
	copy(page.Payload(), encoded)
	page.SetDirty(true)
	return page, nil
}

// nodeFromPage is the inverse of makePage.
func nodeFromPage(page *pager.Page) (*Node, error) {
	if page.Type() != common.PageTypeNode {
		return nil, fmt.Errorf("%w: position %d is not a node page", common.ErrBadRead, page.Position())
	}
	return decodeNode(page.Payload())
}
