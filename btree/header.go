package btree

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/arbordb/arbor/common"
)

// headerMagic identifies a tree header file (spec.md §6: "magic (u32 =
// 0xB75EEA41)").
const headerMagic uint32 = 0xB75EEA41

// header is the single serialized struct persisted alongside the data file
// (spec.md §3 "Tree header", §6 "Persisted header format").
type header struct {
	RootPos        common.Position
	Size           uint64
	Depth          uint64
	MaxRecordsLeaf int64
	MaxRecordsBranch int64
}

func (h header) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating header %s: %v", common.ErrBadWrite, path, err)
	}
	defer f.Close()

	buf := make([]byte, 4+8+8+8+8+8)
	off := 0
	binary.BigEndian.PutUint32(buf[off:], headerMagic)
	off += 4
	binary.BigEndian.PutUint64(buf[off:], uint64(h.RootPos))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], h.Size)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], h.Depth)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(h.MaxRecordsLeaf))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(h.MaxRecordsBranch))

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("%w: writing header %s: %v", common.ErrBadWrite, path, err)
	}
	return nil
}

func loadHeader(path string) (header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return header{}, fmt.Errorf("%w: reading header %s: %v", common.ErrBadRead, path, err)
	}
	if len(data) < 4+8+8+8+8+8 {
		return header{}, fmt.Errorf("%w: header %s truncated", common.ErrBadRead, path)
	}
	off := 0
	magic := binary.BigEndian.Uint32(data[off:])
	off += 4
	if magic != headerMagic {
		return header{}, fmt.Errorf("%w: header %s has bad magic %#x", common.ErrBadRead, path, magic)
	}
	h := header{}
	h.RootPos = common.Position(binary.BigEndian.Uint64(data[off:]))
	off += 8
	h.Size = binary.BigEndian.Uint64(data[off:])
	off += 8
	h.Depth = binary.BigEndian.Uint64(data[off:])
	off += 8
	h.MaxRecordsLeaf = int64(binary.BigEndian.Uint64(data[off:]))
	off += 8
	h.MaxRecordsBranch = int64(binary.BigEndian.Uint64(data[off:]))
	return h, nil
}
