package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/arbordb/arbor/common"
)

// inlineValueThreshold is the largest value stored directly inside a leaf
// record. Anything bigger is written through the slot table and the leaf
// stores only a slot ID (spec.md §2: "large values live in slot pages and
// are referenced indirectly by a slot ID stored in the leaf").
const inlineValueThreshold = 256

const (
	valueTagInline   byte = 0
	valueTagIndirect byte = 1
)

// InsertResult is the tagged outcome of Insert (spec.md §9 "tagged variants
// over inheritance": InsertedEntry | InsertedNothing).
type InsertResult int

const (
	InsertedNothing InsertResult = iota
	InsertedEntry
)

func (r InsertResult) String() string {
	if r == InsertedEntry {
		return "InsertedEntry"
	}
	return "InsertedNothing"
}

// RemoveResult is the tagged outcome of Remove: RemovedVal{val} |
// RemovedNothing.
type RemoveResult struct {
	Found bool
	Val   []byte
}

func (t *Tree) encodeValue(val []byte) ([]byte, error) {
	if len(val) <= inlineValueThreshold {
		encoded := make([]byte, 1+len(val))
		encoded[0] = valueTagInline
		copy(encoded[1:], val)
		return encoded, nil
	}
	slotID, err := t.slots.Set(val)
	if err != nil {
		return nil, err
	}
	encoded := make([]byte, 5)
	encoded[0] = valueTagIndirect
	binary.BigEndian.PutUint32(encoded[1:], uint32(slotID))
	return encoded, nil
}

func (t *Tree) decodeValue(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("%w: %v", common.ErrBadRead, errMalformedNode)
	}
	switch encoded[0] {
	case valueTagInline:
		return encoded[1:], nil
	case valueTagIndirect:
		if len(encoded) < 5 {
			return nil, fmt.Errorf("%w: %v", common.ErrBadRead, errMalformedNode)
		}
		slotID := binary.BigEndian.Uint32(encoded[1:])
		return t.slots.Get(int(slotID))
	default:
		return nil, fmt.Errorf("%w: %v", common.ErrBadRead, errMalformedNode)
	}
}

// freeIndirectValue releases the slot a value was stored through, if any;
// a no-op for inline values.
func (t *Tree) freeIndirectValue(encoded []byte) error {
	if len(encoded) == 0 || encoded[0] != valueTagIndirect {
		return nil
	}
	slotID := binary.BigEndian.Uint32(encoded[1:])
	return t.slots.Remove(int(slotID))
}

// Insert adds key->val, returning InsertedNothing if key is already present
// (the existing value is left untouched) or InsertedEntry on a fresh key.
func (t *Tree) Insert(key, val []byte) (InsertResult, error) {
	if len(key) == 0 {
		return InsertedNothing, common.ErrKeyEmpty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return InsertedNothing, common.ErrClosed
	}

	encoded, err := t.encodeValue(val)
	if err != nil {
		return InsertedNothing, err
	}
	inserted, err := t.insert(key, encoded)
	if err != nil {
		return InsertedNothing, err
	}
	if !inserted {
		return InsertedNothing, nil
	}
	return InsertedEntry, nil
}

// Get returns the value stored for key, and whether key was present.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, common.ErrKeyEmpty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false, common.ErrClosed
	}

	encoded, ok, err := t.search(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	val, err := t.decodeValue(encoded)
	return val, true, err
}

// Contains reports whether key is present. It goes through Get, so the
// value is still fetched and decoded.
func (t *Tree) Contains(key []byte) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

// Remove erases key, freeing any indirect slot storage its value used.
func (t *Tree) Remove(key []byte) (RemoveResult, error) {
	if len(key) == 0 {
		return RemoveResult{}, common.ErrKeyEmpty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return RemoveResult{}, common.ErrClosed
	}

	encoded, found, err := t.remove(key)
	if err != nil {
		return RemoveResult{}, err
	}
	if !found {
		return RemoveResult{Found: false}, nil
	}
	val, err := t.decodeValue(encoded)
	if err != nil {
		return RemoveResult{}, err
	}
	if err := t.freeIndirectValue(encoded); err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Found: true, Val: val}, nil
}

// Min returns the smallest key/value pair in the tree, if any.
func (t *Tree) Min() (key, val []byte, ok bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, false, common.ErrClosed
	}
	k, encoded, ok, err := t.minEntry()
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	v, err := t.decodeValue(encoded)
	return k, v, true, err
}

// Max returns the largest key/value pair in the tree, if any.
func (t *Tree) Max() (key, val []byte, ok bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, false, common.ErrClosed
	}
	k, encoded, ok, err := t.maxEntry()
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	v, err := t.decodeValue(encoded)
	return k, v, true, err
}

// Range yields every (key, val) pair with kMin <= key < kMax, in ascending
// order. A nil kMin starts from the first key; a nil kMax scans to the end.
// The sequence holds no lock across yields (spec.md §9 "Lazy sequences"):
// each entry is decoded eagerly but the tree is only locked while fetching
// the next leaf page.
func (t *Tree) Range(kMin, kMax []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		pos, idx, err := t.lockedSeekLeaf(kMin)
		if err != nil || pos == NoPosition {
			return
		}
		for pos != NoPosition {
			keys, vals, next, ok := t.lockedLeafSlice(pos, idx, kMax)
			for i := range keys {
				val, err := t.decodeValue(vals[i])
				if err != nil {
					return
				}
				if !yield(keys[i], val) {
					return
				}
			}
			if !ok {
				return
			}
			pos = next
			idx = 0
		}
	}
}

// FullScan is Range(nil, nil): every entry in ascending key order.
func (t *Tree) FullScan() iter.Seq2[[]byte, []byte] {
	return t.Range(nil, nil)
}

func (t *Tree) lockedSeekLeaf(kMin []byte) (common.Position, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return NoPosition, 0, common.ErrClosed
	}
	return t.seekLeaf(kMin)
}

// lockedLeafSlice returns the keys/values of leaf pos at and after idx that
// satisfy key < kMax (kMax == nil means unbounded), plus the next leaf's
// position and whether scanning should continue past it.
func (t *Tree) lockedLeafSlice(pos common.Position, idx int, kMax []byte) (keys, vals [][]byte, next common.Position, cont bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, NoPosition, false
	}
	node, err := t.getNode(pos)
	if err != nil {
		return nil, nil, NoPosition, false
	}
	for i := idx; i < len(node.Keys); i++ {
		if kMax != nil && bytes.Compare(node.Keys[i], kMax) >= 0 {
			return node.Keys[idx:i], node.Vals[idx:i], NoPosition, false
		}
	}
	return node.Keys[idx:], node.Vals[idx:], node.NextLeaf, node.NextLeaf != NoPosition
}
