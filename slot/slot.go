// Package slot implements the indirection vector (spec.md §4.6) that gives
// variable-length values a stable identity: a Table maps a dense integer
// slot ID to a byte-range allocated through the pager's sub-page allocator,
// so a leaf can store a small fixed-width slot ID instead of an
// unboundedly-large value inline.
package slot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/arbordb/arbor/common"
	"github.com/arbordb/arbor/pager"
)

// Slot is one entry in the table: the byte-range it occupies and whether
// that range currently holds live data.
type Slot struct {
	Pos      common.Position
	Size     int
	Occupied bool
}

// Table is the slot table itself: a vector of Slot plus the pager it
// allocates sub-page regions through. ID is the slot's index in Slots.
type Table struct {
	identifier string
	pager      *pager.Pager
	Slots      []Slot
}

// New creates an empty slot table backed by p, named identifier for the
// purposes of Save/Load.
func New(identifier string, p *pager.Pager) *Table {
	return &Table{identifier: identifier, pager: p}
}

// Set serializes value, allocates a byte-range for it, and returns a fresh or
// reused slot ID identifying it.
func (t *Table) Set(value []byte) (int, error) {
	pos, err := t.pager.AllocInner(len(value))
	if err != nil {
		return 0, err
	}
	if err := t.pager.PlaceInner(pos, value); err != nil {
		return 0, err
	}

	entry := Slot{Pos: pos, Size: len(value), Occupied: true}
	for i := range t.Slots {
		if !t.Slots[i].Occupied {
			t.Slots[i] = entry
			return i, nil
		}
	}
	t.Slots = append(t.Slots, entry)
	return len(t.Slots) - 1, nil
}

// Get returns the bytes stored under slotID.
func (t *Table) Get(slotID int) ([]byte, error) {
	s, err := t.lookup(slotID)
	if err != nil {
		return nil, err
	}
	return t.pager.GetInner(s.Pos, s.Size)
}

// Replace overwrites the value stored under slotID with a new one, freeing
// the old byte-range once the new one is safely written.
func (t *Table) Replace(slotID int, value []byte) error {
	old, err := t.lookup(slotID)
	if err != nil {
		return err
	}

	newPos, err := t.pager.AllocInner(len(value))
	if err != nil {
		return err
	}
	if err := t.pager.PlaceInner(newPos, value); err != nil {
		return err
	}
	if err := t.pager.FreeInner(old.Pos, old.Size); err != nil {
		return err
	}

	t.Slots[slotID] = Slot{Pos: newPos, Size: len(value), Occupied: true}
	return nil
}

// Remove frees slotID's byte-range and marks the entry unoccupied, keeping it
// around for reuse by a future Set. Removing an already-unoccupied slot is a
// no-op, not an error (spec.md §9).
func (t *Table) Remove(slotID int) error {
	if slotID < 0 || slotID >= len(t.Slots) {
		return fmt.Errorf("%w: slot id %d out of range", common.ErrBadPosition, slotID)
	}
	s := &t.Slots[slotID]
	if !s.Occupied {
		return nil
	}
	if err := t.pager.FreeInner(s.Pos, s.Size); err != nil {
		return err
	}
	s.Occupied = false
	return nil
}

func (t *Table) lookup(slotID int) (Slot, error) {
	if slotID < 0 || slotID >= len(t.Slots) {
		return Slot{}, fmt.Errorf("%w: slot id %d out of range", common.ErrBadPosition, slotID)
	}
	s := t.Slots[slotID]
	if !s.Occupied {
		return Slot{}, fmt.Errorf("%w: slot id %d is not occupied", common.ErrBadPosition, slotID)
	}
	return s, nil
}

// Save persists {slots, identifier}; the byte ranges themselves are owned by
// the pager's sub-page allocator and persist with it.
func (t *Table) Save(w io.Writer) error {
	if err := writeString(w, t.identifier); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(t.Slots))); err != nil {
		return err
	}
	for _, s := range t.Slots {
		if err := binary.Write(w, binary.BigEndian, uint64(s.Pos)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(s.Size)); err != nil {
			return err
		}
		occ := byte(0)
		if s.Occupied {
			occ = 1
		}
		if _, err := w.Write([]byte{occ}); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the table's state from a stream previously written by Save.
func (t *Table) Load(r io.Reader) error {
	id, err := readString(r)
	if err != nil {
		return err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return fmt.Errorf("%w: slot table: %v", common.ErrBadRead, err)
	}
	slots := make([]Slot, n)
	for i := range slots {
		var pos uint64
		var size uint32
		var occ [1]byte
		if err := binary.Read(r, binary.BigEndian, &pos); err != nil {
			return fmt.Errorf("%w: slot table: %v", common.ErrBadRead, err)
		}
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return fmt.Errorf("%w: slot table: %v", common.ErrBadRead, err)
		}
		if _, err := io.ReadFull(r, occ[:]); err != nil {
			return fmt.Errorf("%w: slot table: %v", common.ErrBadRead, err)
		}
		slots[i] = Slot{Pos: common.Position(pos), Size: int(size), Occupied: occ[0] == 1}
	}
	t.identifier = id
	t.Slots = slots
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("%w: reading string length: %v", common.ErrBadRead, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: reading string: %v", common.ErrBadRead, err)
	}
	return string(buf), nil
}
