package btree

import (
	"bytes"
	"fmt"

	"github.com/arbordb/arbor/common"
)

// lowerBoundKeys returns the smallest index i such that keys[i] >= key, and
// whether keys[i] == key exactly (spec.md §4.9 "binary-search keys").
func lowerBoundKeys(keys [][]byte, key []byte) (idx int, found bool) {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		c := bytes.Compare(keys[mid], key)
		if c == 0 {
			return mid, true
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// chooseLink picks the child index for key in a branch whose separators
// satisfy invariant 2 (max(subtree(links[i])) <= refs[i] < min(subtree(
// links[i+1]))): the smallest i with key <= refs[i], or len(refs) if key
// exceeds every separator (spec.md §4.9 "lower-bound semantics").
func chooseLink(refs [][]byte, key []byte) int {
	lo, hi := 0, len(refs)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(key, refs[mid]) <= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// search descends from the root and returns the value stored for key, if
// any (spec.md §4.9 "Search").
func (t *Tree) search(key []byte) ([]byte, bool, error) {
	pos := t.root
	for {
		node, err := t.getNode(pos)
		if err != nil {
			return nil, false, err
		}
		if node.isLeaf() {
			idx, found := lowerBoundKeys(node.Keys, key)
			if !found {
				return nil, false, nil
			}
			return node.Vals[idx], true, nil
		}

		idx := chooseLink(node.Refs, key)
		if node.LinkStat[idx] == LinkInvalid {
			return nil, false, fmt.Errorf("%w: link %d at position %d is invalid", common.ErrBadSearch, idx, pos)
		}
		pos = node.Links[idx]
	}
}

// minEntry descends through the leftmost valid link at each branch
// (spec.md §4.9 "Corner lookup").
func (t *Tree) minEntry() (key, val []byte, ok bool, err error) {
	return t.cornerEntry(false)
}

// maxEntry descends through the rightmost valid link at each branch.
func (t *Tree) maxEntry() (key, val []byte, ok bool, err error) {
	return t.cornerEntry(true)
}

func (t *Tree) cornerEntry(rightmost bool) ([]byte, []byte, bool, error) {
	pos := t.root
	for {
		node, err := t.getNode(pos)
		if err != nil {
			return nil, nil, false, err
		}
		if node.isLeaf() {
			if len(node.Keys) == 0 {
				return nil, nil, false, nil
			}
			if rightmost {
				last := len(node.Keys) - 1
				return node.Keys[last], node.Vals[last], true, nil
			}
			return node.Keys[0], node.Vals[0], true, nil
		}

		idx := -1
		if rightmost {
			for i := len(node.LinkStat) - 1; i >= 0; i-- {
				if node.LinkStat[i] == LinkValid {
					idx = i
					break
				}
			}
		} else {
			for i, ls := range node.LinkStat {
				if ls == LinkValid {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			return nil, nil, false, fmt.Errorf("%w: branch at position %d has no valid link", common.ErrBadSearch, pos)
		}
		pos = node.Links[idx]
	}
}

// seekLeaf descends to the leaf that would contain kMin, and the index
// within it of the first key >= kMin (spec.md §4.9 "Range scan": "descend
// to the leaf containing k_min"). A nil kMin seeks the very first leaf.
func (t *Tree) seekLeaf(kMin []byte) (common.Position, int, error) {
	pos := t.root
	for {
		node, err := t.getNode(pos)
		if err != nil {
			return NoPosition, 0, err
		}
		if node.isLeaf() {
			if kMin == nil {
				return pos, 0, nil
			}
			idx, _ := lowerBoundKeys(node.Keys, kMin)
			return pos, idx, nil
		}

		var idx int
		if kMin == nil {
			idx = -1
			for i, ls := range node.LinkStat {
				if ls == LinkValid {
					idx = i
					break
				}
			}
			if idx < 0 {
				return NoPosition, 0, fmt.Errorf("%w: branch at position %d has no valid link", common.ErrBadSearch, pos)
			}
		} else {
			idx = chooseLink(node.Refs, kMin)
			if node.LinkStat[idx] == LinkInvalid {
				return NoPosition, 0, fmt.Errorf("%w: link %d at position %d is invalid", common.ErrBadSearch, idx, pos)
			}
		}
		pos = node.Links[idx]
	}
}
