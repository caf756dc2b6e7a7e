package btree

import "github.com/arbordb/arbor/common"

// remove is the engine behind the typed Remove operation (spec.md §4.9
// "Remove"): descends like search, erases the leaf entry if present, then
// rebalances upward from the leaf.
func (t *Tree) remove(key []byte) ([]byte, bool, error) {
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
			val := node.Vals[idx]
			node.Keys = append(node.Keys[:idx], node.Keys[idx+1:]...)
			node.Vals = append(node.Vals[:idx], node.Vals[idx+1:]...)
			if err := t.putNode(pos, node); err != nil {
				return nil, false, err
			}
			t.size--
			if err := t.rebalance(pos); err != nil {
				return nil, false, err
			}
			return val, true, nil
		}

		idx := chooseLink(node.Refs, key)
		if node.LinkStat[idx] == LinkInvalid {
			return nil, false, errBadRemovef("link %d at position %d is invalid", idx, pos)
		}
		pos = node.Links[idx]
	}
}

func indexOfPosition(links []common.Position, pos common.Position) int {
	for i, p := range links {
		if p == pos {
			return i
		}
	}
	return -1
}

// rebalance repairs underflow at pos by borrowing from a sibling, or
// merging with one, walking up toward the root as merges cascade
// (spec.md §4.9 "Rebalance (underflow)").
func (t *Tree) rebalance(pos common.Position) error {
	node, err := t.getNode(pos)
	if err != nil {
		return err
	}
	min := t.minLeaf
	if !node.isLeaf() {
		min = t.minBranch
	}
	if node.numRecords() >= min || node.Root == IsRoot {
		return nil
	}

	parentPos := node.ParentPos
	parent, err := t.getNode(parentPos)
	if err != nil {
		return err
	}
	idx := indexOfPosition(parent.Links, pos)
	if idx < 0 {
		return errBadRemovef("node at position %d not found among parent %d's links", pos, parentPos)
	}

	hasLeft := idx > 0 && parent.LinkStat[idx-1] == LinkValid
	hasRight := idx+1 < len(parent.Links) && parent.LinkStat[idx+1] == LinkValid

	// Tie-break (spec.md §4.9): prefer borrowing from the left sibling,
	// then the right; merge with the left when available, else the right.
	if hasLeft {
		left, err := t.getNode(parent.Links[idx-1])
		if err != nil {
			return err
		}
		if left.numRecords() > min {
			return t.borrowFromLeft(parent, parentPos, idx, left, parent.Links[idx-1], node, pos)
		}
	}
	if hasRight {
		right, err := t.getNode(parent.Links[idx+1])
		if err != nil {
			return err
		}
		if right.numRecords() > min {
			return t.borrowFromRight(parent, parentPos, idx, node, pos, right, parent.Links[idx+1])
		}
	}
	if hasLeft {
		left, err := t.getNode(parent.Links[idx-1])
		if err != nil {
			return err
		}
		return t.mergeSiblings(parent, parentPos, idx-1, left, node)
	}
	if hasRight {
		right, err := t.getNode(parent.Links[idx+1])
		if err != nil {
			return err
		}
		return t.mergeSiblings(parent, parentPos, idx, node, right)
	}
	return errBadRemovef("underfull node at position %d has no live sibling", pos)
}

func (t *Tree) borrowFromLeft(parent *Node, parentPos common.Position, idx int, left *Node, leftPos common.Position, node *Node, pos common.Position) error {
	if node.isLeaf() {
		n := len(left.Keys)
		borrowedKey, borrowedVal := left.Keys[n-1], left.Vals[n-1]
		left.Keys, left.Vals = left.Keys[:n-1], left.Vals[:n-1]
		node.Keys = insertBytesAt(node.Keys, 0, borrowedKey)
		node.Vals = insertBytesAt(node.Vals, 0, borrowedVal)
		parent.Refs[idx-1] = left.Keys[len(left.Keys)-1]
	} else {
		sep := parent.Refs[idx-1]
		n := len(left.Links)
		movedLink, movedStat := left.Links[n-1], left.LinkStat[n-1]
		newSep := left.Refs[len(left.Refs)-1]
		left.Refs = left.Refs[:len(left.Refs)-1]
		left.Links = left.Links[:n-1]
		left.LinkStat = left.LinkStat[:n-1]
		node.Refs = insertBytesAt(node.Refs, 0, sep)
		node.Links = insertPositionAt(node.Links, 0, movedLink)
		node.LinkStat = insertStatusAt(node.LinkStat, 0, movedStat)
		parent.Refs[idx-1] = newSep
		if movedStat == LinkValid {
			if err := t.reparent(movedLink, pos); err != nil {
				return err
			}
		}
	}
	if err := t.putNode(leftPos, left); err != nil {
		return err
	}
	if err := t.putNode(pos, node); err != nil {
		return err
	}
	return t.putNode(parentPos, parent)
}

func (t *Tree) borrowFromRight(parent *Node, parentPos common.Position, idx int, node *Node, pos common.Position, right *Node, rightPos common.Position) error {
	if node.isLeaf() {
		borrowedKey, borrowedVal := right.Keys[0], right.Vals[0]
		right.Keys, right.Vals = right.Keys[1:], right.Vals[1:]
		node.Keys = append(node.Keys, borrowedKey)
		node.Vals = append(node.Vals, borrowedVal)
		parent.Refs[idx] = borrowedKey
	} else {
		sep := parent.Refs[idx]
		movedLink, movedStat := right.Links[0], right.LinkStat[0]
		newSep := right.Refs[0]
		right.Refs = right.Refs[1:]
		right.Links = right.Links[1:]
		right.LinkStat = right.LinkStat[1:]
		node.Refs = append(node.Refs, sep)
		node.Links = append(node.Links, movedLink)
		node.LinkStat = append(node.LinkStat, movedStat)
		parent.Refs[idx] = newSep
		if movedStat == LinkValid {
			if err := t.reparent(movedLink, pos); err != nil {
				return err
			}
		}
	}
	if err := t.putNode(pos, node); err != nil {
		return err
	}
	if err := t.putNode(rightPos, right); err != nil {
		return err
	}
	return t.putNode(parentPos, parent)
}

// mergeSiblings combines the sibling pair (left at parent.Links[leftIdx],
// right at parent.Links[leftIdx+1]) into one freshly-allocated page, then
// removes the now-redundant link and separator from parent and recurses
// upward (spec.md §4.9 "Merge").
func (t *Tree) mergeSiblings(parent *Node, parentPos common.Position, leftIdx int, left *Node, right *Node) error {
	var merged *Node
	if left.isLeaf() {
		merged = newLeaf(IsInternal, parentPos)
		merged.Keys = append(append([][]byte{}, left.Keys...), right.Keys...)
		merged.Vals = append(append([][]byte{}, left.Vals...), right.Vals...)
		merged.NextLeaf = right.NextLeaf
	} else {
		sep := parent.Refs[leftIdx]
		merged = newBranch(IsInternal, parentPos)
		merged.Refs = append(append(append([][]byte{}, left.Refs...), sep), right.Refs...)
		merged.Links = append(append([]common.Position{}, left.Links...), right.Links...)
		merged.LinkStat = append(append([]LinkStatus{}, left.LinkStat...), right.LinkStat...)
	}

	mergedPos, err := t.pager.Alloc()
	if err != nil {
		return err
	}
	if err := t.putNode(mergedPos, merged); err != nil {
		return err
	}
	if !merged.isLeaf() {
		for i, childPos := range merged.Links {
			if merged.LinkStat[i] != LinkValid {
				continue
			}
			if err := t.reparent(childPos, mergedPos); err != nil {
				return err
			}
		}
	}

	parent.Links[leftIdx] = mergedPos
	parent.Links = append(parent.Links[:leftIdx+1], parent.Links[leftIdx+2:]...)
	parent.LinkStat = append(parent.LinkStat[:leftIdx+1], parent.LinkStat[leftIdx+2:]...)
	parent.Refs = append(parent.Refs[:leftIdx], parent.Refs[leftIdx+1:]...)
	if err := t.putNode(parentPos, parent); err != nil {
		return err
	}

	// A root left with a single child hands the root role to that child.
	if parent.Root == IsRoot && len(parent.Refs) == 0 {
		merged.Root = IsRoot
		merged.ParentPos = NoPosition
		t.root = mergedPos
		t.depth--
		return t.putNode(mergedPos, merged)
	}

	return t.rebalance(parentPos)
}

func (t *Tree) reparent(childPos, newParentPos common.Position) error {
	child, err := t.getNode(childPos)
	if err != nil {
		return err
	}
	child.ParentPos = newParentPos
	return t.putNode(childPos, child)
}
