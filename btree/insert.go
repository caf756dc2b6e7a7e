package btree

import "github.com/arbordb/arbor/common"

func (t *Tree) isFullNode(n *Node) bool {
	if n.isLeaf() {
		return len(n.Keys) >= t.maxLeaf
	}
	return len(n.Refs) >= t.maxBranch
}

// insert is the engine behind the typed Insert operation (spec.md §4.9
// "Insert"): a fresh key returns true, a duplicate key is a no-op and
// returns false ("Duplicates return InsertedNothing; fresh inserts return
// InsertedEntry").
func (t *Tree) insert(key, val []byte) (bool, error) {
	root, err := t.getNode(t.root)
	if err != nil {
		return false, err
	}
	if t.isFullNode(root) {
		if err := t.splitRoot(root); err != nil {
			return false, err
		}
	}

	inserted, err := t.insertRecursive(t.root, key, val)
	if err != nil {
		return false, err
	}
	if inserted {
		t.size++
	}
	return inserted, nil
}

func (t *Tree) insertRecursive(pos common.Position, key, val []byte) (bool, error) {
	node, err := t.getNode(pos)
	if err != nil {
		return false, err
	}

	if node.isLeaf() {
		idx, found := lowerBoundKeys(node.Keys, key)
		if found {
			return false, nil
		}
		node.Keys = insertBytesAt(node.Keys, idx, key)
		node.Vals = insertBytesAt(node.Vals, idx, val)
		return true, t.putNode(pos, node)
	}

	idx := chooseLink(node.Refs, key)
	if node.LinkStat[idx] == LinkInvalid {
		return false, errBadInsertf("link %d at position %d is invalid", idx, pos)
	}
	childPos := node.Links[idx]

	child, err := t.getNode(childPos)
	if err != nil {
		return false, err
	}
	if t.isFullNode(child) {
		midKey, siblingPos, err := t.splitNode(childPos, child, pos)
		if err != nil {
			return false, err
		}
		node.Refs = insertBytesAt(node.Refs, idx, midKey)
		node.Links = insertPositionAt(node.Links, idx+1, siblingPos)
		node.LinkStat = insertStatusAt(node.LinkStat, idx+1, LinkValid)
		if err := t.putNode(pos, node); err != nil {
			return false, err
		}
		// The sibling may now hold the key; recompute which child to
		// descend into against the updated separator set.
		idx = chooseLink(node.Refs, key)
		childPos = node.Links[idx]
	}

	return t.insertRecursive(childPos, key, val)
}

// splitRoot promotes a full root to internal status, splits it in place,
// and installs a brand-new branch root above it (spec.md §4.9 "if the root
// is full, create a new root").
func (t *Tree) splitRoot(oldRoot *Node) error {
	newRootPos, err := t.pager.Alloc()
	if err != nil {
		return err
	}

	oldRootPos := t.root
	oldRoot.Root = IsInternal
	midKey, siblingPos, err := t.splitNode(oldRootPos, oldRoot, newRootPos)
	if err != nil {
		return err
	}

	newRoot := newBranch(IsRoot, NoPosition)
	newRoot.Refs = [][]byte{midKey}
	newRoot.Links = []common.Position{oldRootPos, siblingPos}
	newRoot.LinkStat = []LinkStatus{LinkValid, LinkValid}
	if err := t.putNode(newRootPos, newRoot); err != nil {
		return err
	}

	t.root = newRootPos
	t.depth++
	return nil
}

// splitNode splits a full node at pos into itself (left half, rewritten in
// place) and a freshly-allocated sibling (right half) whose parent is
// parentPos, per spec.md §4.9 "Split". Returns the key promoted to the
// parent and the sibling's position.
func (t *Tree) splitNode(pos common.Position, node *Node, parentPos common.Position) ([]byte, common.Position, error) {
	if node.isLeaf() {
		return t.splitLeaf(pos, node, parentPos)
	}
	return t.splitBranch(pos, node, parentPos)
}

func (t *Tree) splitLeaf(pos common.Position, node *Node, parentPos common.Position) ([]byte, common.Position, error) {
	pivot := len(node.Keys) / 2
	// The separator is the left half's last key, so that it bounds the left
	// child from above as chooseLink's invariant requires.
	midKey := node.Keys[pivot-1]

	siblingPos, err := t.pager.Alloc()
	if err != nil {
		return nil, 0, err
	}

	sibling := newLeaf(IsInternal, parentPos)
	sibling.Keys = append([][]byte(nil), node.Keys[pivot:]...)
	sibling.Vals = append([][]byte(nil), node.Vals[pivot:]...)
	sibling.NextLeaf = node.NextLeaf

	node.Keys = node.Keys[:pivot]
	node.Vals = node.Vals[:pivot]
	node.NextLeaf = siblingPos
	node.ParentPos = parentPos

	if err := t.putNode(siblingPos, sibling); err != nil {
		return nil, 0, err
	}
	if err := t.putNode(pos, node); err != nil {
		return nil, 0, err
	}
	return midKey, siblingPos, nil
}

func (t *Tree) splitBranch(pos common.Position, node *Node, parentPos common.Position) ([]byte, common.Position, error) {
	pivot := len(node.Refs) / 2
	midKey := node.Refs[pivot] // moved out, not copied, per spec.md §4.9

	siblingPos, err := t.pager.Alloc()
	if err != nil {
		return nil, 0, err
	}

	sibling := newBranch(IsInternal, parentPos)
	sibling.Refs = append([][]byte(nil), node.Refs[pivot+1:]...)
	sibling.Links = append([]common.Position(nil), node.Links[pivot+1:]...)
	sibling.LinkStat = append([]LinkStatus(nil), node.LinkStat[pivot+1:]...)

	node.Refs = node.Refs[:pivot]
	node.Links = node.Links[:pivot+1]
	node.LinkStat = node.LinkStat[:pivot+1]
	node.ParentPos = parentPos

	// Every child moved into sibling now has a new immediate parent.
	for i, childPos := range sibling.Links {
		if sibling.LinkStat[i] != LinkValid {
			continue
		}
		child, err := t.getNode(childPos)
		if err != nil {
			return nil, 0, err
		}
		child.ParentPos = siblingPos
		if err := t.putNode(childPos, child); err != nil {
			return nil, 0, err
		}
	}

	if err := t.putNode(siblingPos, sibling); err != nil {
		return nil, 0, err
	}
	if err := t.putNode(pos, node); err != nil {
		return nil, 0, err
	}
	return midKey, siblingPos, nil
}

func insertBytesAt(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertPositionAt(s []common.Position, idx int, v common.Position) []common.Position {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertStatusAt(s []LinkStatus, idx int, v LinkStatus) []LinkStatus {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}
