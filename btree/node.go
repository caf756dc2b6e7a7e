// Package btree implements the persistent B+-tree described by spec.md §3-§4:
// a disk-resident index whose leaves are linked in key order and whose
// fan-out is computed at runtime from the serialized size of a node. It is
// the sole user of the pager package; callers never touch pages directly.
package btree

import (
	"errors"
	"math"

	"github.com/arbordb/arbor/common"
)

// Kind tags a node as a leaf or a branch (spec.md §3: "tagged variant
// {Leaf, Branch}"), replacing what an inheritance-based design would split
// into two page subclasses.
type Kind byte

const (
	KindLeaf Kind = iota
	KindBranch
)

// RootStatus records whether a node currently sits at the root of the tree.
// The root is allowed to be underfull; every other node must stay within
// [min_records, max_records].
type RootStatus byte

const (
	IsRoot RootStatus = iota
	IsInternal
)

// LinkStatus marks a branch link as pointing at a live child (Valid) or not
// (Invalid). Nodes are never deleted from the backing file: a merge removes
// the absorbed children's links from the parent and leaves their pages
// unreclaimed. No operation in this package sets a link Invalid; descent
// reports an Invalid link as an error.
type LinkStatus byte

const (
	LinkValid LinkStatus = iota
	LinkInvalid
)

// NoPosition is the sentinel used for "no parent" and "no next leaf", since
// position 0 is itself a legitimate page (the very first one allocated).
const NoPosition common.Position = common.Position(math.MaxUint64)

// Node is the in-memory form of one tree page. Leaf fields (Keys, Vals,
// NextLeaf) and branch fields (Refs, Links, LinkStat) are mutually
// exclusive; which set is populated is determined by Kind.
type Node struct {
	Kind       Kind
	Root       RootStatus
	ParentPos  common.Position
	NextLeaf   common.Position // leaf only; NoPosition if this is the last leaf

	Keys [][]byte // leaf only, strictly ascending
	Vals [][]byte // leaf only, len(Vals) == len(Keys)

	Refs     [][]byte        // branch only, len(Refs) == len(Links)-1
	Links    []common.Position // branch only
	LinkStat []LinkStatus      // branch only, len(LinkStat) == len(Links)
}

var errMalformedNode = errors.New("malformed node")

func newLeaf(root RootStatus, parent common.Position) *Node {
	return &Node{
		Kind:      KindLeaf,
		Root:      root,
		ParentPos: parent,
		NextLeaf:  NoPosition,
	}
}

func newBranch(root RootStatus, parent common.Position) *Node {
	return &Node{
		Kind:      KindBranch,
		Root:      root,
		ParentPos: parent,
	}
}

// numRecords is the record count the fan-out bound is measured against:
// key count for a leaf, separator count for a branch.
func (n *Node) numRecords() int {
	if n.Kind == KindLeaf {
		return len(n.Keys)
	}
	return len(n.Refs)
}

func (n *Node) isLeaf() bool { return n.Kind == KindLeaf }
