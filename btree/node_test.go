package btree

import (
	"testing"

	"github.com/arbordb/arbor/common"
)

func TestNewLeafDefaults(t *testing.T) {
	n := newLeaf(IsRoot, NoPosition)
	if !n.isLeaf() {
		t.Fatal("newLeaf should produce a leaf node")
	}
	if n.Root != IsRoot || n.ParentPos != NoPosition || n.NextLeaf != NoPosition {
		t.Fatalf("unexpected leaf defaults: %+v", n)
	}
	if n.numRecords() != 0 {
		t.Fatalf("numRecords() on empty leaf = %d, want 0", n.numRecords())
	}
}

func TestNewBranchDefaults(t *testing.T) {
	n := newBranch(IsInternal, common.Position(7))
	if n.isLeaf() {
		t.Fatal("newBranch should not produce a leaf node")
	}
	if n.Root != IsInternal || n.ParentPos != common.Position(7) {
		t.Fatalf("unexpected branch defaults: %+v", n)
	}
	if n.numRecords() != 0 {
		t.Fatalf("numRecords() on empty branch = %d, want 0", n.numRecords())
	}
}

func TestNumRecordsCountsCorrectCollection(t *testing.T) {
	leaf := newLeaf(IsInternal, 0)
	leaf.Keys = [][]byte{{1}, {2}, {3}}
	leaf.Vals = [][]byte{{1}, {2}, {3}}
	if leaf.numRecords() != 3 {
		t.Fatalf("leaf numRecords() = %d, want 3", leaf.numRecords())
	}

	branch := newBranch(IsInternal, 0)
	branch.Refs = [][]byte{{1}, {2}}
	branch.Links = []common.Position{10, 20, 30}
	branch.LinkStat = []LinkStatus{LinkValid, LinkValid, LinkValid}
	if branch.numRecords() != 2 {
		t.Fatalf("branch numRecords() = %d, want 2 (ref count, not link count)", branch.numRecords())
	}
}

func TestNoPositionSentinel(t *testing.T) {
	if NoPosition == 0 {
		t.Fatal("NoPosition must not collide with a legitimate page position")
	}
}
