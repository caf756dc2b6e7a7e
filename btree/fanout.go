package btree

import "github.com/arbordb/arbor/common"

// Fan-out computation (spec.md §4.8): binary-search the largest record count
// n such that a node holding n records of the configured representative
// key/value size still fits in one page, separately for leaves and
// branches, then enforce the cross-invariant between the two.

// leafSample and branchSample build a representative node of exactly n
// records, used only to measure encodedSize; their contents are never
// written to disk.
func leafSample(n int, keySize, valSize int) *Node {
	node := &Node{Kind: KindLeaf, NextLeaf: NoPosition}
	node.Keys = make([][]byte, n)
	node.Vals = make([][]byte, n)
	for i := 0; i < n; i++ {
		node.Keys[i] = make([]byte, keySize)
		node.Vals[i] = make([]byte, valSize)
	}
	return node
}

func branchSample(n int, keySize int) *Node {
	node := &Node{Kind: KindBranch, ParentPos: NoPosition}
	node.Refs = make([][]byte, n)
	for i := 0; i < n; i++ {
		node.Refs[i] = make([]byte, keySize)
	}
	links := n + 1
	node.Links = make([]common.Position, links)
	node.LinkStat = make([]LinkStatus, links)
	return node
}

// binarySearchMaxN finds the largest n >= 0 such that fits(n) is true,
// assuming fits is monotonically non-increasing in n (larger nodes never
// shrink). Returns 0 if even a single record does not fit.
func binarySearchMaxN(pageSize int, fits func(n int) bool) int {
	if !fits(1) {
		return 0
	}
	lo, hi := 1, 1
	for fits(hi) {
		lo = hi
		hi *= 2
		if hi > 1<<20 {
			break
		}
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// computeFanout returns {max_records_leaf, max_records_branch} for a page of
// payloadSize bytes, using keySize/valSize as the representative record
// dimensions (spec.md §4.8 measures "the serialized node size for that n
// against the page size").
func computeFanout(payloadSize, keySize, valSize int) (maxLeaf, maxBranch int) {
	maxBranch = binarySearchMaxN(payloadSize, func(n int) bool {
		return encodedSize(branchSample(n, keySize)) <= payloadSize
	})
	maxLeaf = binarySearchMaxN(payloadSize, func(n int) bool {
		return encodedSize(leafSample(n, keySize, valSize)) <= payloadSize
	})

	// Invariant 6 (spec.md §3): max_records_leaf >= 2*max_records_branch - 1,
	// so a full leaf's contents can redistribute across two branch-sized
	// children on split. A leaf entry (key+value) is usually larger than a
	// branch entry (key+link), so the raw branch capacity normally exceeds
	// this bound; maxBranch is then lowered to (maxLeaf+1)/2 so that both
	// fan-outs still fit a page (4095/16/32 gives leaf=81, branch=41).
	if maxLeaf < 2*maxBranch-1 {
		maxBranch = (maxLeaf + 1) / 2
	}
	return maxLeaf, maxBranch
}

// minRecords is spec.md §4.8's "ceil((max+1)/2)".
func minRecords(max int) int {
	return (max + 2) / 2
}
