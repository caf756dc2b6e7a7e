package btree

import "testing"

func TestComputeFanoutFitsPage(t *testing.T) {
	maxLeaf, maxBranch := computeFanout(4095, 16, 32)
	if maxLeaf <= 0 || maxBranch <= 0 {
		t.Fatalf("computeFanout returned non-positive fan-out: leaf=%d branch=%d", maxLeaf, maxBranch)
	}

	leaf := leafSample(maxLeaf, 16, 32)
	if encodedSize(leaf) > 4095 {
		t.Fatalf("leaf sample at computed fan-out does not fit: %d > 4095", encodedSize(leaf))
	}
	biggerLeaf := leafSample(maxLeaf+1, 16, 32)
	if encodedSize(biggerLeaf) <= 4095 {
		t.Fatalf("fan-out+1 unexpectedly still fits the page")
	}

	branch := branchSample(maxBranch, 16)
	if encodedSize(branch) > 4095 {
		t.Fatalf("branch sample at computed fan-out does not fit: %d > 4095", encodedSize(branch))
	}
}

func TestComputeFanoutEnforcesLeafBranchInvariant(t *testing.T) {
	maxLeaf, maxBranch := computeFanout(4095, 16, 32)
	if maxLeaf < 2*maxBranch-1 {
		t.Fatalf("invariant violated: maxLeaf=%d maxBranch=%d (need >= %d)", maxLeaf, maxBranch, 2*maxBranch-1)
	}
}

func TestMinRecords(t *testing.T) {
	cases := map[int]int{
		1:  1,
		2:  2,
		3:  2,
		4:  3,
		10: 6,
		11: 6,
	}
	for max, want := range cases {
		if got := minRecords(max); got != want {
			t.Errorf("minRecords(%d) = %d, want %d", max, got, want)
		}
	}
}

func TestBinarySearchMaxN(t *testing.T) {
	limit := 100
	n := binarySearchMaxN(1000, func(n int) bool { return n <= limit })
	if n != limit {
		t.Fatalf("binarySearchMaxN = %d, want %d", n, limit)
	}

	if n := binarySearchMaxN(1000, func(n int) bool { return false }); n != 0 {
		t.Fatalf("binarySearchMaxN with nothing fitting = %d, want 0", n)
	}
}
