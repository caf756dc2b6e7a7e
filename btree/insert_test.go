package btree

import (
	"fmt"
	"testing"
)

func TestInsertFreshKeyReturnsInsertedEntry(t *testing.T) {
	tree := openTree(t, smallConfig())
	result, err := tree.Insert([]byte("a"), []byte("1"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if result != InsertedEntry {
		t.Fatalf("Insert(fresh) = %v, want InsertedEntry", result)
	}
}

func TestInsertDuplicateKeyIsNoOp(t *testing.T) {
	tree := openTree(t, smallConfig())
	if _, err := tree.Insert([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	result, err := tree.Insert([]byte("a"), []byte("2"))
	if err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	if result != InsertedNothing {
		t.Fatalf("Insert(duplicate) = %v, want InsertedNothing", result)
	}

	val, ok, err := tree.Get([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("Get(a): val=%q ok=%v err=%v", val, ok, err)
	}
	if string(val) != "1" {
		t.Fatalf("duplicate insert must not overwrite the existing value: got %q, want %q", val, "1")
	}
}

func TestInsertEmptyKeyFails(t *testing.T) {
	tree := openTree(t, smallConfig())
	if _, err := tree.Insert(nil, []byte("v")); err == nil {
		t.Fatal("Insert with an empty key should fail")
	}
}

// TestInsertExactlyMaxLeafPlusOneSplitsRootOnce pins spec.md §8's boundary
// case precisely: inserting exactly max_records_leaf+1 keys into a fresh
// tree triggers exactly one root promotion, taking depth from 0 to 1.
func TestInsertExactlyMaxLeafPlusOneSplitsRootOnce(t *testing.T) {
	tree := openTree(t, smallConfig())

	if depth := tree.Stats().Depth; depth != 0 {
		t.Fatalf("fresh tree depth = %d, want 0", depth)
	}

	n := tree.maxLeaf + 1
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Insert(key, key); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	if depth := tree.Stats().Depth; depth != 1 {
		t.Fatalf("depth after inserting max_records_leaf+1=%d keys = %d, want exactly 1", n, depth)
	}
}

// TestInsertForcesRootSplit drives enough inserts through a tiny fan-out
// tree that the root leaf must split into a branch, and then split again
// into a deeper tree, while every previously inserted key stays reachable.
func TestInsertForcesRootSplit(t *testing.T) {
	tree := openTree(t, smallConfig())

	const n = 200
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		result, err := tree.Insert(key, []byte(fmt.Sprintf("v%03d", i)))
		if err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
		if result != InsertedEntry {
			t.Fatalf("Insert(%d) = %v, want InsertedEntry", i, result)
		}
	}

	stats := tree.Stats()
	if stats.Depth == 0 {
		t.Fatalf("expected the root to have split at least once, depth = %d", stats.Depth)
	}
	if stats.NumKeys != n {
		t.Fatalf("NumKeys = %d, want %d", stats.NumKeys, n)
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		want := fmt.Sprintf("v%03d", i)
		val, ok, err := tree.Get(key)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if !ok || string(val) != want {
			t.Fatalf("Get(%q) = (%q, %v), want (%q, true)", key, val, ok, want)
		}
	}
}

func TestInsertOrderIndependent(t *testing.T) {
	forward := openTree(t, smallConfig())
	backward := openTree(t, smallConfig())

	const n = 100
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := forward.Insert(key, key); err != nil {
			t.Fatalf("forward Insert(%d): %v", i, err)
		}
	}
	for i := n - 1; i >= 0; i-- {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := backward.Insert(key, key); err != nil {
			t.Fatalf("backward Insert(%d): %v", i, err)
		}
	}

	var got, want []string
	for k := range forward.FullScan() {
		got = append(got, string(k))
	}
	for k := range backward.FullScan() {
		want = append(want, string(k))
	}
	if len(got) != len(want) {
		t.Fatalf("scan lengths differ: %d vs %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("scans diverge at index %d: %q vs %q", i, got[i], want[i])
		}
	}
}
