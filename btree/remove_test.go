package btree

import (
	"fmt"
	"testing"
)

func TestRemoveMissingKeyReturnsNotFound(t *testing.T) {
	tree := openTree(t, smallConfig())
	result, err := tree.Remove([]byte("nope"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if result.Found {
		t.Fatalf("Remove(missing) = %+v, want Found=false", result)
	}
}

func TestRemoveReturnsStoredValue(t *testing.T) {
	tree := openTree(t, smallConfig())
	if _, err := tree.Insert([]byte("a"), []byte("one")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	result, err := tree.Remove([]byte("a"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !result.Found || string(result.Val) != "one" {
		t.Fatalf("Remove(a) = %+v, want Found=true Val=\"one\"", result)
	}
	if _, ok, err := tree.Get([]byte("a")); err != nil || ok {
		t.Fatalf("key should be gone after Remove: ok=%v err=%v", ok, err)
	}
}

// TestRemoveTriggersRebalance grows a tree well past several levels of
// splitting, then removes keys until the tree is back down to a handful of
// entries, exercising borrow-from-sibling and merge-cascade paths along the
// way. Every surviving key must still be reachable afterward.
func TestRemoveTriggersRebalance(t *testing.T) {
	tree := openTree(t, smallConfig())

	const n = 300
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Insert(key, key); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	// Remove every third key first, forcing borrows and merges while the
	// tree still has meaningful depth, then sweep the rest.
	removed := make(map[int]bool)
	for i := 0; i < n; i += 3 {
		key := []byte(fmt.Sprintf("k%03d", i))
		result, err := tree.Remove(key)
		if err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
		if !result.Found {
			t.Fatalf("Remove(%d) should have found the key", i)
		}
		removed[i] = true
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		val, ok, err := tree.Get(key)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if removed[i] {
			if ok {
				t.Fatalf("Get(%d) found a removed key", i)
			}
			continue
		}
		if !ok || string(val) != string(key) {
			t.Fatalf("Get(%d) = (%q, %v), want (%q, true)", i, val, ok, key)
		}
	}

	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Remove(key); err != nil {
			t.Fatalf("sweep Remove(%d): %v", i, err)
		}
	}

	stats := tree.Stats()
	if stats.NumKeys != 0 {
		t.Fatalf("NumKeys after removing everything = %d, want 0", stats.NumKeys)
	}
	if _, _, ok, err := tree.Min(); err != nil || ok {
		t.Fatalf("Min on emptied tree: ok=%v err=%v", ok, err)
	}
}

// TestRemoveRebalanceAcrossThreeLevels builds a tree with at least three
// levels, then removes a single key from a two-key leaf. Its only sibling
// also holds two keys, not more than minRecords(4) = 3, so the underfull
// leaf cannot borrow and is merged into that sibling. Every other key must
// stay reachable and the removed one must be gone.
func TestRemoveRebalanceAcrossThreeLevels(t *testing.T) {
	tree := openTree(t, smallConfig())

	const n = 80
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Insert(key, key); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	depthBefore := tree.Stats().Depth
	if depthBefore < 2 {
		t.Fatalf("expected at least 3 levels (depth >= 2), got depth = %d", depthBefore)
	}

	target := []byte(fmt.Sprintf("k%03d", n/2))
	result, err := tree.Remove(target)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !result.Found {
		t.Fatal("expected target key to be present")
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if i == n/2 {
			if _, ok, err := tree.Get(key); err != nil || ok {
				t.Fatalf("removed key still present: ok=%v err=%v", ok, err)
			}
			continue
		}
		if _, ok, err := tree.Get(key); err != nil || !ok {
			t.Fatalf("Get(%q) after single remove: ok=%v err=%v", key, ok, err)
		}
	}
}
