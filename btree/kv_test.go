package btree

import (
	"bytes"
	"fmt"
	"testing"
)

func TestContains(t *testing.T) {
	tree := openTree(t, smallConfig())
	if ok, err := tree.Contains([]byte("a")); err != nil || ok {
		t.Fatalf("Contains on empty tree: ok=%v err=%v", ok, err)
	}
	if _, err := tree.Insert([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if ok, err := tree.Contains([]byte("a")); err != nil || !ok {
		t.Fatalf("Contains(a) = %v, want true", ok)
	}
}

func TestMinMax(t *testing.T) {
	tree := openTree(t, smallConfig())
	keys := []string{"m", "a", "z", "c", "q"}
	for _, k := range keys {
		if _, err := tree.Insert([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Insert(%s): %v", k, err)
		}
	}

	minKey, minVal, ok, err := tree.Min()
	if err != nil || !ok || string(minKey) != "a" || string(minVal) != "a" {
		t.Fatalf("Min() = (%q, %q, %v), want (\"a\", \"a\", true)", minKey, minVal, ok)
	}
	maxKey, maxVal, ok, err := tree.Max()
	if err != nil || !ok || string(maxKey) != "z" || string(maxVal) != "z" {
		t.Fatalf("Max() = (%q, %q, %v), want (\"z\", \"z\", true)", maxKey, maxVal, ok)
	}
}

// TestValueEncodingInlineVsIndirectBoundary checks that values straddling
// inlineValueThreshold both round-trip correctly, and that a large value's
// slot storage is released on Remove (a second large value can reuse the
// freed space rather than growing the slot file unboundedly).
func TestValueEncodingInlineVsIndirectBoundary(t *testing.T) {
	tree := openTree(t, smallConfig())

	inline := bytes.Repeat([]byte("x"), inlineValueThreshold)
	indirect := bytes.Repeat([]byte("y"), inlineValueThreshold+1)

	if _, err := tree.Insert([]byte("inline"), inline); err != nil {
		t.Fatalf("Insert(inline): %v", err)
	}
	if _, err := tree.Insert([]byte("indirect"), indirect); err != nil {
		t.Fatalf("Insert(indirect): %v", err)
	}

	gotInline, ok, err := tree.Get([]byte("inline"))
	if err != nil || !ok || !bytes.Equal(gotInline, inline) {
		t.Fatalf("Get(inline) mismatch: ok=%v err=%v len=%d", ok, err, len(gotInline))
	}
	gotIndirect, ok, err := tree.Get([]byte("indirect"))
	if err != nil || !ok || !bytes.Equal(gotIndirect, indirect) {
		t.Fatalf("Get(indirect) mismatch: ok=%v err=%v len=%d", ok, err, len(gotIndirect))
	}

	result, err := tree.Remove([]byte("indirect"))
	if err != nil {
		t.Fatalf("Remove(indirect): %v", err)
	}
	if !result.Found || !bytes.Equal(result.Val, indirect) {
		t.Fatalf("Remove(indirect) = %+v, want the original large value", result)
	}

	// A second large value must still round-trip after the prior slot was
	// freed (regardless of whether the allocator happens to reuse it).
	indirect2 := bytes.Repeat([]byte("z"), inlineValueThreshold+500)
	if _, err := tree.Insert([]byte("indirect2"), indirect2); err != nil {
		t.Fatalf("Insert(indirect2): %v", err)
	}
	gotIndirect2, ok, err := tree.Get([]byte("indirect2"))
	if err != nil || !ok || !bytes.Equal(gotIndirect2, indirect2) {
		t.Fatalf("Get(indirect2) mismatch: ok=%v err=%v len=%d", ok, err, len(gotIndirect2))
	}
}

func TestRangeAndFullScanOrdering(t *testing.T) {
	tree := openTree(t, smallConfig())

	const n = 200
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Insert(key, key); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	var full []string
	for k := range tree.FullScan() {
		full = append(full, string(k))
	}
	if len(full) != n {
		t.Fatalf("FullScan yielded %d keys, want %d", len(full), n)
	}
	for i := 1; i < len(full); i++ {
		if full[i-1] >= full[i] {
			t.Fatalf("FullScan not strictly ascending at index %d: %q >= %q", i, full[i-1], full[i])
		}
	}

	kMin := []byte(fmt.Sprintf("k%03d", 50))
	kMax := []byte(fmt.Sprintf("k%03d", 100))
	var ranged []string
	for k, v := range tree.Range(kMin, kMax) {
		ranged = append(ranged, string(k))
		if !bytes.Equal(k, v) {
			t.Fatalf("Range yielded mismatched key/value: %q vs %q", k, v)
		}
	}
	if len(ranged) != 50 {
		t.Fatalf("Range(k050, k100) yielded %d keys, want 50", len(ranged))
	}
	if ranged[0] != string(kMin) {
		t.Fatalf("Range should include kMin itself: got first = %q", ranged[0])
	}
	if ranged[len(ranged)-1] == string(kMax) {
		t.Fatal("Range must exclude kMax")
	}
}

func TestRangeStopsEarlyWhenYieldReturnsFalse(t *testing.T) {
	tree := openTree(t, smallConfig())
	for i := 0; i < 50; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tree.Insert(key, key); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	count := 0
	for range tree.FullScan() {
		count++
		if count == 5 {
			break
		}
	}
	if count != 5 {
		t.Fatalf("range-for break did not stop the sequence early: count = %d", count)
	}
}
