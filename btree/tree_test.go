package btree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/arbordb/arbor/common"
)

func openTree(t *testing.T, cfg Config) *Tree {
	t.Helper()
	identifier := filepath.Join(t.TempDir(), "tree")
	tree, err := Open(identifier, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree
}

// smallConfig forces a tiny, deterministic fan-out so splits and merges
// happen after only a handful of inserts/removes, without depending on the
// page-size-driven computeFanout arithmetic.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.BranchingFactorLeaf = 4
	cfg.BranchingFactorBranch = 4
	return cfg
}

func TestOpenStartsEmpty(t *testing.T) {
	tree := openTree(t, DefaultConfig())
	stats := tree.Stats()
	if stats.NumKeys != 0 || stats.Depth != 0 {
		t.Fatalf("fresh tree should be empty: %+v", stats)
	}
	if _, _, ok, err := tree.Min(); err != nil || ok {
		t.Fatalf("Min on empty tree: ok=%v err=%v", ok, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	identifier := filepath.Join(t.TempDir(), "tree")
	tree, err := Open(identifier, smallConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 1000
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		val := []byte(fmt.Sprintf("val-%04d", i))
		if _, err := tree.Insert(key, val); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	wantStats := tree.Stats()
	if err := tree.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(identifier, smallConfig())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gotStats := reopened.Stats()
	if gotStats.NumKeys != wantStats.NumKeys || gotStats.Depth != wantStats.Depth {
		t.Fatalf("stats after reload = %+v, want NumKeys/Depth matching %+v", gotStats, wantStats)
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		want := fmt.Sprintf("val-%04d", i)
		val, ok, err := reopened.Get(key)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if !ok || string(val) != want {
			t.Fatalf("Get(%q) = (%q, %v), want (%q, true)", key, val, ok, want)
		}
	}
}

func TestOpenClosedReturnsErrClosed(t *testing.T) {
	tree := openTree(t, DefaultConfig())
	if err := tree.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := tree.Insert([]byte("k"), []byte("v")); err != common.ErrClosed {
		t.Fatalf("Insert after Close = %v, want ErrClosed", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
