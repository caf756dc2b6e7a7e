// Command demo walks through the everyday lifecycle of an arbor tree:
// open, insert, get, range scan, remove, persist, and reopen.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/arbordb/arbor/btree"
	"github.com/arbordb/arbor/creds"
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("arbor demo: a disk-resident B+-tree key-value store")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	runID := uuid.NewString()
	dir, err := os.MkdirTemp("", "arbor-demo-"+runID)
	if err != nil {
		log.Fatalf("mkdir temp: %v", err)
	}
	defer os.RemoveAll(dir)
	identifier := dir + "/tree"

	demoTree(identifier)
	fmt.Println()
	demoCredentials(dir + "/creds")
}

func demoTree(identifier string) {
	fmt.Println("### Core tree ###")
	fmt.Println(strings.Repeat("-", 40))

	cfg := btree.DefaultConfig()
	tree, err := btree.Open(identifier, cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer tree.Close()
	fmt.Println("✓ opened a fresh tree")

	testData := map[string]string{
		"user:1001":    `{"name": "Alice", "age": 30, "city": "NYC"}`,
		"user:1002":    `{"name": "Bob", "age": 25, "city": "SF"}`,
		"user:1003":    `{"name": "Charlie", "age": 35, "city": "LA"}`,
		"product:0101": `{"name": "Laptop", "price": 999.99}`,
		"product:0102": `{"name": "Mouse", "price": 29.99}`,
	}

	fmt.Println("\n[Writing data]")
	for key, value := range testData {
		result, err := tree.Insert([]byte(key), []byte(value))
		if err != nil {
			log.Printf("insert %s: %v", key, err)
			continue
		}
		fmt.Printf("  INSERT %-16s -> %v\n", key, result)
	}

	fmt.Println("\n[Reading data]")
	for key := range testData {
		val, ok, err := tree.Get([]byte(key))
		if err != nil {
			log.Printf("get %s: %v", key, err)
			continue
		}
		fmt.Printf("  GET %-16s -> %s (found=%v)\n", key, truncate(string(val), 40), ok)
	}

	fmt.Println("\n[Duplicate insert is a no-op]")
	result, err := tree.Insert([]byte("user:1001"), []byte("overwritten?"))
	if err != nil {
		log.Printf("insert: %v", err)
	} else {
		fmt.Printf("  INSERT user:1001 (again) -> %v\n", result)
	}

	fmt.Println("\n[Range scan product:* in ascending key order]")
	for key, val := range tree.Range([]byte("product:"), []byte("product;")) {
		fmt.Printf("  %s -> %s\n", key, truncate(string(val), 40))
	}

	fmt.Println("\n[Removing product:0102]")
	removed, err := tree.Remove([]byte("product:0102"))
	if err != nil {
		log.Printf("remove: %v", err)
	} else {
		fmt.Printf("  REMOVE product:0102 -> found=%v val=%s\n", removed.Found, truncate(string(removed.Val), 40))
	}

	if _, ok, _ := tree.Get([]byte("product:0102")); !ok {
		fmt.Println("  GET product:0102 -> not found (as expected)")
	}

	minKey, minVal, ok, err := tree.Min()
	if err == nil && ok {
		fmt.Printf("\n[Min] %s -> %s\n", minKey, truncate(string(minVal), 40))
	}
	maxKey, maxVal, ok, err := tree.Max()
	if err == nil && ok {
		fmt.Printf("[Max] %s -> %s\n", maxKey, truncate(string(maxVal), 40))
	}

	fmt.Println("\n[Persisting]")
	if err := tree.Save(); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("✓ saved header, slots and pager state to disk")

	stats := tree.Stats()
	fmt.Printf("\n[Stats] %s\n", stats)
}

func demoCredentials(identifier string) {
	fmt.Println("### Credentials collaborator ###")
	fmt.Println(strings.Repeat("-", 40))

	cfg := btree.DefaultConfig()
	cfg.KeySize, cfg.ValSize = 24, 24
	store, err := creds.Open(identifier, cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Load("alice", "hunter2"); err != nil {
		log.Fatalf("load: %v", err)
	}
	fmt.Println("✓ registered user alice")

	ok, err := store.Authenticate("alice", "hunter2")
	fmt.Printf("  authenticate(alice, hunter2) -> %v (err=%v)\n", ok, err)

	ok, err = store.Authenticate("alice", "wrong-password")
	fmt.Printf("  authenticate(alice, wrong-password) -> %v (err=%v)\n", ok, err)

	if err := store.Load("alice", "hunter2"); err != nil {
		fmt.Printf("  load(alice) again -> rejected: %v\n", err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
