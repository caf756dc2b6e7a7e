package creds

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arbordb/arbor/btree"
	"github.com/arbordb/arbor/common"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	cfg := btree.DefaultConfig()
	cfg.KeySize, cfg.ValSize = 24, 24
	store, err := Open(filepath.Join(t.TempDir(), "creds"), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadThenAuthenticate(t *testing.T) {
	store := openStore(t)
	if err := store.Load("alice", "hunter2"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ok, err := store.Authenticate("alice", "hunter2")
	if err != nil || !ok {
		t.Fatalf("Authenticate(correct) = %v, err = %v", ok, err)
	}

	ok, err = store.Authenticate("alice", "wrong")
	if err != nil || ok {
		t.Fatalf("Authenticate(wrong password) = %v, want false", ok)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	store := openStore(t)
	ok, err := store.Authenticate("nobody", "whatever")
	if err != nil || ok {
		t.Fatalf("Authenticate(unknown user) = %v, err = %v, want (false, nil)", ok, err)
	}
}

func TestLoadRejectsDuplicateUser(t *testing.T) {
	store := openStore(t)
	if err := store.Load("bob", "first"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := store.Load("bob", "second")
	if err == nil {
		t.Fatal("re-registering an existing user should fail")
	}
	if !errors.Is(err, common.ErrBadInsert) {
		t.Fatalf("Load(duplicate) error = %v, want wrapping ErrBadInsert", err)
	}

	ok, authErr := store.Authenticate("bob", "first")
	if authErr != nil || !ok {
		t.Fatalf("original password should still be in effect: ok=%v err=%v", ok, authErr)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	identifier := filepath.Join(t.TempDir(), "creds")
	cfg := btree.DefaultConfig()
	cfg.KeySize, cfg.ValSize = 24, 24

	store, err := Open(identifier, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Load("carol", "s3cret"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(identifier, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.LoadState(); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	ok, err := reopened.Authenticate("carol", "s3cret")
	if err != nil || !ok {
		t.Fatalf("Authenticate after reload: ok=%v err=%v", ok, err)
	}
}
