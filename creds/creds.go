// Package creds is the credentials collaborator described by spec.md §6: a
// second tree instance of <string,string> shape (username -> password)
// offering authenticate-or-register semantics on top of the core Insert/Get
// operations. It does not grow an HTTP surface; that façade is out of scope.
package creds

import (
	"crypto/subtle"
	"fmt"

	"github.com/arbordb/arbor/btree"
	"github.com/arbordb/arbor/common"
)

// Store wraps a *btree.Tree whose keys are usernames and whose values are
// passwords, stored and compared as opaque byte strings.
type Store struct {
	tree *btree.Tree
}

// Open opens (or creates) the credentials tree at identifier. cfg is passed
// through to btree.Open verbatim; callers typically pass btree.DefaultConfig()
// with KeySize/ValSize tuned to their username/password lengths.
func Open(identifier string, cfg btree.Config) (*Store, error) {
	tree, err := btree.Open(identifier, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{tree: tree}, nil
}

// Load registers a new user, failing if the username is already present
// (spec.md §6: "load(user,pass) (insert, error if present)").
func (s *Store) Load(user, pass string) error {
	result, err := s.tree.Insert([]byte(user), []byte(pass))
	if err != nil {
		return err
	}
	if result == btree.InsertedNothing {
		return fmt.Errorf("%w: user %q already registered", common.ErrBadInsert, user)
	}
	return nil
}

// Authenticate reports whether pass matches the password on file for user
// (spec.md §6: "authenticate(user,pass) (get + compare)"). A missing user and
// a wrong password are indistinguishable to the caller, on purpose.
func (s *Store) Authenticate(user, pass string) (bool, error) {
	stored, ok, err := s.tree.Get([]byte(user))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare(stored, []byte(pass)) == 1, nil
}

// Save flushes the underlying tree (spec.md §4.10 "save()").
func (s *Store) Save() error { return s.tree.Save() }

// LoadState restores the underlying tree's persisted state.
func (s *Store) LoadState() error { return s.tree.Load() }

// Close releases the underlying tree's file handle.
func (s *Store) Close() error { return s.tree.Close() }
