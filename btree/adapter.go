package btree

import "github.com/arbordb/arbor/common"

// Adapter wraps a *Tree to implement common.StorageEngine's plain
// Put/Get/Delete surface, grounded on the teacher's lsm.Adapter pattern: the
// core type exposes a richer, tagged-result API (Insert/Get/Remove), and a
// thin adapter collapses it to error/bool semantics for callers (the
// benchmark harness, generic tooling) that don't need the tags.
type Adapter struct {
	tree *Tree
}

// NewAdapter wraps tree.
func NewAdapter(tree *Tree) *Adapter {
	return &Adapter{tree: tree}
}

// Put implements common.StorageEngine. A duplicate key is silently a no-op,
// consistent with Insert's semantics.
func (a *Adapter) Put(key, value []byte) error {
	_, err := a.tree.Insert(key, value)
	return err
}

// Get implements common.StorageEngine.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	val, ok, err := a.tree.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrKeyNotFound
	}
	return val, nil
}

// Delete implements common.StorageEngine.
func (a *Adapter) Delete(key []byte) error {
	_, err := a.tree.Remove(key)
	return err
}

// Close implements common.StorageEngine.
func (a *Adapter) Close() error { return a.tree.Close() }

// Save implements common.StorageEngine.
func (a *Adapter) Save() error { return a.tree.Save() }

// Stats implements common.StorageEngine.
func (a *Adapter) Stats() common.Stats { return a.tree.Stats() }
