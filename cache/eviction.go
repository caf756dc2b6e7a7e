// Package cache implements the buffer pool (bounded position->page map with
// write-behind eviction) and its pluggable eviction policies (spec.md §4.2,
// §4.3). The pool is generic over the page payload type so it has no
// dependency on the pager package that uses it — eviction policy and buffer
// pool are "capability objects" (spec.md §9), not tied to one page shape.
package cache

import (
	"container/list"
	"sync"

	"github.com/arbordb/arbor/common"
)

// EvictionPolicy tracks usage order for positions held by a Pool and picks a
// victim to evict when the pool is over capacity. Implementations keep their
// own bookkeeping; the Pool never inspects it directly.
type EvictionPolicy interface {
	// OnInsert records that pos has newly entered the pool. A fresh
	// placement does not count as a "use" of any existing entry.
	OnInsert(pos common.Position)
	// OnAccess records that pos was read or re-placed (cache hit / update),
	// promoting it in whatever usage order the policy maintains.
	OnAccess(pos common.Position)
	// OnRemove forgets pos (called after an explicit evict or flush).
	OnRemove(pos common.Position)
	// Victim picks the next position to evict and removes its own
	// bookkeeping for it. ok is false when there is nothing to evict.
	Victim() (pos common.Position, ok bool)
	// Len reports how many positions the policy is currently tracking.
	Len() int
}

// LRU evicts the least recently used position. Ties are broken by the order
// entries were first inserted (container/list gives a stable doubly-linked
// usage order, exactly as the teacher's Pager.lru/lruMap pair does).
type LRU struct {
	mu    sync.Mutex
	order *list.List
	index map[common.Position]*list.Element
}

var _ EvictionPolicy = (*LRU)(nil)

// NewLRU creates an empty LRU eviction tracker.
func NewLRU() *LRU {
	return &LRU{
		order: list.New(),
		index: make(map[common.Position]*list.Element),
	}
}

func (l *LRU) OnInsert(pos common.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[pos]; ok {
		return
	}
	l.index[pos] = l.order.PushFront(pos)
}

func (l *LRU) OnAccess(pos common.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.index[pos]; ok {
		l.order.MoveToFront(elem)
		return
	}
	l.index[pos] = l.order.PushFront(pos)
}

func (l *LRU) OnRemove(pos common.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.index[pos]; ok {
		l.order.Remove(elem)
		delete(l.index, pos)
	}
}

func (l *LRU) Victim() (common.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	elem := l.order.Back()
	if elem == nil {
		return 0, false
	}
	pos := elem.Value.(common.Position)
	l.order.Remove(elem)
	delete(l.index, pos)
	return pos, true
}

func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// NeverEvict never produces a victim. Used when the pager is configured to
// keep the whole dataset resident in memory.
type NeverEvict struct{}

var _ EvictionPolicy = NeverEvict{}

func (NeverEvict) OnInsert(common.Position)      {}
func (NeverEvict) OnAccess(common.Position)      {}
func (NeverEvict) OnRemove(common.Position)      {}
func (NeverEvict) Victim() (common.Position, bool) { return 0, false }
func (NeverEvict) Len() int                        { return 0 }
