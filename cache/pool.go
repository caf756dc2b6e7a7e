package cache

import (
	"iter"
	"sync"

	"github.com/arbordb/arbor/common"
)

// Entry is one resident page buffer plus the bookkeeping the pool needs
// around it.
type Entry[P any] struct {
	Page  P
	Dirty bool
}

// Evicted describes a page that left the pool, for the caller (the pager) to
// write back if it was dirty.
type Evicted[P any] struct {
	Pos   common.Position
	Page  P
	Dirty bool
}

// Pool is a bounded position->page cache with write-behind eviction
// (spec.md §4.3). It is generic over the page payload type so that neither
// the cache package nor its eviction policies need to know the concrete page
// layout the pager uses.
type Pool[P any] struct {
	mu       sync.Mutex
	capacity int
	policy   EvictionPolicy
	entries  map[common.Position]*Entry[P]
}

// New creates a pool bounded to capacity resident pages, evicting via policy
// once that bound is exceeded. capacity <= 0 means unbounded.
func New[P any](capacity int, policy EvictionPolicy) *Pool[P] {
	return &Pool[P]{
		capacity: capacity,
		policy:   policy,
		entries:  make(map[common.Position]*Entry[P]),
	}
}

// Get returns the page at pos and promotes it in usage order, or ok=false on
// a miss.
func (p *Pool[P]) Get(pos common.Position) (page P, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, found := p.entries[pos]
	if !found {
		return page, false
	}
	p.policy.OnAccess(pos)
	return e.Page, true
}

// Place inserts or overwrites the page at pos, marks it dirty, and promotes
// it in usage order. If this pushes the pool over capacity, the eviction
// policy's victim is removed and returned for the caller to write back.
func (p *Pool[P]) Place(pos common.Position, page P) (evicted Evicted[P], didEvict bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[pos]; exists {
		p.entries[pos] = &Entry[P]{Page: page, Dirty: true}
		p.policy.OnAccess(pos)
		return evicted, false
	}

	p.entries[pos] = &Entry[P]{Page: page, Dirty: true}
	p.policy.OnInsert(pos)

	if p.capacity <= 0 || len(p.entries) <= p.capacity {
		return evicted, false
	}

	victimPos, ok := p.policy.Victim()
	if !ok {
		// Policy declines to evict (e.g. NeverEvict); the pool simply grows.
		return evicted, false
	}
	victim, ok := p.entries[victimPos]
	if !ok {
		return evicted, false
	}
	delete(p.entries, victimPos)
	return Evicted[P]{Pos: victimPos, Page: victim.Page, Dirty: victim.Dirty}, true
}

// MarkClean clears the dirty flag for pos, typically after a successful
// write-back that did not go through eviction (e.g. an explicit flush of a
// single page).
func (p *Pool[P]) MarkClean(pos common.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[pos]; ok {
		e.Dirty = false
	}
}

// Remove drops pos from the pool without returning it, forgetting it in the
// eviction policy too. Used when a page is freed.
func (p *Pool[P]) Remove(pos common.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, pos)
	p.policy.OnRemove(pos)
}

// Len reports the number of resident pages.
func (p *Pool[P]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Flush yields every resident entry by repeated eviction until the pool is
// empty, so that the caller can write back every dirty page. It is a finite
// lazy sequence; breaking out of the range leaves the remaining entries
// resident.
func (p *Pool[P]) Flush() iter.Seq[Evicted[P]] {
	return func(yield func(Evicted[P]) bool) {
		for {
			p.mu.Lock()
			if len(p.entries) == 0 {
				p.mu.Unlock()
				return
			}
			victimPos, ok := p.policy.Victim()
			if !ok {
				// Policy won't name a victim (e.g. NeverEvict): drain
				// arbitrarily so Flush still empties the pool.
				for pos := range p.entries {
					victimPos = pos
					ok = true
					break
				}
			}
			e, found := p.entries[victimPos]
			if !found {
				p.mu.Unlock()
				continue
			}
			delete(p.entries, victimPos)
			p.policy.OnRemove(victimPos)
			p.mu.Unlock()

			if !yield(Evicted[P]{Pos: victimPos, Page: e.Page, Dirty: e.Dirty}) {
				return
			}
		}
	}
}
