// Package pager implements the paged-file abstraction the B-tree is the sole
// user of (spec.md §2): page-aligned random I/O backed by a pluggable
// Allocator and a cache.Pool, plus (in subpage.go) a byte-granular allocator
// layered on top of whole pages for variable-length values.
package pager

import (
	"fmt"
	"os"
	"sync"

	"github.com/arbordb/arbor/alloc"
	"github.com/arbordb/arbor/cache"
	"github.com/arbordb/arbor/common"
)

// Pager owns the backing file, the page allocator and the buffer pool. Every
// page-level operation the B-tree performs goes through one of these.
type Pager struct {
	mu sync.Mutex

	identifier string
	file       *os.File
	pageSize   uint32

	allocator alloc.Allocator
	pool      *cache.Pool[*Page]
	capacity  int
	newPolicy func() cache.EvictionPolicy
	logger    common.Logger

	// Sub-page allocator configuration (spec.md §4.5). Computed once, here,
	// rather than per-call, since it only depends on pageSize/chunkSize.
	chunkSize     uint32
	chunksPerPage int
	bitmapLen     int

	stats struct {
		reads  int64
		writes int64
		hits   int64
	}
}

// Options configures a Pager at construction.
type Options struct {
	PageSize  uint32          // 0 defaults to DefaultPageSize
	ChunkSize uint32          // 0 defaults to 4 bytes (spec.md §4.5 example)
	Capacity  int             // buffer pool capacity in pages; <=0 is unbounded
	Allocator alloc.Allocator // defaults to a StackAllocator over pageSize

	// NewEviction constructs a fresh eviction policy; it is called again
	// whenever the pager needs a new empty pool (e.g. after Load). Defaults
	// to cache.NewLRU.
	NewEviction func() cache.EvictionPolicy

	Logger common.Logger // defaults to common.NopLogger{}
}

func (o Options) withDefaults() Options {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = 4
	}
	if o.Allocator == nil {
		o.Allocator = alloc.NewStackAllocator(o.PageSize, 0)
	}
	if o.NewEviction == nil {
		o.NewEviction = func() cache.EvictionPolicy { return cache.NewLRU() }
	}
	if o.Logger == nil {
		o.Logger = common.NopLogger{}
	}
	return o
}

// Open creates or opens the data file for identifier (identifier itself is
// the file path). The allocator's and cache's state are whatever Options
// specify; callers that want on-disk state restored must call Load after
// Open (spec.md §4.10: bare() vs load()).
func Open(identifier string, opts Options) (*Pager, error) {
	opts = opts.withDefaults()

	file, err := os.OpenFile(identifier, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", common.ErrBadRead, identifier, err)
	}

	numChunks, bitmapLen := computeChunkLayout(opts.PageSize, opts.ChunkSize)
	if numChunks <= 0 {
		file.Close()
		return nil, fmt.Errorf("%w: page size %d too small for chunk size %d", common.ErrBadAlloc, opts.PageSize, opts.ChunkSize)
	}

	p := &Pager{
		identifier:    identifier,
		file:          file,
		pageSize:      opts.PageSize,
		allocator:     opts.Allocator,
		capacity:      opts.Capacity,
		newPolicy:     opts.NewEviction,
		logger:        opts.Logger,
		chunkSize:     opts.ChunkSize,
		chunksPerPage: numChunks,
		bitmapLen:     bitmapLen,
	}
	p.pool = cache.New[*Page](p.capacity, p.newPolicy())
	return p, nil
}

func (p *Pager) PageSize() uint32 { return p.pageSize }

func (p *Pager) Identifier() string { return p.identifier }

func (p *Pager) validatePosition(pos common.Position) error {
	if uint64(pos)%uint64(p.pageSize) != 0 {
		return fmt.Errorf("%w: position %d is not page-aligned (page size %d)", common.ErrBadPosition, pos, p.pageSize)
	}
	return nil
}

// Alloc reserves a new page-aligned position via the configured allocator.
func (p *Pager) Alloc() (common.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, err := p.allocator.Alloc()
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// Free releases pos back to the allocator and drops it from the cache.
func (p *Pager) Free(pos common.Position) error {
	if err := p.validatePosition(pos); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.allocator.Free(pos); err != nil {
		return err
	}
	p.pool.Remove(pos)
	return nil
}

// HasAllocated reports whether pos is a currently-allocated page position.
func (p *Pager) HasAllocated(pos common.Position) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocator.HasAllocated(pos)
}

// Get fetches the page at pos, reading through to disk on a cache miss.
func (p *Pager) Get(pos common.Position) (*Page, error) {
	if err := p.validatePosition(pos); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getLocked(pos)
}

// Place inserts page into the cache at pos, synchronously writing back
// whatever page the cache evicts to make room.
func (p *Pager) Place(pos common.Position, page *Page) error {
	if err := p.validatePosition(pos); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.placeLocked(pos, page)
}

func (p *Pager) placeLocked(pos common.Position, page *Page) error {
	evicted, didEvict := p.pool.Place(pos, page)
	if !didEvict {
		return nil
	}
	if evicted.Dirty {
		if err := p.writeBackLocked(evicted.Pos, evicted.Page); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pager) writeBackLocked(pos common.Position, page *Page) error {
	n, err := p.file.WriteAt(page.Data(), int64(pos))
	if err != nil || n != len(page.Data()) {
		return fmt.Errorf("%w: writing page at %d: %v", common.ErrBadWrite, pos, err)
	}
	p.stats.writes++
	return nil
}

// NewPage allocates a fresh page of typ, places it in the cache, and returns
// it ready to be filled in by the caller.
func (p *Pager) NewPage(typ common.PageType) (*Page, error) {
	pos, err := p.Alloc()
	if err != nil {
		return nil, err
	}
	page := NewPage(pos, p.pageSize, typ)
	if err := p.Place(pos, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Save flushes every dirty page to disk and persists the allocator's state
// to "<identifier>-alloc". After Save the cache is empty (spec.md §4.4:
// "drain the cache, writing every dirty page to disk").
func (p *Pager) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for evicted := range p.pool.Flush() {
		if !evicted.Dirty {
			continue
		}
		if err := p.writeBackLocked(evicted.Pos, evicted.Page); err != nil {
			return err
		}
	}

	allocFile, err := os.Create(p.identifier + "-alloc")
	if err != nil {
		return fmt.Errorf("%w: creating alloc sidecar: %v", common.ErrBadWrite, err)
	}
	defer allocFile.Close()

	if err := p.allocator.Save(allocFile); err != nil {
		return fmt.Errorf("%w: saving allocator state: %v", common.ErrBadWrite, err)
	}
	return p.file.Sync()
}

// Load replaces the allocator's state from "<identifier>-alloc". The cache
// starts empty; pages are faulted back in on demand.
func (p *Pager) Load() error {
	allocFile, err := os.Open(p.identifier + "-alloc")
	if err != nil {
		return fmt.Errorf("%w: opening alloc sidecar: %v", common.ErrBadRead, err)
	}
	defer allocFile.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.allocator.Load(allocFile); err != nil {
		return fmt.Errorf("%w: loading allocator state: %v", common.ErrBadRead, err)
	}
	p.pool = cache.New[*Page](p.capacity, p.newPolicy())
	return nil
}

// Close releases the backing file handle without flushing. Callers that want
// durability must call Save first.
func (p *Pager) Close() error {
	return p.file.Close()
}

// Stats reports page I/O counters.
func (p *Pager) Stats() (reads, writes, hits int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.reads, p.stats.writes, p.stats.hits
}
