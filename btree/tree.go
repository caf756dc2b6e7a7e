package btree

import (
	"fmt"
	"os"
	"sync"

	"github.com/arbordb/arbor/alloc"
	"github.com/arbordb/arbor/cache"
	"github.com/arbordb/arbor/common"
	"github.com/arbordb/arbor/pager"
	"github.com/arbordb/arbor/slot"
)

// Config configures a Tree at construction, grounded on the teacher's
// btree.Config/DefaultConfig pattern.
type Config struct {
	PageSize  uint32 // 0 defaults to pager.DefaultPageSize
	ChunkSize uint32 // 0 defaults to the pager's default (4 bytes)
	Capacity  int    // buffer pool capacity in pages; <=0 is unbounded

	Allocator   alloc.Allocator
	NewEviction func() cache.EvictionPolicy
	Logger      common.Logger

	// KeySize/ValSize are the representative record dimensions the fan-out
	// binary search measures against (spec.md §4.8); they do not bound the
	// actual size of keys or values at runtime.
	KeySize int
	ValSize int

	// BranchingFactorLeaf/BranchingFactorBranch override the computed
	// fan-out when positive (spec.md §4.8).
	BranchingFactorLeaf   int
	BranchingFactorBranch int
}

// DefaultConfig returns sensible defaults for a 4KB-paged tree with modest
// keys and values.
func DefaultConfig() Config {
	return Config{
		PageSize:  pager.DefaultPageSize,
		ChunkSize: 4,
		Capacity:  10000, // pages resident at once (~40MB at 4KB pages)
		KeySize:   16,
		ValSize:   32,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize == 0 {
		c.PageSize = pager.DefaultPageSize
	}
	if c.KeySize <= 0 {
		c.KeySize = 16
	}
	if c.ValSize <= 0 {
		c.ValSize = 32
	}
	if c.Logger == nil {
		c.Logger = common.NopLogger{}
	}
	return c
}

// Tree is a persistent B+-tree over a paged file: the sole user of the
// pager, which is in turn the sole user of the buffer pool and allocator
// (spec.md §2 "Control flow").
type Tree struct {
	mu sync.Mutex

	identifier string
	pager      *pager.Pager
	slots      *slot.Table
	logger     common.Logger

	root  common.Position
	size  uint64
	depth uint64

	maxLeaf, minLeaf     int
	maxBranch, minBranch int

	closed bool
}

// Open creates a fresh tree backed by identifier: a new, empty root leaf
// (spec.md §4.10 "bare()"). Restoring previously-saved state requires an
// explicit Load call afterward.
func Open(identifier string, cfg Config) (*Tree, error) {
	cfg = cfg.withDefaults()

	p, err := pager.Open(identifier, pager.Options{
		PageSize:    cfg.PageSize,
		ChunkSize:   cfg.ChunkSize,
		Capacity:    cfg.Capacity,
		Allocator:   cfg.Allocator,
		NewEviction: cfg.NewEviction,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	t := &Tree{
		identifier: identifier,
		pager:      p,
		slots:      slot.New(identifier+"-slots", p),
		logger:     cfg.Logger,
	}
	t.configureFanout(cfg)
	if err := t.bare(); err != nil {
		p.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tree) configureFanout(cfg Config) {
	payload := int(cfg.PageSize) - 1 // byte 0 is the page-type tag
	maxLeaf, maxBranch := computeFanout(payload, cfg.KeySize, cfg.ValSize)
	if cfg.BranchingFactorLeaf > 0 {
		maxLeaf = cfg.BranchingFactorLeaf
	}
	if cfg.BranchingFactorBranch > 0 {
		maxBranch = cfg.BranchingFactorBranch
	}
	t.maxLeaf = maxLeaf
	t.maxBranch = maxBranch
	t.minLeaf = minRecords(maxLeaf)
	t.minBranch = minRecords(maxBranch)
}

// bare installs an empty leaf as the root and resets size/depth.
func (t *Tree) bare() error {
	pos, err := t.pager.Alloc()
	if err != nil {
		return err
	}
	leaf := newLeaf(IsRoot, NoPosition)
	if err := t.putNode(pos, leaf); err != nil {
		return err
	}
	t.root = pos
	t.size = 0
	t.depth = 0
	return nil
}

func (t *Tree) getNode(pos common.Position) (*Node, error) {
	page, err := t.pager.Get(pos)
	if err != nil {
		return nil, err
	}
	return nodeFromPage(page)
}

func (t *Tree) putNode(pos common.Position, n *Node) error {
	page, err := makePage(n, pos, t.pager.PageSize())
	if err != nil {
		return err
	}
	return t.pager.Place(pos, page)
}

func (t *Tree) allocNode(n *Node) (common.Position, error) {
	pos, err := t.pager.Alloc()
	if err != nil {
		return 0, err
	}
	if err := t.putNode(pos, n); err != nil {
		return 0, err
	}
	return pos, nil
}

func headerPath(identifier string) string { return identifier + "-header" }
func slotsPath(identifier string) string  { return identifier + "-slots" }

// Save persists the tree header, the slot table and the pager's allocator
// state, and flushes every dirty page (spec.md §4.10 "save()").
func (t *Tree) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return common.ErrClosed
	}

	h := header{
		RootPos:          t.root,
		Size:             t.size,
		Depth:            t.depth,
		MaxRecordsLeaf:   int64(t.maxLeaf),
		MaxRecordsBranch: int64(t.maxBranch),
	}
	if err := h.save(headerPath(t.identifier)); err != nil {
		return err
	}

	slotsFile, err := os.Create(slotsPath(t.identifier))
	if err != nil {
		return fmt.Errorf("%w: creating slots sidecar: %v", common.ErrBadWrite, err)
	}
	defer slotsFile.Close()
	if err := t.slots.Save(slotsFile); err != nil {
		return err
	}

	return t.pager.Save()
}

// Load restores {root_pos, size, depth, max_records_leaf, max_records_branch}
// from the header file, the slot table, and the pager's allocator state from
// its sidecar (spec.md §4.10 "load()").
func (t *Tree) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return common.ErrClosed
	}

	h, err := loadHeader(headerPath(t.identifier))
	if err != nil {
		return err
	}
	t.root = h.RootPos
	t.size = h.Size
	t.depth = h.Depth
	t.maxLeaf = int(h.MaxRecordsLeaf)
	t.maxBranch = int(h.MaxRecordsBranch)
	t.minLeaf = minRecords(t.maxLeaf)
	t.minBranch = minRecords(t.maxBranch)

	slotsFile, err := os.Open(slotsPath(t.identifier))
	if err != nil {
		return fmt.Errorf("%w: opening slots sidecar: %v", common.ErrBadRead, err)
	}
	defer slotsFile.Close()
	if err := t.slots.Load(slotsFile); err != nil {
		return err
	}

	return t.pager.Load()
}

// Close releases the backing file handle without flushing; callers that
// want durability must call Save first.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.pager.Close()
}

// Stats reports the running counters described in common.Stats.
func (t *Tree) Stats() common.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	reads, writes, hits := t.pager.Stats()
	return common.Stats{
		NumKeys:          t.size,
		PageReads:        reads,
		PageWrites:       writes,
		CacheHits:        hits,
		Depth:            int(t.depth),
		MaxRecordsLeaf:   t.maxLeaf,
		MaxRecordsBranch: t.maxBranch,
	}
}
