package pager

import (
	"fmt"
	"sort"

	"github.com/arbordb/arbor/common"
)

// computeChunkLayout finds the largest chunk count n such that a Slots page
// header (1 type byte + ceil(n/8) bitmap bytes) plus n*chunkSize bytes of
// arena fits in pageSize, by binary search on n — the same technique spec.md
// §4.8 uses to compute tree fan-out, reused here for the sibling "how many
// things fit in a page" problem.
func computeChunkLayout(pageSize, chunkSize uint32) (numChunks, bitmapLen int) {
	fits := func(n int) bool {
		bm := (n + 7) / 8
		return 1+bm+n*int(chunkSize) <= int(pageSize)
	}

	lo, hi := 0, int(pageSize/chunkSize)+1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, (lo + 7) / 8
}

func (p *Pager) headerSize() int { return 1 + p.bitmapLen }

func (p *Pager) chunkPos(pagePos common.Position, chunkIdx int) common.Position {
	return pagePos + common.Position(p.headerSize()) + common.Position(chunkIdx)*common.Position(p.chunkSize)
}

// splitPosition maps a byte position back to the page it lives in and the
// chunk index within that page's arena. Positions at or before the header
// are rejected (spec.md §4.5 edge case).
func (p *Pager) splitPosition(pos common.Position) (pagePos common.Position, chunkIdx int, err error) {
	pagePos = common.Position(uint64(pos) / uint64(p.pageSize) * uint64(p.pageSize))
	offset := int(uint64(pos) - uint64(pagePos))
	if offset < p.headerSize() {
		return 0, 0, fmt.Errorf("%w: position %d is within the page header", common.ErrBadPosition, pos)
	}
	rem := offset - p.headerSize()
	if rem%int(p.chunkSize) != 0 {
		return 0, 0, fmt.Errorf("%w: position %d is not chunk-aligned", common.ErrBadPosition, pos)
	}
	return pagePos, rem / int(p.chunkSize), nil
}

func bitGet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func bitSet(bitmap []byte, i int, v bool) {
	mask := byte(1 << uint(i%8))
	if v {
		bitmap[i/8] |= mask
	} else {
		bitmap[i/8] &^= mask
	}
}

func (p *Pager) slotsBitmap(page *Page) []byte {
	return page.Data()[1 : 1+p.bitmapLen]
}

// existingSlotsPages returns the positions of every currently-allocated
// Slots-type page, in ascending position order.
func (p *Pager) existingSlotsPages() ([]common.Position, error) {
	var positions []common.Position
	for pos := range p.allocator.IterAllocated() {
		page, err := p.getLocked(pos)
		if err != nil {
			return nil, err
		}
		if page.Type() == common.PageTypeSlots {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	return positions, nil
}

// getLocked fetches a page assuming p.mu is already held.
func (p *Pager) getLocked(pos common.Position) (*Page, error) {
	if page, ok := p.pool.Get(pos); ok {
		p.stats.hits++
		return page, nil
	}
	buf := make([]byte, p.pageSize)
	n, err := p.file.ReadAt(buf, int64(pos))
	if err != nil || n != int(p.pageSize) {
		return nil, fmt.Errorf("%w: reading page at %d: %v", common.ErrBadRead, pos, err)
	}
	p.stats.reads++
	page, err := LoadPage(pos, buf)
	if err != nil {
		return nil, err
	}
	if err := p.placeLocked(pos, page); err != nil {
		return nil, err
	}
	return page, nil
}

// AllocInner carves out ceil(nBytes/chunkSize) contiguous chunks, scanning
// existing Slots pages in position order and allocating fresh ones once the
// scan runs out, exactly as spec.md §4.5 describes: a run resets whenever it
// hits an occupied chunk or a page that isn't adjacent (by position) to the
// one before it.
func (p *Pager) AllocInner(nBytes int) (common.Position, error) {
	if nBytes <= 0 {
		return 0, fmt.Errorf("%w: alloc_inner(0) is invalid", common.ErrBadAlloc)
	}
	need := (nBytes + int(p.chunkSize) - 1) / int(p.chunkSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.existingSlotsPages()
	if err != nil {
		return 0, err
	}

	var (
		runStart  common.Position
		haveRun   bool
		runLen    int
		prevPos   common.Position
		havePrev  bool
		idx       int
	)

	for {
		var pagePos common.Position
		var page *Page
		if idx < len(existing) {
			pagePos = existing[idx]
			idx++
			page, err = p.getLocked(pagePos)
			if err != nil {
				return 0, err
			}
		} else {
			pos, err := p.allocator.Alloc()
			if err != nil {
				return 0, err
			}
			page = NewPage(pos, p.pageSize, common.PageTypeSlots)
			if err := p.placeLocked(pos, page); err != nil {
				return 0, err
			}
			pagePos = pos
		}

		if !havePrev || pagePos != prevPos+common.Position(p.pageSize) {
			haveRun = false
			runLen = 0
		}

		bitmap := p.slotsBitmap(page)
		for c := 0; c < p.chunksPerPage; c++ {
			if !bitGet(bitmap, c) {
				if !haveRun {
					haveRun = true
					runStart = p.chunkPos(pagePos, c)
				}
				runLen++
				if runLen == need {
					if err := p.markRangeLocked(runStart, need, true); err != nil {
						return 0, err
					}
					return runStart, nil
				}
			} else {
				haveRun = false
				runLen = 0
			}
		}

		prevPos, havePrev = pagePos, true
	}
}

// markRangeLocked sets (occupied=true) or clears (occupied=false) need
// contiguous chunk bits starting at pos, writing back every touched page.
func (p *Pager) markRangeLocked(pos common.Position, need int, occupied bool) error {
	pagePos, chunkIdx, err := p.splitPosition(pos)
	if err != nil {
		return err
	}

	remaining := need
	for remaining > 0 {
		page, err := p.getLocked(pagePos)
		if err != nil {
			return err
		}
		bitmap := p.slotsBitmap(page)
		for ; chunkIdx < p.chunksPerPage && remaining > 0; chunkIdx++ {
			bitSet(bitmap, chunkIdx, occupied)
			remaining--
		}
		page.SetDirty(true)
		if err := p.placeLocked(pagePos, page); err != nil {
			return err
		}
		pagePos += common.Position(p.pageSize)
		chunkIdx = 0
	}
	return nil
}

// FreeInner clears the chunk bits covering nBytes starting at pos.
// Double-free is a no-op, not an error (spec.md §9).
func (p *Pager) FreeInner(pos common.Position, nBytes int) error {
	if nBytes <= 0 {
		return nil
	}
	need := (nBytes + int(p.chunkSize) - 1) / int(p.chunkSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markRangeLocked(pos, need, false)
}

// GetInner copies nBytes starting at pos, across as many consecutive Slots
// pages as needed.
func (p *Pager) GetInner(pos common.Position, nBytes int) ([]byte, error) {
	if nBytes <= 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pagePos, chunkIdx, err := p.splitPosition(pos)
	if err != nil {
		return nil, err
	}

	out := make([]byte, nBytes)
	written := 0
	byteOff := p.headerSize() + chunkIdx*int(p.chunkSize)

	for written < nBytes {
		page, err := p.getLocked(pagePos)
		if err != nil {
			return nil, err
		}
		data := page.Data()
		for byteOff < len(data) && written < nBytes {
			out[written] = data[byteOff]
			written++
			byteOff++
		}
		pagePos += common.Position(p.pageSize)
		byteOff = p.headerSize()
	}
	return out, nil
}

// PlaceInner writes data starting at pos, across as many consecutive Slots
// pages as needed. Every page written through must already be a Slots page.
func (p *Pager) PlaceInner(pos common.Position, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pagePos, chunkIdx, err := p.splitPosition(pos)
	if err != nil {
		return err
	}

	written := 0
	byteOff := p.headerSize() + chunkIdx*int(p.chunkSize)

	for written < len(data) {
		page, err := p.getLocked(pagePos)
		if err != nil {
			return err
		}
		if page.Type() != common.PageTypeSlots {
			return fmt.Errorf("%w: position %d is not within a Slots page", common.ErrBadPosition, pagePos)
		}
		buf := page.Data()
		for byteOff < len(buf) && written < len(data) {
			buf[byteOff] = data[written]
			written++
			byteOff++
		}
		page.SetDirty(true)
		if err := p.placeLocked(pagePos, page); err != nil {
			return err
		}
		pagePos += common.Position(p.pageSize)
		byteOff = p.headerSize()
	}
	return nil
}
