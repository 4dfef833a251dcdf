package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/novaspage/internal/lock"
	"github.com/tuannm99/novaspage/internal/storage"
)

var (
	DefaultCapacity = 64

	ErrNoFreeFrame   = errors.New("bufferpool: no free frame available (all pinned)")
	ErrPagePinned    = errors.New("bufferpool: page is pinned")
	ErrPageNotPinned = errors.New("bufferpool: page is not pinned")
	ErrUnknownPolicy = errors.New("bufferpool: unknown replacement policy")
)

type Frame struct {
	PageNum int32
	Buf     []byte
	Dirty   bool
	Pins    lock.RefCount
}

// Stats counts page traffic through the pool.
type Stats struct {
	LogicalReads   uint64 // GetPage calls
	PhysicalReads  uint64 // pages loaded from disk
	PhysicalWrites uint64 // pages written back
	Evictions      uint64
}

// Pool caches the pages of one file in a fixed number of frames.
type Pool struct {
	sm *storage.StorageManager
	fs storage.FileSet

	mu        sync.Mutex
	frames    []*Frame      // len == capacity, nil == free slot
	pageTable map[int32]int // page number -> frame index
	stats     Stats

	replacementPolicy Replacer
}

func NewPool(sm *storage.StorageManager, fs storage.FileSet, capacity int, policy Policy) (*Pool, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	repl, err := newReplacer(policy, capacity)
	if err != nil {
		return nil, err
	}
	return &Pool{
		sm:                sm,
		fs:                fs,
		frames:            make([]*Frame, capacity),
		pageTable:         make(map[int32]int),
		replacementPolicy: repl,
	}, nil
}

// GetPage pins pageNum, reading it from disk on a miss.
func (p *Pool) GetPage(pageNum int32) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.LogicalReads++
	if f := p.hit(pageNum); f != nil {
		return f.Buf, nil
	}
	f, err := p.claimFrame(pageNum)
	if err != nil {
		return nil, err
	}
	if err := p.sm.ReadPage(p.fs, pageNum, f.Buf); err != nil {
		p.releaseFrame(f)
		return nil, err
	}
	p.stats.PhysicalReads++
	return f.Buf, nil
}

// NewPage pins a zeroed frame for pageNum without reading the disk. The frame
// starts dirty so the page reaches disk even if the caller never writes it.
func (p *Pool) NewPage(pageNum int32) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pageTable[pageNum]; ok {
		return nil, fmt.Errorf("bufferpool: page %d already resident", pageNum)
	}
	f, err := p.claimFrame(pageNum)
	if err != nil {
		return nil, err
	}
	clear(f.Buf)
	f.Dirty = true
	return f.Buf, nil
}

func (p *Pool) hit(pageNum int32) *Frame {
	idx, ok := p.pageTable[pageNum]
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if f == nil {
		// Inconsistent: mapping exists but frame is nil -> cleanup
		delete(p.pageTable, pageNum)
		return nil
	}
	n := f.Pins.Inc()
	p.replacementPolicy.RecordAccess(idx)
	if n == 1 {
		p.replacementPolicy.SetEvictable(idx, false)
	}
	return f
}

// claimFrame maps pageNum to a free or evicted frame, pinned once.
// Caller holds p.mu.
func (p *Pool) claimFrame(pageNum int32) (*Frame, error) {
	idx := -1
	for i, f := range p.frames {
		if f == nil {
			idx = i
			break
		}
	}

	if idx == -1 {
		victimIdx, ok := p.replacementPolicy.Evict()
		if !ok {
			return nil, ErrNoFreeFrame
		}
		victim := p.frames[victimIdx]
		if victim == nil || victim.Pins.Pinned() {
			// Defensive: replacer should not return nil/pinned victims.
			return nil, ErrNoFreeFrame
		}
		if victim.Dirty {
			if err := p.sm.WritePage(p.fs, victim.PageNum, victim.Buf); err != nil {
				// Put victim back as evictable
				p.replacementPolicy.RecordAccess(victimIdx)
				p.replacementPolicy.SetEvictable(victimIdx, true)
				return nil, err
			}
			p.stats.PhysicalWrites++
		}
		slog.Debug("bufferpool: evict", "page", victim.PageNum, "frame", victimIdx, "dirty", victim.Dirty)
		p.stats.Evictions++
		delete(p.pageTable, victim.PageNum)
		p.frames[victimIdx] = nil
		idx = victimIdx
	}

	f := &Frame{PageNum: pageNum, Buf: make([]byte, storage.PageSize)}
	f.Pins.Inc()
	p.frames[idx] = f
	p.pageTable[pageNum] = idx
	p.replacementPolicy.RecordAccess(idx)
	p.replacementPolicy.SetEvictable(idx, false)
	return f, nil
}

// releaseFrame undoes claimFrame after a failed load.
func (p *Pool) releaseFrame(f *Frame) {
	idx, ok := p.pageTable[f.PageNum]
	if !ok {
		return
	}
	delete(p.pageTable, f.PageNum)
	p.frames[idx] = nil
	p.replacementPolicy.Remove(idx)
}

// Unpin drops one pin on pageNum; dirty marks it for write-back.
func (p *Pool) Unpin(pageNum int32, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pageNum]
	if !ok || p.frames[idx] == nil {
		return fmt.Errorf("%w: page %d", ErrPageNotPinned, pageNum)
	}

	f := p.frames[idx]
	n, err := f.Pins.Dec()
	if err != nil {
		return fmt.Errorf("%w: page %d", ErrPageNotPinned, pageNum)
	}
	if dirty {
		f.Dirty = true
	}
	if n == 0 {
		p.replacementPolicy.SetEvictable(idx, true)
	}
	return nil
}

func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *Pool) flushLocked() error {
	for _, f := range p.frames {
		if f == nil || !f.Dirty {
			continue
		}
		if err := p.sm.WritePage(p.fs, f.PageNum, f.Buf); err != nil {
			return err
		}
		p.stats.PhysicalWrites++
		f.Dirty = false
	}
	return nil
}

// PinnedCount is the number of frames with at least one pin.
func (p *Pool) PinnedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, f := range p.frames {
		if f != nil && f.Pins.Pinned() {
			n++
		}
	}
	return n
}

// DropAll flushes and forgets every frame. It refuses while any page is pinned.
func (p *Pool) DropAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if f != nil && f.Pins.Pinned() {
			return fmt.Errorf("%w: page %d", ErrPagePinned, f.PageNum)
		}
	}
	if err := p.flushLocked(); err != nil {
		return err
	}
	for i, f := range p.frames {
		if f == nil {
			continue
		}
		delete(p.pageTable, f.PageNum)
		p.frames[i] = nil
		p.replacementPolicy.Remove(i)
	}
	return nil
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
