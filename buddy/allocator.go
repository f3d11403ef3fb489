package buddy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joshuapare/buddykit/internal/arena"
	"github.com/joshuapare/buddykit/internal/logger"
	"github.com/joshuapare/buddykit/internal/pow2"
)

// Allocator is a binary buddy allocator over one fixed arena.
//   - blocks is the side table: offset -> record for every live block
//   - freeLists[k] threads the free blocks of order k through that table
//   - buddies are computed from (offset, order), never stored
//
// An Allocator is not safe for concurrent use.
type Allocator struct {
	region *arena.Region
	mem    []byte

	totalSize    int
	minBlockSize int
	maxOrder     int

	blocks    map[int]*block
	freeLists []freeList

	usedBytes     int
	overheadBytes int
	peak          float64

	zeroOnFree bool
	log        *slog.Logger
	destroyed  bool

	// Pool for reusing block records across split/merge cycles
	blockPool sync.Pool

	counters Counters
}

// New creates an allocator owning a totalSize arena split down to blocks no
// smaller than minBlockSize. Both sizes must be powers of two, and
// minBlockSize must hold at least HeaderSize bytes.
//
// The arena starts as a single free block at MaxOrder().
func New(totalSize, minBlockSize int, opts ...Option) (*Allocator, error) {
	o := options{backing: BackingHeap}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Config{TotalSize: totalSize, MinBlockSize: minBlockSize}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region, err := arena.New(o.backing, totalSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	maxOrder := pow2.Log2(totalSize) - pow2.Log2(minBlockSize)
	a := &Allocator{
		region:       region,
		mem:          region.Bytes(),
		totalSize:    totalSize,
		minBlockSize: minBlockSize,
		maxOrder:     maxOrder,
		blocks:       make(map[int]*block, 64),
		freeLists:    make([]freeList, maxOrder+1),
		zeroOnFree:   o.zeroOnFree,
		log:          o.log,
		blockPool: sync.Pool{
			New: func() any {
				return &block{}
			},
		},
	}
	if a.log == nil {
		a.log = logger.L
	}
	for i := range a.freeLists {
		a.freeLists[i].head = noBlock
	}

	root := a.newBlock(0, maxOrder)
	a.pushFree(root)
	a.overheadBytes = HeaderSize

	a.log.Debug("buddy: init",
		"total", totalSize, "min_block", minBlockSize, "max_order", maxOrder, "backing", region.Kind().String())
	return a, nil
}

// Alloc reserves a block able to hold size bytes and returns its handle and
// a view of the first size bytes (capacity extends to the block size).
//
// The smallest sufficient order is tried first; a larger free block is split
// in half repeatedly until it reaches that order. Failed calls leave the
// allocator unchanged.
func (a *Allocator) Alloc(size int) (Handle, []byte, error) {
	a.counters.AllocCalls++
	if a.destroyed {
		a.counters.AllocFailures++
		return InvalidHandle, nil, ErrDestroyed
	}
	if size <= 0 || size > a.totalSize {
		a.counters.AllocFailures++
		return InvalidHandle, nil, fmt.Errorf("%w: %d (arena %d)", ErrInvalidSize, size, a.totalSize)
	}

	want := pow2.OrderFor(size, a.minBlockSize)
	if want > a.maxOrder {
		a.counters.AllocFailures++
		return InvalidHandle, nil, fmt.Errorf("%w: %d bytes needs order %d > %d", ErrOutOfMemory, size, want, a.maxOrder)
	}

	found := want
	for found <= a.maxOrder && a.freeLists[found].count == 0 {
		found++
	}
	if found > a.maxOrder {
		a.counters.AllocFailures++
		if a.log.Enabled(context.Background(), slog.LevelDebug) {
			a.log.Debug("buddy: out of memory", "size", size, "order", want, "used", a.usedBytes)
		}
		return InvalidHandle, nil, fmt.Errorf("%w: no free block of order >= %d for %d bytes", ErrOutOfMemory, want, size)
	}

	for found > want {
		a.split(a.freeLists[found].head)
		found--
	}

	b := a.popFree(want)
	b.free = false
	b.requested = min(a.BlockSize(want), size)

	a.usedBytes += b.requested
	a.counters.BytesAlloc += int64(b.requested)
	if u := a.percent(a.usedBytes); u > a.peak {
		a.peak = u
	}

	return Handle(b.off), a.mem[b.off : b.off+size : b.off+a.BlockSize(want)], nil
}

// split replaces the free block at off with its two halves one order down.
// The lower half ends up at the head of the lower list.
func (a *Allocator) split(off int) {
	parent := a.blocks[off]
	a.removeFree(parent)

	order := parent.order - 1
	half := a.BlockSize(order)

	parent.order = order
	upper := a.newBlock(off+half, order)
	a.pushFree(upper)
	a.pushFree(parent)

	a.overheadBytes += HeaderSize
	a.counters.Splits++
	if a.log.Enabled(context.Background(), slog.LevelDebug) {
		a.log.Debug("buddy: split", "offset", off, "from", order+1, "to", order, "size", half)
	}
}

// Free returns the block behind h to the arena and coalesces it with its
// buddy for as long as the buddy is free at the same order.
//
// A handle whose block is already free fails with ErrDoubleFree, including
// one that merged into a lower buddy and now lies inside a larger free block.
// Out-of-range or misaligned handles and offsets inside an allocated block
// fail with ErrInvalidPointer. Both leave state untouched.
func (a *Allocator) Free(h Handle) error {
	a.counters.FreeCalls++
	b, err := a.lookup(h)
	if err != nil {
		a.counters.FreeFailures++
		if errors.Is(err, ErrInvalidPointer) {
			if c := a.covering(int(h)); c != nil && c.free {
				return fmt.Errorf("%w: offset %d merged into free block at %d", ErrDoubleFree, int(h), c.off)
			}
		}
		return err
	}
	if b.free {
		a.counters.FreeFailures++
		return fmt.Errorf("%w: offset %d", ErrDoubleFree, b.off)
	}

	a.usedBytes = max(a.usedBytes-b.requested, 0)
	a.counters.BytesFreed += int64(b.requested)
	b.requested = 0

	if a.zeroOnFree {
		clear(a.mem[b.off : b.off+a.BlockSize(b.order)])
	}

	a.pushFree(b)
	a.merge(b)
	return nil
}

// merge coalesces b upward while its computed buddy is a free block of the
// same order. Each step strictly raises the order, so the loop ends by
// maxOrder at the latest.
func (a *Allocator) merge(b *block) {
	for b.order < a.maxOrder {
		size := a.BlockSize(b.order)
		bud, ok := a.blocks[pow2.BuddyOf(b.off, size)]
		if !ok || !bud.free || bud.order != b.order {
			return
		}

		a.removeFree(b)
		a.removeFree(bud)

		lower, upper := b, bud
		if upper.off < lower.off {
			lower, upper = upper, lower
		}
		delete(a.blocks, upper.off)
		a.putBlock(upper)

		lower.order++
		a.pushFree(lower)

		a.overheadBytes = max(a.overheadBytes-HeaderSize, 0)
		a.counters.Merges++
		if a.log.Enabled(context.Background(), slog.LevelDebug) {
			a.log.Debug("buddy: merge", "offset", lower.off, "order", lower.order, "size", size*2)
		}
		b = lower
	}
}

// Bytes returns the full block view (length = block size) for a live handle.
func (a *Allocator) Bytes(h Handle) ([]byte, error) {
	b, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	if b.free {
		return nil, fmt.Errorf("%w: offset %d is free", ErrInvalidPointer, b.off)
	}
	return a.mem[b.off : b.off+a.BlockSize(b.order)], nil
}

// Destroy releases the arena and the bookkeeping tables. Every later call
// fails with ErrDestroyed and previously returned views must not be used.
// Calling Destroy twice is a no-op.
func (a *Allocator) Destroy() error {
	if a.destroyed {
		return nil
	}
	a.destroyed = true
	a.blocks, a.freeLists, a.mem = nil, nil, nil
	a.usedBytes, a.overheadBytes = 0, 0
	return a.region.Release()
}

// lookup resolves h to a live block record.
func (a *Allocator) lookup(h Handle) (*block, error) {
	if a.destroyed {
		return nil, ErrDestroyed
	}
	off := int(h)
	if off < 0 || off >= a.totalSize || off%a.minBlockSize != 0 {
		return nil, fmt.Errorf("%w: offset %d outside arena or misaligned", ErrInvalidPointer, off)
	}
	b, ok := a.blocks[off]
	if !ok {
		return nil, fmt.Errorf("%w: offset %d is not a block boundary", ErrInvalidPointer, off)
	}
	return b, nil
}

// covering returns the block whose span strictly contains off, or nil when
// off is out of range, misaligned or itself a block boundary. Larger blocks
// start at off rounded down to their size, so each order costs one map lookup.
func (a *Allocator) covering(off int) *block {
	if off < 0 || off >= a.totalSize || off%a.minBlockSize != 0 {
		return nil
	}
	for k := 1; k <= a.maxOrder; k++ {
		base := off &^ (a.BlockSize(k) - 1)
		if base == off {
			continue
		}
		if b, ok := a.blocks[base]; ok && b.order >= k {
			return b
		}
	}
	return nil
}

func (a *Allocator) newBlock(off, order int) *block {
	b := a.blockPool.Get().(*block) //nolint:errcheck // pool only holds *block
	*b = block{off: off, order: order, prev: noBlock, next: noBlock}
	a.blocks[off] = b
	return b
}

func (a *Allocator) putBlock(b *block) {
	a.blockPool.Put(b)
}

func (a *Allocator) percent(n int) float64 {
	return float64(n) / float64(a.totalSize) * 100
}

// TotalSize returns the arena size in bytes.
func (a *Allocator) TotalSize() int { return a.totalSize }

// MinBlockSize returns the order-0 block size.
func (a *Allocator) MinBlockSize() int { return a.minBlockSize }

// MaxOrder returns the order of the whole-arena block.
func (a *Allocator) MaxOrder() int { return a.maxOrder }

// BlockSize returns the block size at order.
func (a *Allocator) BlockSize(order int) int { return a.minBlockSize << order }
