package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/internal/pow2"
)

// Inspector is the read-only view of an allocator that the checks need.
// *buddy.Allocator satisfies it.
type Inspector interface {
	Blocks() []buddy.BlockInfo
	FreeList(order int) []int
	Report() buddy.Stats
}

// ValidationError describes one violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants runs every check and joins the failures.
func AllInvariants(in Inspector) error {
	st := in.Report()
	blocks := in.Blocks()
	return errors.Join(
		Partition(st, blocks),
		Orders(st, blocks),
		FreeLists(in, st, blocks),
		Coalesced(st, blocks),
		Accounting(st, blocks),
	)
}

// Partition checks that blocks, sorted by offset, cover [0, TotalSize) exactly.
func Partition(st buddy.Stats, blocks []buddy.BlockInfo) error {
	if len(blocks) == 0 {
		return &ValidationError{Type: "Partition", Message: "no blocks", Offset: -1}
	}
	next := 0
	for _, b := range blocks {
		switch {
		case b.Offset < next:
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("overlaps previous block ending at %d", next),
				Offset:  b.Offset,
			}
		case b.Offset > next:
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("gap of %d bytes", b.Offset-next),
				Offset:  next,
			}
		}
		next = b.Offset + b.Size
	}
	if next != st.TotalSize {
		return &ValidationError{
			Type:    "Partition",
			Message: fmt.Sprintf("blocks end at %d, arena is %d bytes", next, st.TotalSize),
			Offset:  next,
		}
	}
	return nil
}

// Orders checks that each block's size matches its order and that the block
// starts on a multiple of its own size.
func Orders(st buddy.Stats, blocks []buddy.BlockInfo) error {
	for _, b := range blocks {
		if b.Order < 0 || b.Order > st.MaxOrder {
			return &ValidationError{
				Type:    "Orders",
				Message: fmt.Sprintf("order %d outside [0, %d]", b.Order, st.MaxOrder),
				Offset:  b.Offset,
			}
		}
		if want := st.BlockSize(b.Order); b.Size != want || !pow2.IsPow2(b.Size) {
			return &ValidationError{
				Type:    "Orders",
				Message: fmt.Sprintf("size %d does not match order %d (want %d)", b.Size, b.Order, want),
				Offset:  b.Offset,
			}
		}
		if b.Offset%b.Size != 0 {
			return &ValidationError{
				Type:    "Orders",
				Message: fmt.Sprintf("offset not aligned to block size %d", b.Size),
				Offset:  b.Offset,
			}
		}
	}
	return nil
}

// FreeLists checks that the free lists hold exactly the free blocks, each
// once, on the list for its order, and that the per-order counts in Stats agree.
func FreeLists(in Inspector, st buddy.Stats, blocks []buddy.BlockInfo) error {
	byOff := make(map[int]buddy.BlockInfo, len(blocks))
	for _, b := range blocks {
		byOff[b.Offset] = b
	}

	seen := make(map[int]int)
	for order := 0; order <= st.MaxOrder; order++ {
		list := in.FreeList(order)
		if order < len(st.FreeBlocks) && len(list) != st.FreeBlocks[order] {
			return &ValidationError{
				Type:    "FreeLists",
				Message: fmt.Sprintf("order %d list has %d entries, stats report %d", order, len(list), st.FreeBlocks[order]),
				Offset:  -1,
			}
		}
		for _, off := range list {
			if prev, dup := seen[off]; dup {
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("listed at order %d and again at order %d", prev, order),
					Offset:  off,
				}
			}
			seen[off] = order

			b, ok := byOff[off]
			switch {
			case !ok:
				return &ValidationError{Type: "FreeLists", Message: "listed offset is not a block", Offset: off}
			case !b.Free:
				return &ValidationError{Type: "FreeLists", Message: "allocated block on a free list", Offset: off}
			case b.Order != order:
				return &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("order %d block on order %d list", b.Order, order),
					Offset:  off,
				}
			}
		}
	}

	for _, b := range blocks {
		if _, listed := seen[b.Offset]; b.Free && !listed {
			return &ValidationError{Type: "FreeLists", Message: "free block missing from its list", Offset: b.Offset}
		}
	}
	return nil
}

// Coalesced checks that no free block has a free buddy of the same order.
func Coalesced(st buddy.Stats, blocks []buddy.BlockInfo) error {
	byOff := make(map[int]buddy.BlockInfo, len(blocks))
	for _, b := range blocks {
		byOff[b.Offset] = b
	}
	for _, b := range blocks {
		if !b.Free || b.Order >= st.MaxOrder {
			continue
		}
		bud, ok := byOff[pow2.BuddyOf(b.Offset, b.Size)]
		if ok && bud.Free && bud.Order == b.Order {
			return &ValidationError{
				Type:    "Coalesced",
				Message: fmt.Sprintf("free buddies at order %d were not merged", b.Order),
				Offset:  min(b.Offset, bud.Offset),
				Details: map[string]any{"buddy": bud.Offset},
			}
		}
	}
	return nil
}

// Accounting checks the usage counters against the block table.
func Accounting(st buddy.Stats, blocks []buddy.BlockInfo) error {
	used, free := 0, 0
	for _, b := range blocks {
		if b.Free {
			free++
			if b.Requested != 0 {
				return &ValidationError{Type: "Accounting", Message: "free block carries requested bytes", Offset: b.Offset}
			}
			continue
		}
		if b.Requested <= 0 || b.Requested > b.Size {
			return &ValidationError{
				Type:    "Accounting",
				Message: fmt.Sprintf("requested %d outside (0, %d]", b.Requested, b.Size),
				Offset:  b.Offset,
			}
		}
		used += b.Requested
	}

	switch {
	case used != st.UsedBytes:
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("UsedBytes %d, blocks account for %d", st.UsedBytes, used),
			Offset:  -1,
		}
	case st.UsedBytes > st.TotalSize:
		return &ValidationError{Type: "Accounting", Message: "UsedBytes exceeds arena", Offset: -1}
	case st.OverheadBytes != len(blocks)*buddy.HeaderSize:
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("OverheadBytes %d for %d blocks", st.OverheadBytes, len(blocks)),
			Offset:  -1,
		}
	case free != st.FreeBlockCount || len(blocks)-free != st.AllocatedBlocks:
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("block counts disagree: %d free/%d allocated vs stats %d/%d", free, len(blocks)-free, st.FreeBlockCount, st.AllocatedBlocks),
			Offset:  -1,
		}
	}
	return nil
}
