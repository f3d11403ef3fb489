// Package buddy provides a fixed-arena binary buddy allocator.
//
// # Overview
//
// One contiguous arena of TotalSize bytes (a power of two) is carved into
// power-of-two blocks by repeated halving. Block sizes are indexed by order:
//
//	size(order) = MinBlockSize << order
//	MaxOrder    = log2(TotalSize / MinBlockSize)
//
// Free blocks are kept on one list per order. Freeing a block coalesces it
// with its buddy (the other half of the same parent) whenever both are free,
// cascading up toward the whole-arena block.
//
// # Usage Example
//
//	a, err := buddy.New(1024, 16)
//	if err != nil {
//	    return err
//	}
//	defer a.Destroy()
//
//	h, buf, err := a.Alloc(500) // served from a 512-byte block
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//
//	err = a.Free(h)
//
// # Buddies
//
// Buddy pairing is computed, not stored. For a block at offset off and size s
// the buddy lives at off ^ s. Splitting and merging therefore never patch
// neighbour links, and a stale relation cannot dangle.
//
// # Metadata
//
// Block records live in a side table keyed by offset; the arena holds payload
// only. Each live block is still charged HeaderSize bytes of overhead so the
// reported fragmentation tracks how finely the arena is split.
//
// # Accounting
//
//	UsedBytes      sum of requested sizes of allocated blocks
//	OverheadBytes  HeaderSize per live block (free or allocated)
//	Utilization    UsedBytes / TotalSize * 100
//	Fragmentation  (UsedBytes+OverheadBytes)/TotalSize*100 - Utilization
//
// Utilization never counts the rounding slack of a block, so a 500-byte
// request in a 512-byte block adds 500 to UsedBytes.
//
// # Errors
//
// All failures are returned as errors wrapping one of ErrInvalidConfig,
// ErrInvalidSize, ErrOutOfMemory, ErrDoubleFree, ErrInvalidPointer or
// ErrDestroyed; match them with errors.Is. A failed call never changes the
// arena partition or the usage counters.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers sharing one between
// goroutines must serialize every call, including Report.
//
// # Related Packages
//
//   - github.com/joshuapare/buddykit/buddy/verify: structural invariant checks
//   - github.com/joshuapare/buddykit/pkg/report: text and JSON rendering of Stats
package buddy
