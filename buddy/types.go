package buddy

import "github.com/joshuapare/buddykit/internal/arena"

const (
	// HeaderSize is the bookkeeping cost accounted for every live block.
	// Block metadata is kept out of band, but the allocator still charges
	// one header per block boundary so overhead reflects fragmentation.
	HeaderSize = 16

	// MaxOrder bounds the number of splits between the whole arena and the
	// minimum block (totalSize/minBlockSize <= 2^MaxOrder).
	MaxOrder = 32
)

// Handle identifies an allocated block by its byte offset in the arena.
type Handle int

// InvalidHandle is returned alongside every failed Alloc.
const InvalidHandle Handle = -1

// Offset returns the block's byte offset within the arena.
func (h Handle) Offset() int { return int(h) }

// Backing selects where the arena bytes come from.
type Backing = arena.Kind

const (
	// BackingHeap takes the arena from pooled Go heap memory.
	BackingHeap = arena.KindHeap
	// BackingMmap maps the arena as anonymous memory outside the Go heap.
	BackingMmap = arena.KindMmap
)

// ParseBacking parses "heap" or "mmap".
func ParseBacking(s string) (Backing, error) {
	return arena.ParseKind(s)
}

// BlockInfo describes one block of the arena partition.
type BlockInfo struct {
	Offset    int  // Byte offset within the arena
	Order     int  // Size class; Size == MinBlockSize << Order
	Size      int  // Block size in bytes
	Free      bool // Free blocks sit on exactly one free list
	Requested int  // Bytes accounted to the caller (0 when free)
}

// Stats is a read-only snapshot of allocator state, see Allocator.Report.
type Stats struct {
	TotalSize    int
	MinBlockSize int
	MaxOrder     int

	// FreeBlocks[k] is the number of free blocks at order k.
	FreeBlocks []int

	UsedBytes      int // Bytes handed to callers (requested, not block sizes)
	OverheadBytes  int // HeaderSize per live block
	FreeBytes      int // TotalSize - UsedBytes - OverheadBytes, floored at 0
	FreeBlockBytes int // Sum of free block sizes

	AllocatedBlocks int
	FreeBlockCount  int

	Utilization           float64 // UsedBytes / TotalSize * 100
	OverheadPercent       float64 // OverheadBytes / TotalSize * 100
	TotalUsagePercent     float64 // (UsedBytes + OverheadBytes) / TotalSize * 100
	InternalFragmentation float64 // TotalUsagePercent - Utilization
	FreePercent           float64 // FreeBytes / TotalSize * 100
	PeakUtilization       float64 // High-water mark of Utilization
}

// BlockSize returns the size of a block at the given order.
func (s Stats) BlockSize(order int) int {
	return s.MinBlockSize << order
}

// Counters holds operation instrumentation. Unlike Stats, failed calls
// are counted here.
type Counters struct {
	AllocCalls    int // Total Alloc() calls
	AllocFailures int // Alloc() calls that returned an error
	FreeCalls     int // Total Free() calls
	FreeFailures  int // Free() calls that returned an error
	Splits        int // Blocks split into two buddies
	Merges        int // Buddy pairs coalesced into their parent
	BytesAlloc    int64
	BytesFreed    int64
}
