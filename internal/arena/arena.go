// Package arena provides the backing byte regions that buddy allocators
// subdivide. A Region is obtained once, handed to a single owner, and
// released exactly once.
package arena

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/gopkg/lang/mcache"
)

// Kind selects where a region's bytes come from.
type Kind uint8

const (
	// KindHeap takes the region from the pooled Go heap (mcache).
	KindHeap Kind = iota
	// KindMmap maps an anonymous private region outside the Go heap.
	// Platforms without mmap fall back to KindHeap.
	KindMmap
)

// MaxHeapSize is the largest region the pooled heap can serve; mcache keeps
// one pool per power of two up to 1<<45.
const MaxHeapSize = 1 << 45

var (
	// ErrBadSize indicates a non-positive region size.
	ErrBadSize = errors.New("arena: size must be positive")

	// ErrTooLarge indicates a heap region above MaxHeapSize.
	ErrTooLarge = errors.New("arena: size exceeds heap backing limit")
)

// String returns the flag spelling of k.
func (k Kind) String() string {
	switch k {
	case KindHeap:
		return "heap"
	case KindMmap:
		return "mmap"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses "heap" or "mmap" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "heap":
		return KindHeap, nil
	case "mmap":
		return KindMmap, nil
	default:
		return KindHeap, fmt.Errorf("arena: unknown backing %q (want heap or mmap)", s)
	}
}

// Region is a fixed-size byte region.
type Region struct {
	data    []byte
	kind    Kind
	release func([]byte) error
}

// New obtains a zeroed region of exactly size bytes.
func New(kind Kind, size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}
	if kind == KindMmap {
		data, err := mapAnon(size)
		if err == nil {
			return &Region{data: data, kind: KindMmap, release: unmapAnon}, nil
		}
		if !errors.Is(err, errNoMmap) {
			return nil, fmt.Errorf("arena: map %d bytes: %w", size, err)
		}
	}
	if size > MaxHeapSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, MaxHeapSize)
	}
	buf := mcache.Malloc(size)
	clear(buf)
	return &Region{
		data: buf,
		kind: KindHeap,
		release: func(b []byte) error {
			mcache.Free(b)
			return nil
		},
	}, nil
}

// Bytes returns the region's bytes, or nil after Release.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the region size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Kind reports where the bytes actually came from.
func (r *Region) Kind() Kind {
	return r.kind
}

// Release returns the bytes to their source. Calling it again is a no-op.
func (r *Region) Release() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return r.release(data)
}
