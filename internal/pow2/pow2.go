// Package pow2 provides the power-of-two arithmetic shared by the buddy
// allocator and its checkers.
package pow2

import "math/bits"

// IsPow2 reports whether n is a positive power of two.
//
// Example:
//
//	IsPow2(1)    = true
//	IsPow2(16)   = true
//	IsPow2(0)    = false
//	IsPow2(1000) = false
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for n > 0, and -1 otherwise.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}

// Ceil returns the smallest power of two >= n. Ceil(0) is 1.
//
// Example:
//
//	Ceil(1)   = 1
//	Ceil(400) = 512
//	Ceil(512) = 512
func Ceil(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// OrderFor returns the smallest order r such that minBlock<<r >= size.
// minBlock must be a power of two.
//
// Example (minBlock = 16):
//
//	OrderFor(1, 16)   = 0
//	OrderFor(16, 16)  = 0
//	OrderFor(17, 16)  = 1
//	OrderFor(500, 16) = 5
func OrderFor(size, minBlock int) int {
	if size <= minBlock {
		return 0
	}
	return Log2(Ceil(size)) - Log2(minBlock)
}

// BuddyOf returns the offset of the block paired with the block at off
// when both have the given size. Offsets are relative to the arena start.
func BuddyOf(off, size int) int {
	return off ^ size
}
