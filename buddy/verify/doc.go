// Package verify provides structural validation for buddy allocators.
//
// # Overview
//
// The checks read an allocator through the Inspector interface and never
// mutate it. They are primarily used in tests to confirm that every Alloc and
// Free leaves the allocator consistent.
//
// Validation categories:
//   - Partition: blocks tile the arena with no gaps and no overlaps
//   - Orders: every block's size is MinBlockSize << Order and it is aligned to its size
//   - FreeLists: each free block is on exactly one list, the one for its order
//   - Coalesced: no two free buddies are left unmerged
//   - Accounting: UsedBytes and OverheadBytes agree with the blocks
//
// # Quick Start
//
//	if err := verify.AllInvariants(a); err != nil {
//	    t.Fatalf("allocator corrupted: %v", err)
//	}
//
// # ValidationError
//
// All validation functions return *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string         // Check that failed (e.g., "Partition")
//	    Message string         // Human-readable description
//	    Offset  int            // Arena offset involved (-1 if N/A)
//	    Details map[string]any // Additional context
//	}
//
// AllInvariants joins every failure with errors.Join so that one call
// reports all broken invariants at once.
package verify
