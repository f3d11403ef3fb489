package buddy

import "errors"

var (
	// ErrInvalidConfig indicates bad New parameters or a backing store that could not be obtained.
	ErrInvalidConfig = errors.New("buddy: invalid configuration")

	// ErrInvalidSize indicates a zero, negative, or larger-than-arena request.
	ErrInvalidSize = errors.New("buddy: invalid allocation size")

	// ErrOutOfMemory indicates that no free block large enough was found.
	// It is not fatal; the request may succeed after other blocks are freed.
	ErrOutOfMemory = errors.New("buddy: out of memory")

	// ErrDoubleFree indicates an attempt to free a block that is already free.
	ErrDoubleFree = errors.New("buddy: block already free")

	// ErrInvalidPointer indicates a handle that is not a live block boundary of this allocator.
	ErrInvalidPointer = errors.New("buddy: invalid handle")

	// ErrDestroyed indicates use of an allocator after Destroy.
	ErrDestroyed = errors.New("buddy: allocator destroyed")
)
