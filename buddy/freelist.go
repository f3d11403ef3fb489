package buddy

// noBlock terminates free-list links.
const noBlock = -1

// block is the side-table record for one block of the partition.
// Records are keyed by offset in Allocator.blocks and never live in arena bytes.
type block struct {
	off       int
	order     int
	free      bool
	requested int // accounted bytes while allocated

	// Free-list links (offsets of neighbours at the same order).
	// Only meaningful while free.
	prev, next int
}

// freeList is the set of free blocks at one order, kept as a doubly linked
// list of offsets threaded through the side table. Push and pop work at the
// head, so the most recently freed block is reused first.
type freeList struct {
	head  int
	count int
}

// pushFree links b at the head of its order's list.
func (a *Allocator) pushFree(b *block) {
	fl := &a.freeLists[b.order]
	b.free = true
	b.prev = noBlock
	b.next = fl.head
	if fl.head != noBlock {
		a.blocks[fl.head].prev = b.off
	}
	fl.head = b.off
	fl.count++
}

// removeFree unlinks b from its order's list. O(1) via the offset index.
func (a *Allocator) removeFree(b *block) {
	fl := &a.freeLists[b.order]
	if b.prev != noBlock {
		a.blocks[b.prev].next = b.next
	} else {
		fl.head = b.next
	}
	if b.next != noBlock {
		a.blocks[b.next].prev = b.prev
	}
	b.prev, b.next = noBlock, noBlock
	fl.count--
}

// popFree unlinks and returns the head block at order, or nil when empty.
func (a *Allocator) popFree(order int) *block {
	head := a.freeLists[order].head
	if head == noBlock {
		return nil
	}
	b := a.blocks[head]
	a.removeFree(b)
	return b
}

// FreeList returns the offsets on the order's free list, head first.
// Out-of-range orders yield nil.
func (a *Allocator) FreeList(order int) []int {
	if a.destroyed || order < 0 || order >= len(a.freeLists) {
		return nil
	}
	offs := make([]int, 0, a.freeLists[order].count)
	for off := a.freeLists[order].head; off != noBlock; off = a.blocks[off].next {
		offs = append(offs, off)
	}
	return offs
}
