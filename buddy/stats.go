package buddy

import "slices"

// PeakUtilization returns the highest UsedBytes/TotalSize percentage seen
// over the allocator's lifetime, clamped to [0, 100].
func (a *Allocator) PeakUtilization() float64 {
	return clampPercent(a.peak)
}

// Report returns a snapshot of per-order free counts and usage figures.
// It does not mutate the allocator.
func (a *Allocator) Report() Stats {
	st := Stats{
		TotalSize:       a.totalSize,
		MinBlockSize:    a.minBlockSize,
		MaxOrder:        a.maxOrder,
		PeakUtilization: a.PeakUtilization(),
	}
	if a.destroyed {
		return st
	}

	st.FreeBlocks = make([]int, len(a.freeLists))
	for order, fl := range a.freeLists {
		st.FreeBlocks[order] = fl.count
		st.FreeBlockCount += fl.count
		st.FreeBlockBytes += fl.count * a.BlockSize(order)
	}
	st.AllocatedBlocks = len(a.blocks) - st.FreeBlockCount

	st.UsedBytes = a.usedBytes
	st.OverheadBytes = a.overheadBytes
	st.FreeBytes = max(a.totalSize-a.usedBytes-a.overheadBytes, 0)

	st.Utilization = clampPercent(a.percent(a.usedBytes))
	st.OverheadPercent = clampPercent(a.percent(a.overheadBytes))
	st.TotalUsagePercent = clampPercent(a.percent(a.usedBytes + a.overheadBytes))
	st.InternalFragmentation = st.TotalUsagePercent - st.Utilization
	st.FreePercent = a.percent(st.FreeBytes)
	return st
}

// Counters returns operation instrumentation accumulated since New.
func (a *Allocator) Counters() Counters {
	return a.counters
}

// Blocks lists every block of the arena in offset order.
func (a *Allocator) Blocks() []BlockInfo {
	if a.destroyed {
		return nil
	}
	out := make([]BlockInfo, 0, len(a.blocks))
	for _, b := range a.blocks {
		out = append(out, a.info(b))
	}
	slices.SortFunc(out, func(x, y BlockInfo) int { return x.Offset - y.Offset })
	return out
}

// Lookup describes the block starting at h, if there is one.
func (a *Allocator) Lookup(h Handle) (BlockInfo, bool) {
	b, err := a.lookup(h)
	if err != nil {
		return BlockInfo{}, false
	}
	return a.info(b), true
}

func (a *Allocator) info(b *block) BlockInfo {
	return BlockInfo{
		Offset:    b.off,
		Order:     b.order,
		Size:      a.BlockSize(b.order),
		Free:      b.free,
		Requested: b.requested,
	}
}

func clampPercent(p float64) float64 {
	return min(max(p, 0), 100)
}
