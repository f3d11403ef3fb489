package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy"
)

// fakeInspector serves hand-built snapshots so each check can be tripped.
type fakeInspector struct {
	blocks []buddy.BlockInfo
	lists  map[int][]int
	stats  buddy.Stats
}

func (f *fakeInspector) Blocks() []buddy.BlockInfo { return f.blocks }
func (f *fakeInspector) FreeList(order int) []int  { return f.lists[order] }
func (f *fakeInspector) Report() buddy.Stats       { return f.stats }

// healthy64 is a 64-byte arena with min block 16, split as [16 used][16 free][32 free].
func healthy64() *fakeInspector {
	return &fakeInspector{
		blocks: []buddy.BlockInfo{
			{Offset: 0, Order: 0, Size: 16, Requested: 10},
			{Offset: 16, Order: 0, Size: 16, Free: true},
			{Offset: 32, Order: 1, Size: 32, Free: true},
		},
		lists: map[int][]int{0: {16}, 1: {32}},
		stats: buddy.Stats{
			TotalSize:       64,
			MinBlockSize:    16,
			MaxOrder:        2,
			FreeBlocks:      []int{1, 1, 0},
			UsedBytes:       10,
			OverheadBytes:   3 * buddy.HeaderSize,
			FreeBlockCount:  2,
			AllocatedBlocks: 1,
		},
	}
}

func requireViolation(t *testing.T, err error, typ string) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %T", err)
	require.Equal(t, typ, verr.Type, "error: %v", err)
}

func TestAllInvariants_Healthy(t *testing.T) {
	require.NoError(t, AllInvariants(healthy64()))
}

func TestAllInvariants_RealAllocator(t *testing.T) {
	a, err := buddy.New(1024, 16)
	require.NoError(t, err)
	defer a.Destroy()

	require.NoError(t, AllInvariants(a))
	h, _, err := a.Alloc(100)
	require.NoError(t, err)
	require.NoError(t, AllInvariants(a))
	require.NoError(t, a.Free(h))
	require.NoError(t, AllInvariants(a))
}

func TestPartition_Gap(t *testing.T) {
	in := healthy64()
	in.blocks = in.blocks[1:]
	requireViolation(t, Partition(in.stats, in.blocks), "Partition")
}

func TestPartition_Overlap(t *testing.T) {
	in := healthy64()
	in.blocks[0].Size = 32
	requireViolation(t, Partition(in.stats, in.blocks), "Partition")
}

func TestPartition_ShortArena(t *testing.T) {
	in := healthy64()
	in.stats.TotalSize = 128
	requireViolation(t, Partition(in.stats, in.blocks), "Partition")
}

func TestOrders_SizeMismatch(t *testing.T) {
	in := healthy64()
	in.blocks[2].Order = 2
	requireViolation(t, Orders(in.stats, in.blocks), "Orders")
}

func TestOrders_Misaligned(t *testing.T) {
	in := &fakeInspector{
		blocks: []buddy.BlockInfo{
			{Offset: 0, Order: 0, Size: 16, Free: true},
			{Offset: 16, Order: 1, Size: 32, Free: true},
			{Offset: 48, Order: 0, Size: 16, Free: true},
		},
		stats: buddy.Stats{TotalSize: 64, MinBlockSize: 16, MaxOrder: 2},
	}
	requireViolation(t, Orders(in.stats, in.blocks), "Orders")
}

func TestFreeLists_MissingEntry(t *testing.T) {
	in := healthy64()
	in.lists[1] = nil
	in.stats.FreeBlocks[1] = 0
	requireViolation(t, FreeLists(in, in.stats, in.blocks), "FreeLists")
}

func TestFreeLists_AllocatedListed(t *testing.T) {
	in := healthy64()
	in.lists[0] = []int{16, 0}
	in.stats.FreeBlocks[0] = 2
	requireViolation(t, FreeLists(in, in.stats, in.blocks), "FreeLists")
}

func TestFreeLists_WrongOrder(t *testing.T) {
	in := healthy64()
	in.lists = map[int][]int{0: {16, 32}}
	in.stats.FreeBlocks = []int{2, 0, 0}
	requireViolation(t, FreeLists(in, in.stats, in.blocks), "FreeLists")
}

func TestFreeLists_CountMismatch(t *testing.T) {
	in := healthy64()
	in.stats.FreeBlocks[0] = 5
	requireViolation(t, FreeLists(in, in.stats, in.blocks), "FreeLists")
}

func TestCoalesced_UnmergedPair(t *testing.T) {
	in := healthy64()
	in.blocks[0] = buddy.BlockInfo{Offset: 0, Order: 0, Size: 16, Free: true}
	requireViolation(t, Coalesced(in.stats, in.blocks), "Coalesced")
}

func TestAccounting_UsedMismatch(t *testing.T) {
	in := healthy64()
	in.stats.UsedBytes = 16
	requireViolation(t, Accounting(in.stats, in.blocks), "Accounting")
}

func TestAccounting_Overhead(t *testing.T) {
	in := healthy64()
	in.stats.OverheadBytes = buddy.HeaderSize
	requireViolation(t, Accounting(in.stats, in.blocks), "Accounting")
}

func TestAccounting_RequestedTooLarge(t *testing.T) {
	in := healthy64()
	in.blocks[0].Requested = 17
	in.stats.UsedBytes = 17
	requireViolation(t, Accounting(in.stats, in.blocks), "Accounting")
}

func TestAllInvariants_JoinsFailures(t *testing.T) {
	in := healthy64()
	in.stats.UsedBytes = 99
	in.stats.FreeBlocks[0] = 7

	err := AllInvariants(in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Accounting")
	require.Contains(t, err.Error(), "FreeLists")
}

func TestValidationError_Format(t *testing.T) {
	require.Equal(t, "Partition at offset 32: gap", (&ValidationError{Type: "Partition", Message: "gap", Offset: 32}).Error())
	require.Equal(t, "Accounting: off", (&ValidationError{Type: "Accounting", Message: "off", Offset: -1}).Error())
}
