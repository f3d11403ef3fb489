package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/pkg/report"
)

var demoSizes []int

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntSliceVar(&demoSizes, "alloc", []int{500, 400}, "Request sizes to allocate, in order")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Allocate a few large blocks, report coverage, free them",
		Long: `The demo command replays the classic buddy allocator exercise: on a
1KB arena with 16-byte minimum blocks it allocates 500 and 400 bytes,
reports coverage against the threshold, frees both blocks and shows that
the arena coalesces back into a single free block.

Example:
  buddyctl demo
  buddyctl demo --alloc 200,200,100 --threshold 50
  buddyctl demo --size 4096 --min-block 32 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

func runDemo() error {
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Destroy()

	if err := printStatus(a, "Initial state"); err != nil {
		return err
	}

	printInfo("\n=== Allocating ===\n")
	handles := make([]buddy.Handle, 0, len(demoSizes))
	for _, size := range demoSizes {
		h, _, err := a.Alloc(size)
		if err != nil {
			printInfo("alloc %d: %v\n", size, err)
			continue
		}
		info, _ := a.Lookup(h)
		printInfo("alloc %d -> offset %d (block %d bytes, order %d)\n", size, h.Offset(), info.Size, info.Order)
		handles = append(handles, h)
	}

	if err := printStatus(a, "With memory allocated"); err != nil {
		return err
	}

	printInfo("\n=== Freeing ===\n")
	for _, h := range handles {
		if err := a.Free(h); err != nil {
			return fmt.Errorf("free offset %d: %w", h.Offset(), err)
		}
		printInfo("free offset %d\n", h.Offset())
	}

	if err := printStatus(a, "After freeing"); err != nil {
		return err
	}

	st := a.Report()
	if st.FreeBlocks[st.MaxOrder] != 1 || st.UsedBytes != 0 {
		return fmt.Errorf("arena did not coalesce back to one block: %v free per order", st.FreeBlocks)
	}

	if err := printFinal(a, "Final report"); err != nil {
		return err
	}
	if !jsonOut {
		verdict := "below"
		if report.Pass(st, report.Options{Threshold: threshold, Peak: true}) {
			verdict = "reached"
		}
		printInfo("Peak coverage %.2f%% %s the %.0f%% target\n", st.PeakUtilization, verdict, threshold)
	}
	return nil
}
