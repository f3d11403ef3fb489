package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/buddy/verify"
	"github.com/joshuapare/buddykit/pkg/report"
)

var (
	simOps       int
	simSeed      int64
	simMaxSize   int
	simFreeRatio float64
	simCheck     bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVar(&simOps, "ops", 1000, "Number of alloc/free operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&simMaxSize, "max-size", 0, "Largest request in bytes (default: arena/8)")
	cmd.Flags().Float64Var(&simFreeRatio, "free-ratio", 0.4, "Probability that a step frees instead of allocating")
	cmd.Flags().BoolVar(&simCheck, "check", true, "Verify allocator invariants after every step")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded random alloc/free workload",
		Long: `The simulate command issues random allocations and frees against a
fresh arena, optionally verifying every structural invariant after each
step, and reports the resulting fragmentation and peak utilization.

Example:
  buddyctl simulate --ops 5000 --seed 42
  buddyctl simulate --size 1048576 --min-block 64 --max-size 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
}

// SimResult summarizes a simulate run.
type SimResult struct {
	Seed          int64          `json:"seed"`
	Ops           int            `json:"ops"`
	Allocs        int            `json:"allocs"`
	OutOfMemory   int            `json:"out_of_memory"`
	Frees         int            `json:"frees"`
	LiveAtEnd     int            `json:"live_at_end"`
	Counters      buddy.Counters `json:"counters"`
	Report        report.Summary `json:"report"`
	InvariantsRun bool           `json:"invariants_checked"`
}

func runSimulate() error {
	if simFreeRatio < 0 || simFreeRatio > 1 {
		return fmt.Errorf("--free-ratio must be within [0, 1], got %v", simFreeRatio)
	}

	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Destroy()

	maxSize := simMaxSize
	if maxSize <= 0 {
		maxSize = max(a.TotalSize()/8, 1)
	}
	maxSize = min(maxSize, a.TotalSize())

	res, err := simulate(a, rand.New(rand.NewSource(simSeed)), simOps, maxSize, simFreeRatio, simCheck)
	if err != nil {
		return err
	}
	res.Seed = simSeed

	opts := report.Options{Threshold: threshold, Peak: true}
	if jsonOut {
		st := a.Report()
		res.Report = report.Summary{Stats: st, Threshold: threshold, Peak: true, Pass: report.Pass(st, opts)}
		return printJSON(res)
	}

	printInfo("Ops: %d  allocs: %d  out-of-memory: %d  frees: %d  live: %d\n",
		res.Ops, res.Allocs, res.OutOfMemory, res.Frees, res.LiveAtEnd)
	printInfo("Splits: %d  merges: %d\n", res.Counters.Splits, res.Counters.Merges)
	return printFinal(a, "Simulation result")
}

// simulate drives a with ops random steps. Requests are uniform in [1, maxSize].
func simulate(a *buddy.Allocator, rng *rand.Rand, ops, maxSize int, freeRatio float64, check bool) (SimResult, error) {
	res := SimResult{Ops: ops, InvariantsRun: check}
	var live []buddy.Handle

	for step := 0; step < ops; step++ {
		if len(live) > 0 && rng.Float64() < freeRatio {
			i := rng.Intn(len(live))
			h := live[i]
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			if err := a.Free(h); err != nil {
				return res, fmt.Errorf("step %d: free offset %d: %w", step, h.Offset(), err)
			}
			res.Frees++
		} else {
			h, _, err := a.Alloc(1 + rng.Intn(maxSize))
			switch {
			case errors.Is(err, buddy.ErrOutOfMemory):
				res.OutOfMemory++
			case err != nil:
				return res, fmt.Errorf("step %d: %w", step, err)
			default:
				live = append(live, h)
				res.Allocs++
			}
		}

		if check {
			if err := verify.AllInvariants(a); err != nil {
				return res, fmt.Errorf("step %d: invariants broken: %w", step, err)
			}
		}
	}

	res.LiveAtEnd = len(live)
	res.Counters = a.Counters()
	return res, nil
}
