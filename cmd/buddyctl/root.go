package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/internal/logger"
	"github.com/joshuapare/buddykit/pkg/report"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	logJSON   bool
	arenaSize int
	minBlock  int
	backing   string
	threshold float64

	// out is where command output goes; set from the cobra command before each run.
	out io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "buddyctl",
	Short: "Exercise and inspect a fixed-arena buddy allocator",
	Long: `buddyctl drives a buddy allocator over a single power-of-two arena.
It can replay the classic two-allocation demo, run seeded random workloads,
or execute alloc/free scripts, and reports per-order free blocks, usage,
header overhead, fragmentation and a pass/fail verdict against a
utilization threshold.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		out = cmd.OutOrStdout()
		logger.Init(logger.Options{
			Enabled: verbose && !quiet,
			Output:  cmd.ErrOrStderr(),
			Level:   slog.LevelDebug,
			JSON:    logJSON,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every split and merge to stderr")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors and the final report")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output the final report in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write --verbose logs to stderr as JSON records")
	rootCmd.PersistentFlags().
		IntVar(&arenaSize, "size", buddy.DefaultTotalSize, "Arena size in bytes (power of two)")
	rootCmd.PersistentFlags().
		IntVar(&minBlock, "min-block", buddy.DefaultMinBlockSize, "Minimum block size in bytes (power of two)")
	rootCmd.PersistentFlags().StringVar(&backing, "backing", "heap", "Arena backing store: heap or mmap")
	rootCmd.PersistentFlags().
		Float64Var(&threshold, "threshold", report.DefaultThreshold, "Utilization percentage required to pass")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "err", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newAllocator builds an allocator from the global flags.
func newAllocator() (*buddy.Allocator, error) {
	b, err := buddy.ParseBacking(backing)
	if err != nil {
		return nil, err
	}
	cfg := buddy.Config{TotalSize: arenaSize, MinBlockSize: minBlock, Backing: b}
	a, err := buddy.NewFromConfig(cfg, buddy.WithLogger(logger.L))
	if err != nil {
		return nil, err
	}
	logger.Info("arena ready",
		"total", a.TotalSize(), "min_block", a.MinBlockSize(), "max_order", a.MaxOrder(), "backing", b.String())
	printVerbose("Arena: %d bytes, min block %d, max order %d, backing %s\n",
		a.TotalSize(), a.MinBlockSize(), a.MaxOrder(), b)
	return a, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(out, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(out, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printStatus renders an intermediate status block unless quiet or JSON output is on.
func printStatus(a *buddy.Allocator, title string) error {
	if quiet || jsonOut {
		return nil
	}
	return report.Render(out, a.Report(), report.Options{Title: title, Threshold: threshold})
}

// printFinal renders the closing report, judged on peak utilization.
func printFinal(a *buddy.Allocator, title string) error {
	opts := report.Options{Title: title, Threshold: threshold, Peak: true, HideOrders: true}
	if jsonOut {
		return report.JSON(out, a.Report(), opts)
	}
	return report.Render(out, a.Report(), opts)
}
