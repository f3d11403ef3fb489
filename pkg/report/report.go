// Package report renders buddy allocator statistics for people and scripts.
//
// The utilization threshold is caller policy: the allocator itself only
// exposes numbers, and this package decides how they are shown and whether
// a run counts as passing.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/buddykit/buddy"
)

// DefaultThreshold is the utilization percentage a run must reach to pass.
const DefaultThreshold = 80.0

// Options controls rendering.
type Options struct {
	// Threshold is the pass mark in percent. Zero means DefaultThreshold.
	Threshold float64

	// Peak judges the verdict on PeakUtilization instead of current utilization.
	Peak bool

	// Title heads the status block. Empty means "Buddy allocator".
	Title string

	// HideOrders omits the per-order free-block table.
	HideOrders bool
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

// Pass reports whether st meets the threshold in opts.
func Pass(st buddy.Stats, opts Options) bool {
	if opts.Peak {
		return st.PeakUtilization >= opts.threshold()
	}
	return st.Utilization >= opts.threshold()
}

var printer = message.NewPrinter(language.English)

// Render writes a human-readable status block: free blocks per order, then
// usage, overhead, fragmentation and the threshold verdict.
func Render(w io.Writer, st buddy.Stats, opts Options) error {
	ew := &errWriter{w: w}
	title := opts.Title
	if title == "" {
		title = "Buddy allocator"
	}

	ew.printf("\n=== %s ===\n", title)
	ew.printf("Total size:   %d bytes (%s)\n", st.TotalSize, humanize.IBytes(uint64(st.TotalSize)))
	ew.printf("Min block:    %d bytes, max order %d\n", st.MinBlockSize, st.MaxOrder)

	if !opts.HideOrders {
		width := len(printer.Sprintf("%d", st.TotalSize))
		for order, n := range st.FreeBlocks {
			size := printer.Sprintf("%d", st.BlockSize(order))
			ew.printf("Order %s (size %s%s): %d free\n", fmt.Sprintf("%2d", order), strings.Repeat(" ", width-len(size)), size, n)
		}
	}

	ew.printf("\n--- Coverage ---\n")
	ew.printf("Used:                   %d bytes (%.2f%%)\n", st.UsedBytes, st.Utilization)
	ew.printf("Header overhead:        %d bytes (%.2f%%)\n", st.OverheadBytes, st.OverheadPercent)
	ew.printf("Internal fragmentation: %.2f%%\n", st.InternalFragmentation)
	ew.printf("Total usage:            %.2f%%\n", st.TotalUsagePercent)
	ew.printf("Free:                   %d bytes (%.2f%%)\n", st.FreeBytes, st.FreePercent)
	ew.printf("Blocks:                 %d allocated, %d free (%s in free blocks)\n",
		st.AllocatedBlocks, st.FreeBlockCount, humanize.IBytes(uint64(st.FreeBlockBytes)))
	ew.printf("Peak utilization:       %.2f%%\n", st.PeakUtilization)

	verdict := "FAIL"
	if Pass(st, opts) {
		verdict = "PASS"
	}
	basis := "utilization"
	if opts.Peak {
		basis = "peak utilization"
	}
	ew.printf("Target %.0f%% %s:    %s\n", opts.threshold(), basis, verdict)
	return ew.err
}

// Summary is the JSON shape written by JSON.
type Summary struct {
	buddy.Stats
	Threshold float64 `json:"threshold"`
	Peak      bool    `json:"judged_on_peak"`
	Pass      bool    `json:"pass"`
}

// JSON writes st and the verdict as indented JSON.
func JSON(w io.Writer, st buddy.Stats, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summary{
		Stats:     st,
		Threshold: opts.threshold(),
		Peak:      opts.Peak,
		Pass:      Pass(st, opts),
	})
}

// errWriter keeps the first write error so Render can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = printer.Fprintf(e.w, format, args...)
}
