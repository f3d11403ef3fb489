package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/internal/logger"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an alloc/free script",
		Long: `The run command executes a script of allocator operations, one per line:

  alloc <name> <size>   allocate size bytes and remember the handle as name
  free <name>           free the handle remembered as name
  report                print the current status block

Blank lines and lines starting with # are ignored. Use "-" to read the
script from stdin. Allocation failures are reported and the script goes
on; freeing an unknown name stops it.

Example:
  buddyctl run workload.txt
  printf 'alloc a 500\nalloc b 400\nreport\nfree a\nfree b\n' | buddyctl run -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				r = f
			}
			steps, err := parseScript(r)
			if err != nil {
				return err
			}
			return runScript(steps)
		},
	}
}

// opKind is a script operation.
type opKind uint8

const (
	opAlloc opKind = iota + 1
	opFree
	opReport
)

// step is one parsed script line.
type step struct {
	line int
	op   opKind
	name string
	size int
}

// parseScript reads the whole script, rejecting malformed lines up front.
func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		st := step{line: lineNo}

		switch strings.ToLower(fields[0]) {
		case "alloc":
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: usage: alloc <name> <size>", lineNo)
			}
			size, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad size %q: %w", lineNo, fields[2], err)
			}
			st.op, st.name, st.size = opAlloc, fields[1], size
		case "free":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: usage: free <name>", lineNo)
			}
			st.op, st.name = opFree, fields[1]
		case "report":
			if len(fields) != 1 {
				return nil, fmt.Errorf("line %d: report takes no arguments", lineNo)
			}
			st.op = opReport
		default:
			return nil, fmt.Errorf("line %d: unknown operation %q", lineNo, fields[0])
		}
		steps = append(steps, st)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return steps, nil
}

func runScript(steps []step) error {
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Destroy()

	handles := make(map[string]buddy.Handle)
	for _, st := range steps {
		switch st.op {
		case opAlloc:
			if _, taken := handles[st.name]; taken {
				return fmt.Errorf("line %d: name %q is still allocated", st.line, st.name)
			}
			h, _, err := a.Alloc(st.size)
			if err != nil {
				logger.Warn("script alloc failed", "line", st.line, "name", st.name, "size", st.size, "err", err)
				printInfo("line %d: alloc %s %d: %v\n", st.line, st.name, st.size, err)
				continue
			}
			handles[st.name] = h
			printVerbose("line %d: %s = offset %d\n", st.line, st.name, h.Offset())

		case opFree:
			h, ok := handles[st.name]
			if !ok {
				return fmt.Errorf("line %d: free of unknown name %q", st.line, st.name)
			}
			if err := a.Free(h); err != nil {
				return fmt.Errorf("line %d: free %s: %w", st.line, st.name, err)
			}
			delete(handles, st.name)
			logger.Debug("script free", "line", st.line, "name", st.name, "offset", h.Offset())
			printVerbose("line %d: freed %s\n", st.line, st.name)

		case opReport:
			if err := printStatus(a, fmt.Sprintf("Status at line %d", st.line)); err != nil {
				return err
			}
		}
	}
	return printFinal(a, "Script result")
}
