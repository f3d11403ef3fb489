package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/joshuapare/buddykit/buddy"
	"github.com/joshuapare/buddykit/internal/logger"
	"github.com/joshuapare/buddykit/pkg/report"
)

// resetFlags restores every flag-bound global to its default so tests do
// not leak settings into each other through the shared rootCmd.
func resetFlags() {
	verbose, quiet, jsonOut, logJSON = false, false, false, false
	arenaSize, minBlock = buddy.DefaultTotalSize, buddy.DefaultMinBlockSize
	backing, threshold = "heap", report.DefaultThreshold
	demoSizes = []int{500, 400}
	simOps, simSeed, simMaxSize, simFreeRatio, simCheck = 1000, 1, 0, 0.4, true
}

// runCLI executes buddyctl with args and returns what it wrote to stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runCLIWithStderr(t, stdin, args...)
	return stdout, err
}

// runCLIWithStderr is runCLI that also returns stderr, where logs go.
func runCLIWithStderr(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		out = io.Discard
		logger.Init(logger.Options{})
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// assertJSON checks that output is valid JSON and returns it decoded.
func assertJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v\nOutput: %s", err, output)
	}
	return result
}
