package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/buddy"
)

func demoStats(t *testing.T) (buddy.Stats, buddy.Stats) {
	t.Helper()
	a, err := buddy.New(1024, 16)
	require.NoError(t, err)
	defer a.Destroy()

	h1, _, err := a.Alloc(500)
	require.NoError(t, err)
	h2, _, err := a.Alloc(400)
	require.NoError(t, err)
	busy := a.Report()

	require.NoError(t, a.Free(h1))
	require.NoError(t, a.Free(h2))
	return busy, a.Report()
}

func TestPass(t *testing.T) {
	busy, idle := demoStats(t)

	require.True(t, Pass(busy, Options{}))
	require.False(t, Pass(busy, Options{Threshold: 90}))
	require.False(t, Pass(idle, Options{}))
	require.True(t, Pass(idle, Options{Peak: true}), "peak survives the frees")
}

func TestRender_Busy(t *testing.T) {
	busy, _ := demoStats(t)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, busy, Options{Title: "With memory allocated"}))
	out := buf.String()

	require.Contains(t, out, "=== With memory allocated ===")
	require.Contains(t, out, "1,024 bytes (1.0 KiB)")
	require.Contains(t, out, "Order  0 (size    16): 0 free")
	require.Contains(t, out, "Order  6 (size 1,024): 0 free")
	require.Contains(t, out, "Used:                   900 bytes (87.89%)")
	require.Contains(t, out, "Header overhead:        32 bytes (")
	require.Contains(t, out, "Internal fragmentation: 3.1")
	require.Contains(t, out, "Free:                   92 bytes (8.98%)")
	require.Contains(t, out, "PASS")
}

func TestRender_IdleFailsUnlessPeak(t *testing.T) {
	_, idle := demoStats(t)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, idle, Options{}))
	require.Contains(t, buf.String(), "Order  6 (size 1,024): 1 free")
	require.Contains(t, buf.String(), "FAIL")

	buf.Reset()
	require.NoError(t, Render(&buf, idle, Options{Peak: true, HideOrders: true}))
	require.NotContains(t, buf.String(), "Order ")
	require.Contains(t, buf.String(), "peak utilization:    PASS")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRender_PropagatesWriteError(t *testing.T) {
	busy, _ := demoStats(t)
	require.EqualError(t, Render(failingWriter{}, busy, Options{}), "disk full")
}

func TestJSON(t *testing.T) {
	busy, _ := demoStats(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, busy, Options{Threshold: 85}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.EqualValues(t, 900, got["UsedBytes"])
	require.EqualValues(t, 85, got["threshold"])
	require.Equal(t, true, got["pass"])
	require.Equal(t, false, got["judged_on_peak"])
	require.Len(t, got["FreeBlocks"], 7)
}
