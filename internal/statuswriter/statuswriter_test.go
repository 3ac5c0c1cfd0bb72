package statuswriter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/status"
)

func TestRenderNonTerminalAppendsOneLinePerUpdate(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.False(t, w.isTerminal)

	w.Render(status.Status{
		IdleWorkers:  1,
		TotalWorkers: 2,
		QueueLength:  3,
		Progress: map[string]status.ProgressSlot{
			"a": {Label: "file.txt", BytesRead: 50, TotalBytes: 100, SpeedBps: 1024},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "file.txt")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "idle_workers=1 total_workers=2 queue=3")
}

func TestBarWidthEnforcesSpecFormula(t *testing.T) {
	assert.Equal(t, 1, barWidth(10))  // clamps terminal width up to 24
	assert.Equal(t, 1, barWidth(24))  // 24-21-20 = -17, clamped to 1
	assert.Equal(t, 39, barWidth(80)) // 80-21-20 = 39
}

func TestTruncateLabelKeepsTail(t *testing.T) {
	assert.Equal(t, "short.txt", truncateLabel("short.txt", 20))
	long := "a/very/long/path/to/some/deeply/nested/file.bin"
	got := truncateLabel(long, 20)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "file.bin"))
}

func TestRenderBarFillsProportionally(t *testing.T) {
	assert.Equal(t, "[    ]", renderBar(4, 0))
	assert.Equal(t, "[==  ]", renderBar(4, 50))
	assert.Equal(t, "[====]", renderBar(4, 100))
	assert.Equal(t, "[====]", renderBar(4, 150)) // clamps over 100%
}

func TestIsIdleTriggersRenderRegardlessOfThrottle(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	busy := status.Status{IdleWorkers: 0, TotalWorkers: 1, QueueLength: 1}
	w.Render(busy)
	w.Render(busy) // throttled, should not add a second line immediately

	idle := status.Status{IdleWorkers: 1, TotalWorkers: 1, QueueLength: 0}
	w.Render(idle) // always renders despite throttle

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
}
