// Package statuswriter renders a stream of status.Status snapshots to a
// terminal as one progress line per active upload plus a summary line,
// implementing the throttle and "become idle" rules of §4.9.
package statuswriter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/kpcyrd/brchd/internal/status"
)

// renderThrottle bounds how often a non-idle update is drawn.
const renderThrottle = 200 * time.Millisecond

const (
	labelWidth   = 20
	fixedColumns = 21 // " NNN.N%  NNN.N MiB/s" style trailer, see barWidth
)

// Writer owns the terminal cursor while rendering repeated status lines:
// each Render call erases the previous block and draws the new one, the
// way the source's StatusWriter clears before redrawing.
type Writer struct {
	out        io.Writer
	isTerminal bool
	lastRender time.Time
	lastLines  int
}

// New builds a Writer over out. Terminal detection decides whether to
// redraw in place (TTY) or append one line per update (non-TTY, e.g. a
// log file).
func New(out io.Writer) *Writer {
	isTerminal := false
	if f, ok := out.(*os.File); ok {
		isTerminal = term.IsTerminal(int(f.Fd()))
	}
	return &Writer{out: out, isTerminal: isTerminal}
}

// Render draws st, subject to the throttle, unless st represents the
// "become idle" edge (queue drained, all workers idle), which always
// renders regardless of the throttle.
func (w *Writer) Render(st status.Status) {
	now := time.Now()
	if !st.IsIdle() && now.Sub(w.lastRender) < renderThrottle {
		return
	}
	w.lastRender = now
	w.draw(st)
}

func (w *Writer) draw(st status.Status) {
	lines := w.buildLines(st)

	if w.isTerminal {
		w.eraseLastBlock()
		fmt.Fprint(w.out, strings.Join(lines, "\n")+"\n")
		w.lastLines = len(lines)
		return
	}

	// non-TTY: append, don't try to move a cursor that doesn't exist
	fmt.Fprintln(w.out, strings.Join(lines, " | "))
}

func (w *Writer) eraseLastBlock() {
	for i := 0; i < w.lastLines; i++ {
		fmt.Fprint(w.out, "\x1b[1A\x1b[2K")
	}
}

func (w *Writer) buildLines(st status.Status) []string {
	ids := make([]string, 0, len(st.Progress))
	for id := range st.Progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	width := barWidth(terminalWidth())

	lines := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		lines = append(lines, renderUploadLine(st.Progress[id], width))
	}
	lines = append(lines, fmt.Sprintf("idle_workers=%d total_workers=%d queue=%d",
		st.IdleWorkers, st.TotalWorkers, st.QueueLength))

	return lines
}

// barWidth implements §4.9's "max(terminal_width, 24) - 21 - 20" formula:
// fixedColumns covers the percent/speed trailer, labelWidth the filename
// field.
func barWidth(terminalCols int) int {
	w := terminalCols
	if w < 24 {
		w = 24
	}
	w = w - fixedColumns - labelWidth
	if w < 1 {
		w = 1
	}
	return w
}

func terminalWidth() int {
	cols, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || cols <= 0 {
		return 80
	}
	return cols
}

func renderUploadLine(p status.ProgressSlot, width int) string {
	label := truncateLabel(p.Label, labelWidth)

	percent := 0.0
	if p.TotalBytes > 0 {
		percent = float64(p.BytesRead) / float64(p.TotalBytes) * 100
	}

	return fmt.Sprintf("%-*s %s %5.1f%% %s/s",
		labelWidth, label,
		renderBar(width, percent),
		percent,
		humanize.IBytes(uint64(p.SpeedBps)),
	)
}

func renderBar(width int, percent float64) string {
	if percent > 100 {
		percent = 100
	}
	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// truncateLabel shortens label to at most n characters, keeping the tail
// (the most identifying part of a path) when it must cut.
func truncateLabel(label string, n int) string {
	if len(label) <= n {
		return label
	}
	if n <= 3 {
		return label[len(label)-n:]
	}
	return "..." + label[len(label)-(n-3):]
}
