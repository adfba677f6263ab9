package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/sells-group/pricescrape/internal/model"
)

const barWidth = 30

// renderer prints job snapshots as they arrive from a job client observer.
// Consecutive identical snapshots are printed once.
type renderer struct {
	out    io.Writer
	prefix string

	printed bool
	last    model.Snapshot
}

func newRenderer(out io.Writer, prefix string) *renderer {
	return &renderer{out: out, prefix: prefix}
}

func (r *renderer) render(s model.Snapshot) {
	if r.printed && sameView(r.last, s) {
		return
	}
	r.printed, r.last = true, s
	_, _ = fmt.Fprintln(r.out, r.prefix+formatSnapshot(s))
}

func sameView(a, b model.Snapshot) bool {
	return a.State == b.State && a.Message == b.Message && a.Progress == b.Progress
}

// formatSnapshot renders one snapshot, with a progress bar on a second line
// while a job is scraping with a known total.
func formatSnapshot(s model.Snapshot) string {
	line := fmt.Sprintf("[%s]", s.State)
	if s.Message != "" {
		line += " " + s.Message
	}
	if !s.ShowProgress() {
		return line
	}

	pct, _ := s.Progress.Percent()
	return fmt.Sprintf("%s\n%s %d/%d (%.0f%%)", line, progressBar(pct, barWidth), s.Progress.Current, s.Progress.Total, pct)
}

// progressBar draws pct (clamped to 0..100) as a fixed-width bar.
func progressBar(pct float64, width int) string {
	pct = math.Max(0, math.Min(100, pct))
	filled := int(math.Round(pct / 100 * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// lockedWriter serializes writes from concurrent renderers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
