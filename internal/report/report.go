// Package report renders conflict results as boxed, width-aligned tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/metaguard/pkg/diff"
)

const (
	maxPathWidth = 60
	timeLayout   = "2006-01-02 15:04"
)

// Visualizer keeps the last result per org and prints it when revealed.
type Visualizer struct {
	mu   sync.Mutex
	out  io.Writer
	last map[string]*diff.DirectoryDiffResults
}

// NewVisualizer creates a visualizer writing to out.
func NewVisualizer(out io.Writer) *Visualizer {
	return &Visualizer{out: out, last: make(map[string]*diff.DirectoryDiffResults)}
}

// Show implements conflict.Visualizer. Without reveal only the title is
// printed; the table is kept for Last.
func (v *Visualizer) Show(title, identity string, reveal bool, results *diff.DirectoryDiffResults) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last[identity] = results
	if !reveal {
		_, _ = fmt.Fprintln(v.out, title)
		return
	}
	_, _ = io.WriteString(v.out, Box([]string{title}))
	_, _ = io.WriteString(v.out, Table(results))
}

// Reset implements conflict.Visualizer.
func (v *Visualizer) Reset(identity string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.last, identity)
}

// Last returns the most recent results shown for identity.
func (v *Visualizer) Last(identity string) (*diff.DirectoryDiffResults, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.last[identity]
	return r, ok
}

// Table renders the differences as aligned columns.
func Table(results *diff.DirectoryDiffResults) string {
	header := []string{"LOCAL PATH", "REMOTE PATH", "REMOTE MODIFIED"}
	rows := [][]string{header}
	for _, d := range results.Different() {
		rows = append(rows, []string{
			Truncate(d.LocalRelPath, maxPathWidth),
			Truncate(d.RemoteRelPath, maxPathWidth),
			formatTime(d.RemoteLastModified),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Box draws a single-line border around lines. Wide runes are measured by
// display width so the border stays aligned.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	maxWidth := 0
	for _, line := range lines {
		if w := runewidth.StringWidth(line); w > maxWidth {
			maxWidth = w
		}
	}
	border := strings.Repeat("─", maxWidth+2)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range lines {
		sb.WriteString("│ " + runewidth.FillRight(line, maxWidth) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Truncate shortens value to width display cells, keeping the end of the
// path, which carries the component name.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	runes := []rune(value)
	kept := 0
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if kept+w > width-3 {
			break
		}
		kept += w
		start--
	}
	return "..." + string(runes[start:])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
