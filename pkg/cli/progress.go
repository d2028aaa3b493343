package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Progress reports completion of a fixed number of concurrent tasks on one
// line. It is safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	writer  io.Writer
	label   string
	total   int
	done    int
	failed  int
	enabled bool
}

// NewProgress creates a progress line on w. A nil w writes to os.Stderr. A
// disabled progress writes nothing, for JSON output.
func NewProgress(w io.Writer, label string, enabled bool) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{writer: w, label: label, enabled: enabled}
}

// Start sets the number of tasks.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = 0
	p.render()
}

// Done marks one task finished.
func (p *Progress) Done(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if !ok {
		p.failed++
	}
	p.render()
}

// Finish ends the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled && p.total > 0 {
		fmt.Fprintln(p.writer)
	}
}

func (p *Progress) render() {
	if !p.enabled || p.total == 0 {
		return
	}

	const barWidth = 20
	filled := barWidth * p.done / p.total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)

	fmt.Fprintf(p.writer, "\r%s [%s] %d/%d", p.label, bar, p.done, p.total)
	if p.failed > 0 {
		fmt.Fprintf(p.writer, " (%d failed)", p.failed)
	}
}
