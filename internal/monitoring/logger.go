// Package monitoring holds the converter's diagnostic logger and the
// user-facing progress/summary printer.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Progress prints per-log, per-team and per-scene progress lines and the
// closing summary block. A nil *Progress discards everything.
type Progress struct {
	mu sync.Mutex
	w  io.Writer
}

// NewProgress returns a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Log announces a session (log) about to be processed.
func (p *Progress) Log(name string) {
	p.printf("Processing %s\n", name)
}

// Team announces a team within the current log.
func (p *Progress) Team(team string, scenes int) {
	p.printf("Processing team %s (%d scenes)\n", team, scenes)
}

// Scene reports one finished scene.
func (p *Progress) Scene(index, total int, name string, samples int, took time.Duration) {
	p.printf("  [%d/%d] %s: %d samples in %s\n", index, total, name, samples, took.Round(time.Millisecond))
}

// SummaryLine is one "label: value" row of the closing summary.
type SummaryLine struct {
	Label string
	Value int
}

// Summary prints the closing summary block.
func (p *Progress) Summary(lines []SummaryLine) {
	p.printf("------------------- Summary ---------------------\n")
	for _, l := range lines {
		p.printf("%s: %d\n", l.Label, l.Value)
	}
}

func (p *Progress) printf(format string, args ...interface{}) {
	if p == nil || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
