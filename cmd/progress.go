package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// progressPrinter renders a single status line for batch scans.
type progressPrinter struct {
	out      io.Writer
	total    int
	mu       sync.Mutex
	ok       int
	flagged  int
	fail     int
	duration float64
	updates  chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, total int) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:     out,
		total:   total,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	go p.loop()
}

// Increment records one finished scan. flagged marks a verdict of
// suspicious or worse; failed marks a scan that produced no report.
func (p *progressPrinter) Increment(failed, flagged bool, duration time.Duration) {
	p.mu.Lock()
	switch {
	case failed:
		p.fail++
	case flagged:
		p.flagged++
	default:
		p.ok++
	}
	p.duration += duration.Seconds()
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		<-p.stopped
		p.mu.Lock()
		defer p.mu.Unlock()
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		p.printLocked()
		fmt.Fprintln(p.out)
	})
}

func (p *progressPrinter) loop() {
	defer close(p.stopped)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printLocked()
}

func (p *progressPrinter) printLocked() {
	completed := p.ok + p.flagged + p.fail
	if completed > p.total {
		p.total = completed
	}

	percent := (float64(completed) / float64(p.total)) * 100
	avg := 0.0
	if completed > 0 {
		avg = p.duration / float64(completed)
	}

	fmt.Fprintf(p.out, "\r[scan] Progress: %d/%d (%.1f%%) OK:%d Flagged:%d Fail:%d Avg:%.2fs",
		completed, p.total, percent, p.ok, p.flagged, p.fail, avg)
}
