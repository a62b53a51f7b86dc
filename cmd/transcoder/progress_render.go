package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/jobs"
	"media-transcoder/internal/progress"
)

const barWidth = 30

// progressPrinter renders job events on the terminal. A live printer
// redraws one status line; otherwise coarse progress lines are appended.
type progressPrinter struct {
	out     io.Writer
	live    bool
	sampler *progress.Sampler

	mu    sync.Mutex
	drawn bool
}

func newProgressPrinter(out io.Writer, live bool) *progressPrinter {
	return &progressPrinter{out: out, live: live, sampler: progress.NewSampler(25)}
}

func (p *progressPrinter) handle(event jobs.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case jobs.EventTypeStatus:
		if event.Status == domain.JobStatusTranscoding {
			p.sampler.Reset()
			p.drawLocked(0)
		}
	case jobs.EventTypeProgress:
		p.drawLocked(event.Progress)
	case jobs.EventTypeResult:
		p.drawLocked(100)
	}
}

func (p *progressPrinter) drawLocked(percent float64) {
	if p.live {
		fmt.Fprintf(p.out, "\r%s %5.1f%%", renderBar(percent, barWidth), percent)
		p.drawn = true
		return
	}
	if p.sampler.ShouldEmit(percent) {
		fmt.Fprintf(p.out, "Transcoding: %3.0f%%\n", percent)
	}
}

// finish ends a live line so later output starts on a fresh row.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func renderBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
