package main

import (
	"io"
	"strings"
)

const DefaultTotalTicks = 73

// ProgressBar draws one fixed-width bar for a single transfer. It is not safe
// for concurrent use; create one per transfer.
type ProgressBar struct {
	w          io.Writer
	totalTicks int
	ticks      int
	started    bool
	ended      bool
}

func NewProgressBar(w io.Writer, totalTicks int) *ProgressBar {
	if totalTicks <= 0 {
		totalTicks = DefaultTotalTicks
	}
	return &ProgressBar{w: w, totalTicks: totalTicks}
}

func (p *ProgressBar) Start() {
	if p.started {
		return
	}
	p.started = true
	io.WriteString(p.w, "  [")
}

// Tick advances the bar by one mark. Ticks past the total are dropped.
func (p *ProgressBar) Tick() {
	if !p.started {
		p.Start()
	}
	if p.ended || p.ticks >= p.totalTicks {
		return
	}
	p.ticks++
	io.WriteString(p.w, "=")
}

func (p *ProgressBar) End() {
	if p.ended {
		return
	}
	if !p.started {
		p.Start()
	}
	p.ended = true
	io.WriteString(p.w, strings.Repeat("=", p.totalTicks-p.ticks)+"]\n")
	p.ticks = p.totalTicks
}

func (p *ProgressBar) OnStart(int64) {
	p.Start()
}

func (p *ProgressBar) OnTick(done, total int64) {
	if total <= 0 {
		return
	}
	if done > total {
		done = total
	}
	target := int(done * int64(p.totalTicks) / total)
	for p.ticks < target {
		p.Tick()
	}
}

func (p *ProgressBar) OnEnd() {
	p.End()
}
