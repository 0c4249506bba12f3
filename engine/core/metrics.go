package core

import (
	"fmt"
	"strings"
	"time"
)

// PassTiming is the wall-clock duration of one stage of a render invocation,
// including its submission wait.
type PassTiming struct {
	Name     string
	Duration time.Duration
}

// RenderMetrics collects the stage timings of a single render invocation.
type RenderMetrics struct {
	Passes []PassTiming
	clock  *Clock
	name   string
}

func NewRenderMetrics() *RenderMetrics {
	return &RenderMetrics{clock: NewClock()}
}

// Begin starts timing the named stage. A stage still open is closed first.
func (m *RenderMetrics) Begin(name string) {
	if m.name != "" {
		m.End()
	}
	m.name = name
	m.clock.Start()
}

// End closes the current stage and records its duration.
func (m *RenderMetrics) End() {
	if m.name == "" {
		return
	}
	m.clock.Stop()
	m.Passes = append(m.Passes, PassTiming{Name: m.name, Duration: m.clock.Elapsed()})
	m.name = ""
}

func (m *RenderMetrics) Total() time.Duration {
	var total time.Duration
	for _, p := range m.Passes {
		total += p.Duration
	}
	return total
}

func (m *RenderMetrics) String() string {
	parts := make([]string, 0, len(m.Passes))
	for _, p := range m.Passes {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.Duration.Round(time.Microsecond)))
	}
	return strings.Join(parts, " ")
}
