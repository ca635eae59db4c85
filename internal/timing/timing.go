// Package timing records how long each provisioning step takes.
package timing

import (
	"fmt"
	"io"
	"time"
)

// Timer tracks durations of named phases.
type Timer struct {
	start  time.Time
	now    func() time.Time
	phases []Phase
}

// Phase represents a timed phase with name, duration and outcome.
type Phase struct {
	Name     string
	Duration time.Duration
	Err      error
}

// New creates a new Timer starting from now.
func New() *Timer {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Timer {
	return &Timer{start: now(), now: now}
}

// Track runs fn and records its duration under name. The error from fn
// is returned unchanged.
func (t *Timer) Track(name string, fn func() error) error {
	begin := t.now()
	err := fn()
	t.phases = append(t.phases, Phase{Name: name, Duration: t.now().Sub(begin), Err: err})
	return err
}

// Total returns the total elapsed time since timer creation.
func (t *Timer) Total() time.Duration {
	return t.now().Sub(t.start)
}

// Phases returns all recorded phases.
func (t *Timer) Phases() []Phase {
	return t.phases
}

// Report prints a timing report to the given writer.
func (t *Timer) Report(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Provisioning Timing ===")
	for _, p := range t.phases {
		status := "ok"
		if p.Err != nil {
			status = "failed"
		}
		fmt.Fprintf(w, "  %-20s %-8s %s\n", p.Name+":", formatDuration(p.Duration), status)
	}
	fmt.Fprintf(w, "  %-20s %s\n", "TOTAL:", formatDuration(t.Total()))
	fmt.Fprintln(w, "===========================")
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
