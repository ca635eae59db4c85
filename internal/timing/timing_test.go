package timing

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerTrack(t *testing.T) {
	timer := newWithClock(fakeClock(10 * time.Millisecond))

	if err := timer.Track("resolve", func() error { return nil }); err != nil {
		t.Fatalf("Track returned %v", err)
	}
	boom := errors.New("boom")
	if err := timer.Track("attach", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Track should return fn's error, got %v", err)
	}

	phases := timer.Phases()
	if len(phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(phases))
	}
	if phases[0].Name != "resolve" || phases[0].Err != nil {
		t.Errorf("unexpected first phase: %+v", phases[0])
	}
	if phases[0].Duration != 10*time.Millisecond {
		t.Errorf("resolve duration = %v, want 10ms", phases[0].Duration)
	}
	if phases[1].Err == nil {
		t.Error("attach phase should record its error")
	}
}

func TestTimerTotal(t *testing.T) {
	timer := New()

	time.Sleep(10 * time.Millisecond)
	_ = timer.Track("phase1", func() error { return nil })

	total := timer.Total()
	if total < 10*time.Millisecond {
		t.Errorf("total too short: %v", total)
	}
}

func TestTimerReport(t *testing.T) {
	timer := newWithClock(fakeClock(time.Millisecond))
	_ = timer.Track("ensure disk", func() error { return nil })
	_ = timer.Track("attach disk", func() error { return errors.New("slot busy") })

	var buf bytes.Buffer
	timer.Report(&buf)

	output := buf.String()

	if !strings.Contains(output, "Provisioning Timing") {
		t.Error("report missing header")
	}
	if !strings.Contains(output, "ensure disk:") {
		t.Error("report missing ensure disk phase")
	}
	if !strings.Contains(output, "failed") {
		t.Error("report should flag the failed phase")
	}
	if !strings.Contains(output, "TOTAL:") {
		t.Error("report missing total")
	}
}

func TestTimerEmpty(t *testing.T) {
	timer := New()

	phases := timer.Phases()
	if len(phases) != 0 {
		t.Errorf("expected 0 phases, got %d", len(phases))
	}

	if total := timer.Total(); total < 0 {
		t.Error("total should be positive")
	}

	// Report with no phases should not panic
	var buf bytes.Buffer
	timer.Report(&buf)
	if !strings.Contains(buf.String(), "TOTAL:") {
		t.Error("empty report should still have total")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{500 * time.Microsecond, "500us"},
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.50s"},
		{2 * time.Second, "2.00s"},
	}

	for _, tt := range tests {
		result := formatDuration(tt.d)
		if result != tt.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", tt.d, result, tt.expected)
		}
	}
}
