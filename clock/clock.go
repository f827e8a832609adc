// Package clock abstracts wall time so event timestamps are deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// NowISO formats c.Now() the way event timestamps are persisted.
func NowISO(c Clock) string {
	return Format(c.Now())
}

// Layout is RFC 3339 with all nine fractional digits kept, so stored timestamps
// compare as text in time order.
const Layout = "2006-01-02T15:04:05.000000000Z07:00"

// Format renders t in Layout in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse is the inverse of Format. It accepts any RFC 3339 timestamp.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Fixed is a manually advanced clock.
type Fixed struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixed returns a clock frozen at t that advances by step after every Now call.
// A zero step keeps it frozen.
func NewFixed(t time.Time, step time.Duration) *Fixed {
	return &Fixed{now: t.UTC().Round(0), step: step}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now
	f.now = f.now.Add(f.step)
	return now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t.UTC().Round(0)
	f.mu.Unlock()
}
