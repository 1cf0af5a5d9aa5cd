// internal/timeclock/clock.go

// Package timeclock provides the simulated wall clock shared by every session.
//
// The clock reads the real time and shifts it by a day offset and an hour
// offset. Offsets only grow: simulated time never moves backwards.
package timeclock

import (
	"math"
	"strconv"
	"sync"
	"time"

	"frontdesk/internal/errdefs"
)

// Date and time layouts used on the wire and in reports.
const (
	DateLayout = "2006/01/02"
	TimeLayout = "15:04:05"
)

// Offsets is the persisted state of a Clock.
type Offsets struct {
	Days  int `json:"days"`
	Hours int `json:"hours"`
}

// MaxOffsetHours is the largest total offset a time.Duration can hold.
const MaxOffsetHours = math.MaxInt64 / int64(time.Hour)

// Duration converts the offsets into a time.Duration. Offsets within
// MaxOffsetHours never overflow.
func (o Offsets) Duration() time.Duration {
	return time.Duration(o.totalHours()) * time.Hour
}

func (o Offsets) totalHours() int64 {
	return int64(o.Days)*24 + int64(o.Hours)
}

// exceeds reports whether adding days and hours, both non-negative, to o
// passes MaxOffsetHours.
func (o Offsets) exceeds(days, hours int) bool {
	if int64(days) > MaxOffsetHours/24 || int64(hours) > MaxOffsetHours {
		return true
	}
	return o.totalHours()+int64(days)*24+int64(hours) > MaxOffsetHours
}

// Clock is safe for concurrent use.
type Clock struct {
	mu      sync.RWMutex
	base    func() time.Time
	offsets Offsets
}

// Option configures a Clock.
type Option func(*Clock)

// WithBase replaces the real wall clock, typically with a fixed instant in tests.
func WithBase(base func() time.Time) Option {
	return func(c *Clock) {
		c.base = base
	}
}

// New creates a clock with zero offsets.
func New(opts ...Option) *Clock {
	c := &Clock{base: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the real time shifted by the current offsets.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base().Add(c.offsets.Duration())
}

// Advance moves simulated time forward. Both arguments must be non-negative.
func (c *Clock) Advance(days, hours int) error {
	if days < 0 {
		return errdefs.InvalidArgument("days", strconv.Itoa(days), "must not be negative")
	}
	if hours < 0 {
		return errdefs.InvalidArgument("hours", strconv.Itoa(hours), "must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offsets.exceeds(days, 0) {
		return errdefs.InvalidArgument("days", strconv.Itoa(days), "would move the clock out of range")
	}
	if c.offsets.exceeds(days, hours) {
		return errdefs.InvalidArgument("hours", strconv.Itoa(hours), "would move the clock out of range")
	}
	c.offsets.Days += days
	c.offsets.Hours += hours
	return nil
}

// Offsets returns the accumulated offsets.
func (c *Clock) Offsets() Offsets {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offsets
}

// Restore reinstates persisted offsets. Negative offsets are rejected so that
// a restored clock still never runs behind real time.
func (c *Clock) Restore(o Offsets) error {
	value := strconv.Itoa(o.Days) + "d" + strconv.Itoa(o.Hours) + "h"
	if o.Days < 0 || o.Hours < 0 {
		return errdefs.InvalidArgument("offsets", value, "must not be negative")
	}
	if (Offsets{}).exceeds(o.Days, o.Hours) {
		return errdefs.InvalidArgument("offsets", value, "out of range")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offsets = o
	return nil
}

// FormatDate renders t as YYYY/MM/DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatTime renders t as HH:MM:SS.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }

// FormatDuration renders d as HH:MM:SS; hours may exceed 23.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	return pad(h) + ":" + pad(m) + ":" + pad(s)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
