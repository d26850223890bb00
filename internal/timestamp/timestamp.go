// Package timestamp provides the seconds/nanoseconds time value used for
// message receive times and playback positions.
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NanosPerSecond is the number of nanoseconds in one second.
const NanosPerSecond = 1_000_000_000

// Time is a point in recording time. Nsec is always within [0, 1e9).
type Time struct {
	Sec  int64 `json:"sec"`
	Nsec int64 `json:"nsec"`
}

// New returns a normalized Time, carrying or borrowing whole seconds so that
// Nsec ends up within [0, 1e9).
func New(sec, nsec int64) Time {
	sec += nsec / NanosPerSecond
	nsec %= NanosPerSecond

	if nsec < 0 {
		nsec += NanosPerSecond
		sec--
	}

	return Time{Sec: sec, Nsec: nsec}
}

// FromNanos converts a count of nanoseconds since the epoch.
func FromNanos(ns int64) Time {
	return New(0, ns)
}

// FromTime converts a wall-clock time.
func FromTime(t time.Time) Time {
	return Time{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

// Nanos returns t as nanoseconds since the epoch.
func (t Time) Nanos() int64 {
	return t.Sec*NanosPerSecond + t.Nsec
}

// Std converts t into a time.Time.
func (t Time) Std() time.Time {
	return time.Unix(t.Sec, t.Nsec)
}

// IsValid reports whether Nsec is within range.
func (t Time) IsValid() bool {
	return t.Nsec >= 0 && t.Nsec < NanosPerSecond
}

// Compare returns -1, 0 or +1 comparing a to b (seconds first, then nanoseconds).
func Compare(a, b Time) int {
	switch {
	case a.Sec < b.Sec:
		return -1
	case a.Sec > b.Sec:
		return 1
	case a.Nsec < b.Nsec:
		return -1
	case a.Nsec > b.Nsec:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return Compare(t, u) < 0
}

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool {
	return Compare(t, u) > 0
}

// Equal reports whether t and u are the same instant.
func (t Time) Equal(u Time) bool {
	return Compare(t, u) == 0
}

// Max returns the later of a and b.
func Max(a, b Time) Time {
	if a.Before(b) {
		return b
	}

	return a
}

// Ptr returns a pointer to a copy of t.
func (t Time) Ptr() *Time {
	return &t
}

// String formats t as seconds with nanosecond precision, e.g. "12.000500000".
func (t Time) String() string {
	if t.Sec < 0 && t.Nsec > 0 {
		return fmt.Sprintf("-%d.%09d", -(t.Sec + 1), NanosPerSecond-t.Nsec)
	}

	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}

// Parse reads a non-negative time written as seconds with an optional
// fraction of up to nine digits, e.g. "12" or "12.0005".
func Parse(s string) (Time, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")

	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || sec < 0 {
		return Time{}, fmt.Errorf("invalid seconds in %q", s)
	}

	if !hasFrac {
		return Time{Sec: sec}, nil
	}

	if frac == "" || len(frac) > 9 || strings.Trim(frac, "0123456789") != "" {
		return Time{}, errors.New("fraction must have 1 to 9 digits in " + strconv.Quote(s))
	}

	nsec, _ := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)

	return Time{Sec: sec, Nsec: nsec}, nil
}
