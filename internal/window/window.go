// Package window sizes the backward search windows used when looking for the
// previous message of a topic.
package window

import (
	"math"

	"github.com/ethpandaops/topicnav/internal/timestamp"
)

const (
	nanosPerMillisecond = 1_000_000

	// DefaultWindowMs is used when there is no usable density information.
	DefaultWindowMs = 500
	// MinWindowMs and MaxWindowMs clamp density-derived window sizes.
	MinWindowMs = 100
	MaxWindowMs = 30 * 1000
	// CapMs caps every element of an expanded window sequence.
	CapMs = 60 * 1000

	// DefaultTargetMessages is how many messages a density-derived window aims to hold.
	DefaultTargetMessages = 10
	// DefaultCount is the default length of a window sequence.
	DefaultCount = 4
	// GrowthFactor is the multiplier between consecutive windows.
	GrowthFactor = 5
)

// OptimalWindowParams describes a topic's message density.
type OptimalWindowParams struct {
	NumMessages            int64
	FirstMessageTime       timestamp.Time
	LastMessageTime        timestamp.Time
	TargetMessagesInWindow int // 0 means DefaultTargetMessages
}

// SubtractMilliseconds subtracts ms (rounded to the nearest nanosecond) from t.
func SubtractMilliseconds(t timestamp.Time, ms float64) timestamp.Time {
	nanos := int64(math.Round(ms * nanosPerMillisecond))

	sec := t.Sec
	nsec := t.Nsec - nanos

	for nsec < 0 {
		nsec += timestamp.NanosPerSecond
		sec--
	}

	return timestamp.Time{Sec: sec, Nsec: nsec}
}

// ToSeconds converts t into fractional seconds.
func ToSeconds(t timestamp.Time) float64 {
	return float64(t.Sec) + float64(t.Nsec)/timestamp.NanosPerSecond
}

// CalculateOptimalWindowMs estimates a window that holds roughly
// TargetMessagesInWindow messages, clamped to [MinWindowMs, MaxWindowMs].
func CalculateOptimalWindowMs(p OptimalWindowParams) float64 {
	target := p.TargetMessagesInWindow
	if target == 0 {
		target = DefaultTargetMessages
	}

	spanSec := ToSeconds(p.LastMessageTime) - ToSeconds(p.FirstMessageTime)
	if spanSec <= 0 || p.NumMessages <= 0 {
		return DefaultWindowMs
	}

	rate := float64(p.NumMessages) / spanSec
	if rate == 0 {
		return MaxWindowMs
	}

	estimatedMs := float64(target) / rate * 1000

	return math.Max(MinWindowMs, math.Min(MaxWindowMs, estimatedMs))
}

// CreateWindowSizes returns count windows starting at initialMs, each
// GrowthFactor times the previous one and capped at CapMs. A count below one
// yields DefaultCount windows.
func CreateWindowSizes(initialMs float64, count int) []float64 {
	if count < 1 {
		count = DefaultCount
	}

	sizes := make([]float64, 0, count)
	sizes = append(sizes, initialMs)

	for i := 1; i < count; i++ {
		next := initialMs * math.Pow(GrowthFactor, float64(i))
		sizes = append(sizes, math.Min(next, CapMs))
	}

	return sizes
}

// WouldReachBoundary reports whether a window of windowMs ending at current
// starts at or before boundary. It is false when no boundary is known.
func WouldReachBoundary(current timestamp.Time, windowMs float64, boundary *timestamp.Time) bool {
	if boundary == nil {
		return false
	}

	start := SubtractMilliseconds(current, windowMs)

	return timestamp.Compare(start, *boundary) <= 0
}
