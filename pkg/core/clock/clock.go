// Package clock supplies the block tree's only notion of the current time,
// kept as a pluggable, read-only collaborator per the store/clock contract
// boundary: production wires a system clock, tests wire a fixed one.
package clock

import "time"

// Clock reports network-adjusted, wall-clock time. Calls must be
// non-blocking; there is no failure mode.
type Clock interface {
	// Time returns the current time as seconds since the Unix epoch.
	Time() uint32
}

// System is a Clock backed by the local wall clock.
type System struct{}

// Time returns time.Now(), truncated to seconds since the epoch.
func (System) Time() uint32 {
	return uint32(time.Now().Unix())
}

// Fixed is a Clock that always reports the same instant, for deterministic
// tests that exercise the MAX_FUTURE_BLOCK_TIME and median-time-past bounds.
type Fixed uint32

// Time returns the fixed instant.
func (f Fixed) Time() uint32 {
	return uint32(f)
}
