package domain

import "time"

// Clock abstracts time.Now so that date arithmetic and timestamps are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard time package.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a Clock that always reports the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
