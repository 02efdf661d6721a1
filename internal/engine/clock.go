package engine

import "time"

// Clock stamps staged events with wall-clock time.
// Timestamps are informational; Metadata.Sequence orders replay.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
