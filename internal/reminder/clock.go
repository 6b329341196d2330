package reminder

import "time"

// Clock abstracts time so the firing-window logic is testable against
// simulated instants.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
