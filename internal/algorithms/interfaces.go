package algorithms

import "time"

// PollStrategy decides how long the coordinator sleeps between two scans of
// the in-flight worker set that found no exited child.
//
// Note: This interface is exported so the pool package can hold it,
// but implementations remain internal.
type PollStrategy interface {
	// NextDelay returns the pause before the next scan.
	// idleScans is the number of consecutive scans (0-indexed) that found no
	// exited worker.
	NextDelay(idleScans int) time.Duration

	// Reset clears any internal state. It is called whenever a scan observes an exit.
	Reset()
}
