package algorithms

import "time"

// PollType defines the pacing algorithm used while waiting for workers.
type PollType int

const (
	// PollFixed sleeps for the same interval after every idle scan (default).
	PollFixed PollType = iota
	// PollExponential doubles the pause after each idle scan up to a ceiling.
	PollExponential
	// PollJittered is PollExponential with random jitter so that concurrent
	// coordinators do not scan in lock step. A jitter factor of zero or less
	// yields plain PollExponential.
	PollJittered
)

// NewPollStrategy creates a poll pacing strategy based on the configuration.
// This is the internal factory function used by the pool package.
func NewPollStrategy(
	pollType PollType,
	initialDelay, maxDelay time.Duration,
	jitterFactor float64,
) PollStrategy {
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}

	switch pollType {
	case PollExponential:
		return newExponentialPoll(initialDelay, maxDelay)

	case PollJittered:
		if jitterFactor <= 0 {
			return newExponentialPoll(initialDelay, maxDelay)
		}
		return newJitteredPoll(initialDelay, maxDelay, jitterFactor)

	default:
		return newFixedPoll(initialDelay)
	}
}
