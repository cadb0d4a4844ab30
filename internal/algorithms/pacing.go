package algorithms

import (
	"math/bits"
	"math/rand"
	"sync"
	"time"
)

// fixedPoll waits the same interval after every idle scan.
// This is the classic "sleep 100ms and look again" loop.
type fixedPoll struct {
	interval time.Duration
}

func newFixedPoll(interval time.Duration) *fixedPoll {
	return &fixedPoll{interval: interval}
}

// NextDelay always returns the configured interval.
func (fp *fixedPoll) NextDelay(idleScans int) time.Duration {
	if idleScans < 0 {
		return 0
	}
	return fp.interval
}

// Reset does nothing for fixed polling.
func (fp *fixedPoll) Reset() {}

// exponentialPoll doubles the pause for every consecutive idle scan.
//
// Short jobs are noticed quickly while long-running workers do not keep
// the coordinator waking up every few milliseconds:
// Scan 0: 1x initialDelay
// Scan 1: 2x initialDelay
// Scan 2: 4x initialDelay
// ...until maxDelay is reached
type exponentialPoll struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func newExponentialPoll(initialDelay, maxDelay time.Duration) *exponentialPoll {
	return &exponentialPoll{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

// NextDelay calculates the doubled pause for the given number of idle scans.
func (ep *exponentialPoll) NextDelay(idleScans int) time.Duration {
	return calcExponentialDelay(idleScans, ep.initialDelay, ep.maxDelay)
}

// Reset does nothing; the idle scan counter lives with the caller.
func (ep *exponentialPoll) Reset() {}

// jitteredPoll adds randomization to exponential pacing.
// Delay formula: exponentialDelay * (1 ± jitterFactor)
//
// Example with jitterFactor=0.1:
// Base delay of 100ms becomes random value between 90ms and 110ms
type jitteredPoll struct {
	initialDelay, maxDelay time.Duration
	jitterFactor           float64 // 0.0 to 1.0 (e.g., 0.1 = ±10% jitter)
	rng                    *rand.Rand
	mu                     sync.Mutex
}

func newJitteredPoll(initialDelay, maxDelay time.Duration, jitterFactor float64) *jitteredPoll {
	return &jitteredPoll{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- crypto rand not needed for poll jitter
	}
}

// NextDelay calculates the jittered exponential pause.
func (jp *jitteredPoll) NextDelay(idleScans int) time.Duration {
	if idleScans < 0 {
		return 0
	}

	baseDelay := calcExponentialDelay(idleScans, jp.initialDelay, jp.maxDelay)

	jp.mu.Lock()
	jitterMultiplier := 1.0 + (jp.rng.Float64()*2-1)*jp.jitterFactor
	jp.mu.Unlock()

	actualDelay := time.Duration(float64(baseDelay) * jitterMultiplier)
	return clamp(actualDelay, 0, jp.maxDelay)
}

// Reset does nothing for jittered polling (RNG state doesn't need reset).
func (jp *jitteredPoll) Reset() {}

func calcExponentialDelay(idleScans int, initialDelay, maxDelay time.Duration) time.Duration {
	if idleScans < 0 || initialDelay <= 0 {
		return 0
	}

	// Past this many doublings initialDelay exceeds maxDelay; stopping here
	// also keeps the shift from overflowing.
	if idleScans >= bits.Len64(uint64(maxDelay/initialDelay)) {
		return maxDelay
	}

	delay := time.Duration(int64(1)<<uint(idleScans)) * initialDelay
	return min(delay, maxDelay)
}

func clamp[N int64 | float64 | time.Duration](v, lo, hi N) N {
	return min(max(v, lo), hi)
}
