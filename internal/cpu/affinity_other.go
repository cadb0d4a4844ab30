//go:build !linux

package cpu

import "runtime"

// Available returns the number of logical CPUs.
// Affinity masks are not consulted outside Linux.
func Available() int {
	return max(runtime.NumCPU(), 1)
}

// PinProcess is a no-op: per-process CPU pinning is only implemented on Linux.
func PinProcess(pid, slot int) error {
	return nil
}
