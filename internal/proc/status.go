// Package proc reaps child processes without blocking the coordinator.
package proc

import (
	"fmt"
	"time"
)

// Status is the terminal state of a reaped child.
type Status struct {
	// Code is the exit code, or -1 when the child was killed by a signal.
	Code int
	// Signal names the terminating signal, empty for a normal exit.
	Signal string
	// UserTime and SystemTime are the CPU times reported by the kernel, when available.
	UserTime   time.Duration
	SystemTime time.Duration
}

// Success reports whether the child exited normally with status zero.
func (s Status) Success() bool {
	return s.Code == 0 && s.Signal == ""
}

func (s Status) String() string {
	if s.Signal != "" {
		return "signal: " + s.Signal
	}
	return fmt.Sprintf("exit status %d", s.Code)
}
