package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrChildFailed is matched by every *ChildError.
	ErrChildFailed = errors.New("child failed")

	// ErrSpawn reports that a worker process could not be created.
	ErrSpawn = errors.New("failed to spawn worker")

	// ErrResultDecode reports that a successful worker's result file could not be read.
	ErrResultDecode = errors.New("failed to decode worker result")

	// ErrNotRegistered is returned for a *Func that was not created by Register.
	ErrNotRegistered = errors.New("function not registered")
)

// ChildError reports a worker process that exited with a non-zero status.
// The worker's own diagnostics were written to its stderr; only the exit
// status travels back to the coordinator.
type ChildError struct {
	Worker   WorkerInfo
	ExitCode int    // -1 when terminated by a signal
	Signal   string // empty unless terminated by a signal
}

func (e *ChildError) Error() string {
	status := fmt.Sprintf("exit status %d", e.ExitCode)
	if e.Signal != "" {
		status = "signal: " + e.Signal
	}
	return fmt.Sprintf("child failed: worker %s (pid %d, item %d) exited with %s",
		e.Worker.ID, e.Worker.PID, e.Worker.Index, status)
}

// Is makes errors.Is(err, ErrChildFailed) true for every ChildError.
func (e *ChildError) Is(target error) bool {
	return target == ErrChildFailed
}
