package pool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProcessFunc is the function type executed inside a worker process.
// It receives one argument and returns one result. A returned error or a panic
// makes the worker exit with a non-zero status, which fails the whole call.
//
// Type parameters:
//   - A: The type of the argument, decoded from the worker's input file
//   - R: The type of the result, encoded into the worker's result file
type ProcessFunc[A any, R any] func(ctx context.Context, arg A) (R, error)

// WorkerInfo describes one worker process.
//
// Fields:
//   - ID: Unique identifier of the worker, used in logs and errors
//   - PID: Operating system process id
//   - Index: Zero-based position of the worker's input in the submission order
//   - ResultPath: File the worker writes its result to
//   - Started: Time the process was created
type WorkerInfo struct {
	ID         uuid.UUID
	PID        int
	Index      int
	ResultPath string
	Started    time.Time
}

// indexedResult pairs a result with the submission index of its input.
type indexedResult[R any] struct {
	index int
	value R
}
