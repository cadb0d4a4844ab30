// Package pool runs a function over a sequence of inputs with one operating
// system process per input.
//
// The primary type is ProcessPool[A, R], a configurable pool that spawns at
// most MaxParallel worker processes at a time. Each worker executes a single
// registered function on a single argument and hands its result back to the
// coordinator through a temporary file, so results are not bounded by pipe or
// queue size limits and a crashing worker cannot take the coordinator down.
//
// # Registering Functions
//
// Go cannot ship a closure to another process, so every function that runs in
// a worker is registered under a stable name before main starts. Workers are
// the same binary re-executed, and Init turns such a re-execution into a
// worker:
//
//	var square = pool.Register("square", func(ctx context.Context, x int) (int, error) {
//	    return x * x, nil
//	})
//
//	func main() {
//	    pool.Init() // never returns inside a worker
//	    ...
//	}
//
// Tests that use the pool call Init from TestMain.
//
// # Basic Usage
//
//	ctx := context.Background()
//	p := pool.NewProcessPool[int, int](pool.WithMaxParallel(2))
//	results, err := p.Process(ctx, square, []int{1, 2, 3, 4, 5})
//	// results: [1 4 9 16 25]
//
// # Processing Options
//
// The pool supports four processing modes:
//
//   - ProcessUnordered: Lazily yields results in completion order
//   - Process: Processes a slice and returns results in input order
//   - ProcessSeq: Like Process for any iter.Seq
//   - ProcessMap: Processes a map and returns results under the same keys
//
// ParallelMap and ParallelMapUnordered are one-shot shortcuts that build a
// pool from options.
//
// # Streaming Results
//
//	for v, err := range p.ProcessUnordered(ctx, square, slices.Values(inputs)) {
//	    if err != nil {
//	        // a worker failed; the stream ends here
//	    }
//	    // handle v
//	}
//
// The sequence is single-use: ranging over it a second time yields nothing.
// Breaking out of the loop kills and reaps the workers still running.
//
// # Configuration Options
//
//   - WithMaxParallel(n): Maximum concurrent worker processes (default: available CPUs)
//   - WithTempDir(dir): Directory for result files (default: os.TempDir())
//   - WithPollInterval(d): Pause between scans for exited workers (default: 100ms)
//   - WithAdaptivePolling(initial, max): Grow the pause while nothing exits
//   - WithPollJitter(factor): Random spread of adaptive pauses (default: 0.2)
//   - WithSpawnRate(perSecond, burst): Throttle process creation
//   - WithKillOnFailure(bool): Kill running siblings when a worker fails (default: true)
//   - WithCPUAffinity(bool): Pin each worker to one core (Linux only)
//   - WithLogger(logger): logrus logger for lifecycle events
//   - WithOnSpawn / WithOnExit: Lifecycle hooks
//
// # Error Handling
//
// The pool uses fail-fast semantics and never retries. A worker that exits
// with a non-zero status produces a *ChildError (errors.Is(err,
// ErrChildFailed)); the worker's own error or panic stack is written to its
// stderr. Failing to start a worker wraps ErrSpawn, and an unreadable result
// file wraps ErrResultDecode. Ordered variants return no results on failure.
//
// Arguments and results travel with encoding/gob, so A and R must be types gob
// can encode; register concrete types behind interface values with
// gob.Register.
package pool
